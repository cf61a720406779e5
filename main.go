package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/robvanmieghem/gorambench/benchmark"
	"github.com/robvanmieghem/gorambench/compute"
	"github.com/robvanmieghem/gorambench/compute/cpusim"
	"github.com/robvanmieghem/gorambench/compute/opencl"
)

//Version is the released version string of gorambench
var Version = "0.1-Dev"

func main() {
	printVersion := flag.Bool("v", false, "Show version and exit")
	defaults := benchmark.DefaultConfig()
	listSize := flag.Int("list", defaults.ListSize, "Size of the source buffer in bytes, must be a power of two")
	iterations := flag.Int("iterations", defaults.Iterations, "Number of timed kernel launches")
	kernelIterations := flag.Int("k", defaults.KernelIterations, "Dependent reads per lane per launch")
	intensity := flag.Int("I", int(math.Log2(float64(defaults.BatchSize))), "Intensity, the number of lanes per launch is 2^Intensity")
	groupSize := flag.Int("group", defaults.LocalGroupSize, "Lanes per work-group")
	backendName := flag.String("backend", "opencl", "Compute backend, can be `opencl` or `cpusim`")
	excludedGPUs := flag.String("E", "", "Exclude GPU's: comma separated list of devicenumbers")
	verify := flag.Bool("verify", false, "Recompute the final batch on the host and compare it with the device output")
	jsonOutput := flag.Bool("json", false, "Print the report as json")
	flag.Parse()

	if *printVersion {
		fmt.Println("gorambench version", Version)
		os.Exit(0)
	}

	if *intensity < 0 || *intensity > 30 {
		log.Fatalln("Intensity", *intensity, "is out of range [0, 30]")
	}
	cfg := benchmark.Config{
		ListSize:         *listSize,
		Iterations:       *iterations,
		KernelIterations: *kernelIterations,
		BatchSize:        1 << uint(*intensity),
		LocalGroupSize:   *groupSize,
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalln(err)
	}

	backend, err := openBackend(*backendName, *excludedGPUs)
	if err != nil {
		log.Fatalln(err)
	}
	log.Println("Using", backend.Device())

	report, err := startBench(os.Stdout, cfg, backend, *verify).Run()
	backend.Release()
	if err != nil {
		log.Fatalln(err)
	}

	if *jsonOutput {
		err = report.WriteJSON(os.Stdout)
	} else {
		err = report.Print(os.Stdout)
	}
	if err != nil {
		log.Fatalln(err)
	}
}

//startBench announces the run on w and returns a Bench that reports its progress on w
func startBench(w io.Writer, cfg benchmark.Config, backend compute.Backend, verify bool) *benchmark.Bench {
	fmt.Fprintln(w, "started running")
	return &benchmark.Bench{
		Config:   cfg,
		Backend:  backend,
		Verify:   verify,
		Progress: printProgress(w),
	}
}

func printProgress(w io.Writer) func(iteration, total int) {
	return func(iteration, total int) {
		fmt.Fprintf(w, "iteration %d / %d\n", iteration, total)
	}
}

//openBackend creates the named compute backend, for opencl the first GPU that is not excluded is used
func openBackend(name string, excludedGPUs string) (compute.Backend, error) {
	switch name {
	case "opencl":
		b, err := opencl.Open(func(deviceID int) bool {
			return deviceExcluded(deviceID, excludedGPUs)
		})
		if err != nil {
			return nil, fmt.Errorf("%v in discover device: %w", benchmark.SetupFailure, err)
		}
		return b, nil
	case "cpusim":
		return cpusim.New(benchmark.HostKernels()), nil
	}
	return nil, fmt.Errorf("%v in select backend: unknown backend %q", benchmark.ConfigFailure, name)
}

//deviceExcluded checks if the device is in the exclusion list
func deviceExcluded(deviceID int, excludedGPUs string) bool {
	excludedGPUList := strings.Split(excludedGPUs, ",")
	for _, excludedGPU := range excludedGPUList {
		if strconv.Itoa(deviceID) == strings.TrimSpace(excludedGPU) {
			return true
		}
	}
	return false
}
