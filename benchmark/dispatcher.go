// Package benchmark measures random access read bandwidth of device memory.
//
// Every lane of a launch walks the source buffer: the next address depends on the byte
// read before it, so address based prefetchers can not hide the latency of the reads.
// A run uploads the source buffer once, issues Config.Iterations launches one after the
// other and times the whole sequence.
package benchmark

import (
	"fmt"
	"log"
	"time"

	"github.com/robvanmieghem/gorambench/compute"
	"github.com/robvanmieghem/gorambench/compute/cpusim"
)

// Bench runs the benchmark on a compute backend
type Bench struct {
	Config  Config
	Backend compute.Backend

	//Progress is called after every completed launch, it may be nil
	Progress func(iteration, total int)

	//Verify recomputes the final launch on the host and compares it with the device output
	Verify bool

	//Clock returns the current time, time.Now is used when nil
	Clock func() time.Time
}

func (b *Bench) now() time.Time {
	if b.Clock != nil {
		return b.Clock()
	}
	return time.Now()
}

// Run executes the configured launches and reports the bandwidth.
// Every backend handle acquired by Run is released before it returns, also on failure.
func (b *Bench) Run() (report *Report, err error) {
	cfg := b.Config
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	device := b.Backend.Device()
	if err = checkDevice(cfg, device); err != nil {
		return nil, err
	}

	copies := 1
	if device.Platform == cpusim.Platform {
		copies = 2
	}
	src, err := allocateSource(cfg.ListSize, copies)
	if err != nil {
		return nil, err
	}

	scope := compute.NewScope()
	defer scope.Release()

	srcObj, err := b.Backend.CreateBuffer(cfg.ListSize, compute.ReadOnly)
	if err != nil {
		return nil, newError(SetupFailure, "create source buffer", err)
	}
	scope.Add(srcObj)
	if err = b.Backend.Upload(srcObj, src); err != nil {
		return nil, newError(SetupFailure, "upload source buffer", err)
	}

	outObj, err := b.Backend.CreateBuffer(cfg.BatchSize, compute.WriteOnly)
	if err != nil {
		return nil, newError(SetupFailure, "create output buffer", err)
	}
	scope.Add(outObj)

	program, err := b.Backend.Compile(kernelSource, buildOptions(cfg))
	if err != nil {
		return nil, newError(SetupFailure, "build program", err)
	}
	scope.Add(program)

	kernel, err := b.Backend.CreateKernel(program, KernelName)
	if err != nil {
		return nil, newError(SetupFailure, "create kernel", err)
	}
	scope.Add(kernel)

	if err = b.Backend.SetArg(kernel, 0, srcObj); err != nil {
		return nil, newError(SetupFailure, "bind source buffer", err)
	}
	if err = b.Backend.SetArg(kernel, 1, outObj); err != nil {
		return nil, newError(SetupFailure, "bind output buffer", err)
	}

	log.Println(device.ID, "- List size:", cfg.ListSize, "- Batch size:", cfg.BatchSize,
		"- Kernel iterations:", cfg.KernelIterations, "- Local group size:", cfg.LocalGroupSize)

	start := b.now()
	for iter := 0; iter < cfg.Iterations; iter++ {
		if err = b.launch(kernel, iter); err != nil {
			return nil, err
		}
		if b.Progress != nil {
			b.Progress(iter+1, cfg.Iterations)
		}
	}
	elapsed := b.now().Sub(start)

	out := make([]byte, cfg.BatchSize)
	if err = b.Backend.Download(outObj, out); err != nil {
		return nil, newError(LaunchFailure, "read output buffer", err)
	}
	if b.Verify {
		if err = verifyBatch(cfg, src, out, Seed(cfg.Iterations-1)); err != nil {
			return nil, err
		}
	}

	report, err = NewReport(cfg, elapsed, Checksum(out))
	if err != nil {
		return nil, err
	}
	report.Device = device
	return report, nil
}

// launch runs a single iteration and blocks until it has completed
func (b *Bench) launch(kernel compute.Kernel, iter int) error {
	op := fmt.Sprintf("iteration %d", iter)
	if err := b.Backend.SetArg(kernel, 2, Seed(iter)); err != nil {
		return newError(LaunchFailure, op+" bind seed", err)
	}
	event, err := b.Backend.Launch(kernel, b.Config.BatchSize, b.Config.LocalGroupSize)
	if err != nil {
		return newError(LaunchFailure, op+" launch", err)
	}
	defer event.Release()
	if err = b.Backend.Wait(event); err != nil {
		return newError(LaunchFailure, op+" wait", err)
	}
	return nil
}

//checkDevice validates the configuration against the limits of the device
func checkDevice(cfg Config, device compute.DeviceInfo) error {
	if device.MaxWorkGroupSize > 0 && cfg.LocalGroupSize > device.MaxWorkGroupSize {
		return newError(SetupFailure, "check device",
			fmt.Errorf("local group size %d exceeds the maximum of %d of %s", cfg.LocalGroupSize, device.MaxWorkGroupSize, device.Name))
	}
	if device.GlobalMemSize > 0 && int64(cfg.ListSize)+int64(cfg.BatchSize) > device.GlobalMemSize {
		return newError(SetupFailure, "check device",
			fmt.Errorf("%d bytes of buffers do not fit the %d bytes of %s", cfg.ListSize+cfg.BatchSize, device.GlobalMemSize, device.Name))
	}
	return nil
}
