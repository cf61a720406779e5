package main

import (
	"bytes"
	"testing"

	"github.com/robvanmieghem/gorambench/benchmark"
	"github.com/robvanmieghem/gorambench/compute/cpusim"
)

func TestExcludedDevices(t *testing.T) {
	testSet := []struct {
		deviceID     int
		excludedGPUs string
		excluded     bool
	}{{
		deviceID:     1,
		excludedGPUs: "",
		excluded:     false,
	},
		{
			deviceID:     2,
			excludedGPUs: "2",
			excluded:     true,
		},
		{
			deviceID:     2,
			excludedGPUs: "3,2",
			excluded:     true,
		},
		{
			deviceID:     2,
			excludedGPUs: "3, 2",
			excluded:     true,
		},
		{
			deviceID:     1,
			excludedGPUs: "2,3",
			excluded:     false,
		},
		{
			deviceID:     1,
			excludedGPUs: "0",
			excluded:     false,
		},
	}
	for _, test := range testSet {
		result := deviceExcluded(test.deviceID, test.excludedGPUs)
		if result != test.excluded {
			t.Error(test)
		}
	}
}

func TestOpenBackend(t *testing.T) {
	if _, err := openBackend("cuda", ""); err == nil {
		t.Error("unknown backend accepted")
	}
	b, err := openBackend("cpusim", "")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Release()
	if b.Device().Platform != "cpusim" {
		t.Error(b.Device().Platform, "returned instead of cpusim")
	}
}

func TestConsoleProgress(t *testing.T) {
	cfg := benchmark.Config{ListSize: 4096, Iterations: 3, KernelIterations: 1, BatchSize: 256, LocalGroupSize: 64}
	backend := cpusim.New(benchmark.HostKernels())
	defer backend.Release()

	var out bytes.Buffer
	bench := startBench(&out, cfg, backend, true)
	if out.String() != "started running\n" {
		t.Errorf("%q printed before the run", out.String())
	}
	if _, err := bench.Run(); err != nil {
		t.Fatal(err)
	}
	expected := "started running\n" +
		"iteration 1 / 3\n" +
		"iteration 2 / 3\n" +
		"iteration 3 / 3\n"
	if out.String() != expected {
		t.Errorf("%q printed instead of %q", out.String(), expected)
	}
}
