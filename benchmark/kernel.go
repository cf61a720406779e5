package benchmark

import (
	"fmt"

	"github.com/robvanmieghem/gorambench/compute/cpusim"
)

//KernelName is the entry point of kernelSource
const KernelName = "ram_bench"

// kernelSource is built with MASK and KERNEL_ITERATIONS defined through the build options,
// see buildOptions. Every read address depends on the value read before it.
const kernelSource = `
inline uint xorshift32(uint x)
{
	x ^= x << 13;
	x ^= x >> 17;
	x ^= x << 5;
	return x;
}

__kernel void ram_bench(__global const uchar *src, __global uchar *out, int seed) {
	int i = get_global_id(0);
	uint a = (uint)i + (uint)seed;

	for (int j = 0; j < KERNEL_ITERATIONS; j++) {
		uchar v = src[a & MASK];
		a = a + v;
		a = xorshift32(a);
	}

	out[i] = a & 0xff;
}
`

func buildOptions(cfg Config) string {
	return fmt.Sprintf("-D MASK=%du -D KERNEL_ITERATIONS=%d", cfg.Mask(), cfg.KernelIterations)
}

// Xorshift32 is Marsaglia's "xor" generator with shifts 13, 17, 5.
// Zero is a fixed point: a walk whose state becomes 0 stays at 0 while it keeps reading 0 bytes.
func Xorshift32(x uint32) uint32 {
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	return x
}

// Walk computes the output byte of one lane, it is the host reference of kernelSource.
// mask must be len(src)-1 with len(src) a power of two.
func Walk(src []byte, mask uint32, lane int, seed int32, steps int) byte {
	a := uint32(lane) + uint32(seed)
	for j := 0; j < steps; j++ {
		v := src[a&mask]
		a += uint32(v)
		a = Xorshift32(a)
	}
	return byte(a)
}

// HostKernels returns the kernels of this package for the cpusim backend.
// The argument layout and the defines are the same as for kernelSource.
func HostKernels() map[string]cpusim.KernelFunc {
	return map[string]cpusim.KernelFunc{KernelName: hostRAMBench}
}

func hostRAMBench(inv *cpusim.Invocation, lanes int) (func(lane int), error) {
	src, err := inv.Bytes(0)
	if err != nil {
		return nil, err
	}
	out, err := inv.Bytes(1)
	if err != nil {
		return nil, err
	}
	seed, err := inv.Int32(2)
	if err != nil {
		return nil, err
	}
	mask, err := inv.Define("MASK")
	if err != nil {
		return nil, err
	}
	steps, err := inv.Define("KERNEL_ITERATIONS")
	if err != nil {
		return nil, err
	}
	if mask >= uint64(len(src)) {
		return nil, fmt.Errorf("mask %d does not fit a source buffer of %d bytes", mask, len(src))
	}
	if lanes > len(out) {
		return nil, fmt.Errorf("%d lanes do not fit an output buffer of %d bytes", lanes, len(out))
	}
	return func(lane int) {
		out[lane] = Walk(src, uint32(mask), lane, seed, int(steps))
	}, nil
}
