package benchmark

import "fmt"

// Checksum sums the bytes of an output buffer.
// Two runs with the same configuration on working backends produce the same checksum.
func Checksum(out []byte) (sum uint64) {
	for _, b := range out {
		sum += uint64(b)
	}
	return
}

//verifyBatch recomputes the launch with the given seed on the host and compares it with out
func verifyBatch(cfg Config, src, out []byte, seed int32) error {
	mask := cfg.Mask()
	for lane := range out {
		expected := Walk(src, mask, lane, seed, cfg.KernelIterations)
		if out[lane] != expected {
			return newError(ValidationFailure, "verify final batch",
				fmt.Errorf("lane %d: device returned %d, host computed %d", lane, out[lane], expected))
		}
	}
	return nil
}
