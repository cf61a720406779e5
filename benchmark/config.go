package benchmark

import (
	"fmt"
	"math/bits"
)

// Defaults of the run configuration
const (
	DefaultListSize         = 256 * 1024 * 1024
	DefaultIterations       = 10
	DefaultKernelIterations = 2048
	DefaultBatchSize        = 64 * 1024
	DefaultLocalGroupSize   = 64
)

// maxListSize keeps the mask inside 32 bits and the buffer addressable by an int
const maxListSize int64 = 1 << 31

// Config holds the immutable parameters of a run.
// It is passed by value, nothing changes it after Validate succeeded.
type Config struct {
	//ListSize is the size of the source buffer in bytes, a power of two
	ListSize int `json:"list_size"`

	//Iterations is the number of sequential kernel launches that are timed
	Iterations int `json:"iterations"`

	//KernelIterations is the number of dependent reads every lane does per launch
	KernelIterations int `json:"kernel_iterations"`

	//BatchSize is the number of lanes per launch, which is also the size of the output buffer
	BatchSize int `json:"batch_size"`

	//LocalGroupSize is the number of lanes per work-group
	LocalGroupSize int `json:"local_group_size"`
}

//DefaultConfig returns the configuration of a standard run
func DefaultConfig() Config {
	return Config{
		ListSize:         DefaultListSize,
		Iterations:       DefaultIterations,
		KernelIterations: DefaultKernelIterations,
		BatchSize:        DefaultBatchSize,
		LocalGroupSize:   DefaultLocalGroupSize,
	}
}

//Validate checks the configuration on its own, independent of any device
func (c Config) Validate() error {
	if c.ListSize <= 0 || bits.OnesCount(uint(c.ListSize)) != 1 {
		return newError(ConfigFailure, "validate list size", fmt.Errorf("%d is not a power of two", c.ListSize))
	}
	if int64(c.ListSize) > maxListSize {
		return newError(ConfigFailure, "validate list size", fmt.Errorf("%d exceeds the maximum of %d", c.ListSize, maxListSize))
	}
	if c.Iterations <= 0 {
		return newError(ConfigFailure, "validate iterations", fmt.Errorf("%d must be positive", c.Iterations))
	}
	if c.KernelIterations <= 0 {
		return newError(ConfigFailure, "validate kernel iterations", fmt.Errorf("%d must be positive", c.KernelIterations))
	}
	if c.BatchSize <= 0 {
		return newError(ConfigFailure, "validate batch size", fmt.Errorf("%d must be positive", c.BatchSize))
	}
	if c.LocalGroupSize <= 0 || c.BatchSize%c.LocalGroupSize != 0 {
		return newError(ConfigFailure, "validate local group size",
			fmt.Errorf("batch size %d is not a multiple of local group size %d", c.BatchSize, c.LocalGroupSize))
	}
	return nil
}

//Mask wraps any 32 bit address into the source buffer
func (c Config) Mask() uint32 {
	return uint32(c.ListSize - 1)
}

//Seed returns the seed of the launch with the given index
func Seed(iteration int) int32 {
	return int32(iteration * 17)
}
