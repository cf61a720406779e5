package benchmark

import (
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateSource(t *testing.T) {
	defer func() { virtualMemory = mem.VirtualMemory }()
	virtualMemory = func() (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Available: 6000}, nil
	}

	src, err := allocateSource(4096, 1)
	require.NoError(t, err)
	assert.Equal(t, Generate(4096), src)

	src, err = allocateSource(4096, 2)
	assert.Nil(t, src)
	assert.True(t, IsKind(err, AllocationFailure), "%v is not an AllocationFailure", err)
	assert.ErrorIs(t, err, ErrInsufficientMemory)
	assert.Contains(t, err.Error(), "8192 bytes requested, 6000 bytes available")
}

func TestAllocateSourceWithoutStatistics(t *testing.T) {
	defer func() { virtualMemory = mem.VirtualMemory }()
	virtualMemory = func() (*mem.VirtualMemoryStat, error) {
		return nil, errors.New("not supported")
	}

	src, err := allocateSource(1024, 2)
	require.NoError(t, err)
	assert.Len(t, src, 1024)
}
