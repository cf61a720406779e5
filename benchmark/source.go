package benchmark

import (
	"errors"
	"fmt"
	"log"

	"github.com/shirou/gopsutil/v4/mem"
)

//ErrInsufficientMemory is wrapped by the AllocationFailure of a source buffer that does not fit the host
var ErrInsufficientMemory = errors.New("insufficient host memory")

var virtualMemory = mem.VirtualMemory

// Generate returns the source buffer of size bytes, buffer[i] = (i * 1137) mod 256.
// The content only depends on size so every run reads the same data.
func Generate(size int) []byte {
	buffer := make([]byte, size)
	for i := range buffer {
		buffer[i] = byte(i * 1137)
	}
	return buffer
}

// allocateSource checks the host can hold copies times size bytes before generating the source buffer.
// A backend whose device buffers live in host memory needs 2 copies: the generated buffer and the device one.
// When the host memory statistics can not be read the check is skipped.
func allocateSource(size, copies int) ([]byte, error) {
	vm, err := virtualMemory()
	if err != nil {
		log.Println("Unable to read host memory statistics, skipping the check -", err)
	} else if need := uint64(size) * uint64(copies); need > vm.Available {
		return nil, newError(AllocationFailure, "allocate source buffer",
			fmt.Errorf("%d bytes requested, %d bytes available: %w", need, vm.Available, ErrInsufficientMemory))
	}
	return Generate(size), nil
}
