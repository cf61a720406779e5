//Package compute defines the minimal capability the benchmark needs from a compute runtime.
// Concrete backends live in the subpackages (opencl for real GPUs, cpusim for a host simulation).
package compute

import "fmt"

//AccessMode declares how kernels are allowed to access a device buffer
type AccessMode int

const (
	//ReadOnly buffers are only read by kernels
	ReadOnly AccessMode = iota
	//WriteOnly buffers are only written by kernels
	WriteOnly
	//ReadWrite buffers are read and written by kernels
	ReadWrite
)

func (m AccessMode) String() string {
	switch m {
	case ReadOnly:
		return "read-only"
	case WriteOnly:
		return "write-only"
	case ReadWrite:
		return "read-write"
	}
	return fmt.Sprintf("AccessMode(%d)", int(m))
}

//DeviceInfo describes the device a backend executes on
type DeviceInfo struct {
	ID               int    `json:"id"`
	Platform         string `json:"platform"`
	Name             string `json:"name"`
	Vendor           string `json:"vendor"`
	Type             string `json:"type"`
	GlobalMemSize    int64  `json:"global_mem_size"`
	MaxWorkGroupSize int    `json:"max_work_group_size"`
	ComputeUnits     int    `json:"compute_units"`
}

func (d DeviceInfo) String() string {
	return fmt.Sprintf("%d - %s - %s", d.ID, d.Type, d.Name)
}

//Handle is any backend resource that has to be released explicitly
type Handle interface {
	Release()
}

//Buffer is a device memory object
type Buffer interface {
	Handle
	Size() int
}

//Program is a compiled kernel source
type Program interface {
	Handle
}

//Kernel is an entry point of a Program with its bound arguments
type Kernel interface {
	Handle
}

//Event marks the completion of an enqueued launch
type Event interface {
	Handle
}

// Backend is the capability set the benchmark requires from a compute runtime.
// Launch is asynchronous, Wait blocks until the launch has executed.
// SetArg accepts a Buffer or an int32.
type Backend interface {
	Device() DeviceInfo
	CreateBuffer(size int, mode AccessMode) (Buffer, error)
	Upload(buf Buffer, data []byte) error
	Download(buf Buffer, dst []byte) error
	Compile(source, options string) (Program, error)
	CreateKernel(p Program, entry string) (Kernel, error)
	SetArg(k Kernel, slot int, value interface{}) error
	Launch(k Kernel, lanes, groupSize int) (Event, error)
	Wait(e Event) error
	//Release frees the context level resources (context, queue, worker state)
	Release()
}

//CheckLaunch validates the launch geometry shared by all backends
func CheckLaunch(lanes, groupSize, maxGroupSize int) error {
	if lanes <= 0 {
		return fmt.Errorf("invalid lane count %d", lanes)
	}
	if groupSize <= 0 || lanes%groupSize != 0 {
		return fmt.Errorf("lane count %d is not a multiple of group size %d", lanes, groupSize)
	}
	if maxGroupSize > 0 && groupSize > maxGroupSize {
		return fmt.Errorf("group size %d exceeds the device maximum of %d", groupSize, maxGroupSize)
	}
	return nil
}
