// Package cpusim implements the compute backend on the host CPU.
//
// Kernel source text is not compiled. Instead every entry point is a Go KernelFunc registered
// when the backend is created, and "compiling" only parses the -D defines out of the build
// options so registered kernels see the same compile time constants an OpenCL kernel would.
// A launch runs its work-groups on a pool of goroutines; lanes of a launch share no state.
package cpusim

import (
	"fmt"
	"log"
	"runtime"
	"sync/atomic"

	"github.com/robvanmieghem/gorambench/compute"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"golang.org/x/sync/errgroup"
	syscpu "golang.org/x/sys/cpu"
)

//MaxWorkGroupSize mirrors the common OpenCL device limit
const MaxWorkGroupSize = 1024

//Platform is the platform name reported in the DeviceInfo of the backend.
//Buffers of this platform live in host memory.
const Platform = "cpusim"

// KernelFunc prepares a launch of lanes lanes from the bound arguments and returns the per lane body.
// The body is called exactly once for every lane index in [0, lanes), concurrently.
type KernelFunc func(inv *Invocation, lanes int) (func(lane int), error)

// Backend executes registered kernels on the host
type Backend struct {
	info    compute.DeviceInfo
	kernels map[string]KernelFunc
	workers int
}

// New creates a backend that knows the given kernel entry points
func New(kernels map[string]KernelFunc) *Backend {
	b := &Backend{
		kernels: kernels,
		workers: runtime.NumCPU(),
		info: compute.DeviceInfo{
			Platform:         Platform,
			Name:             runtime.GOARCH,
			Vendor:           "unknown",
			Type:             "CPU",
			MaxWorkGroupSize: MaxWorkGroupSize,
			ComputeUnits:     runtime.NumCPU(),
		},
	}
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		if infos[0].ModelName != "" {
			b.info.Name = infos[0].ModelName
		}
		if infos[0].VendorID != "" {
			b.info.Vendor = infos[0].VendorID
		}
	} else if err != nil {
		log.Println("cpusim - cpu info unavailable -", err)
	}
	if cores, err := cpu.Counts(true); err == nil && cores > 0 {
		b.info.ComputeUnits = cores
		b.workers = cores
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		b.info.GlobalMemSize = int64(vm.Total)
	} else {
		log.Println("cpusim - memory info unavailable -", err)
	}
	return b
}

//Device describes the host CPU
func (b *Backend) Device() compute.DeviceInfo {
	return b.info
}

//CreateBuffer allocates a zeroed host buffer
func (b *Backend) CreateBuffer(size int, mode compute.AccessMode) (compute.Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid buffer size %d", size)
	}
	return &buffer{data: make([]byte, size), mode: mode}, nil
}

//Upload copies data to the start of buf
func (b *Backend) Upload(buf compute.Buffer, data []byte) error {
	hostBuf, err := toBuffer(buf)
	if err != nil {
		return err
	}
	if len(data) > len(hostBuf.data) {
		return fmt.Errorf("upload of %d bytes into a buffer of %d bytes", len(data), len(hostBuf.data))
	}
	copy(hostBuf.data, data)
	return nil
}

//Download copies len(dst) bytes from the start of buf
func (b *Backend) Download(buf compute.Buffer, dst []byte) error {
	hostBuf, err := toBuffer(buf)
	if err != nil {
		return err
	}
	if len(dst) > len(hostBuf.data) {
		return fmt.Errorf("download of %d bytes from a buffer of %d bytes", len(dst), len(hostBuf.data))
	}
	copy(dst, hostBuf.data)
	return nil
}

//Compile parses the -D defines from options, the source text itself is ignored
func (b *Backend) Compile(source, options string) (compute.Program, error) {
	defines, err := ParseDefines(options)
	if err != nil {
		return nil, err
	}
	return &program{defines: defines}, nil
}

//CreateKernel binds entry to its registered KernelFunc
func (b *Backend) CreateKernel(p compute.Program, entry string) (compute.Kernel, error) {
	hostProgram, ok := p.(*program)
	if !ok {
		return nil, fmt.Errorf("program %T does not belong to the cpusim backend", p)
	}
	fn, ok := b.kernels[entry]
	if !ok {
		return nil, fmt.Errorf("no kernel named %q", entry)
	}
	return &kernel{
		entry: entry,
		fn:    fn,
		inv:   Invocation{defines: hostProgram.defines, args: make(map[int]interface{})},
	}, nil
}

//SetArg binds a Buffer or an int32 to the kernel argument at slot
func (b *Backend) SetArg(k compute.Kernel, slot int, value interface{}) error {
	hostKernel, ok := k.(*kernel)
	if !ok {
		return fmt.Errorf("kernel %T does not belong to the cpusim backend", k)
	}
	if slot < 0 {
		return fmt.Errorf("invalid argument slot %d", slot)
	}
	switch v := value.(type) {
	case compute.Buffer:
		hostBuf, err := toBuffer(v)
		if err != nil {
			return err
		}
		hostKernel.inv.args[slot] = hostBuf
	case int32:
		hostKernel.inv.args[slot] = v
	default:
		return fmt.Errorf("unsupported kernel argument type %T for slot %d", value, slot)
	}
	return nil
}

// Launch starts running lanes lanes of k in the background and returns immediately.
// Arguments are captured when Launch is called, later SetArg calls do not affect a running launch.
func (b *Backend) Launch(k compute.Kernel, lanes, groupSize int) (compute.Event, error) {
	hostKernel, ok := k.(*kernel)
	if !ok {
		return nil, fmt.Errorf("kernel %T does not belong to the cpusim backend", k)
	}
	if err := compute.CheckLaunch(lanes, groupSize, b.info.MaxWorkGroupSize); err != nil {
		return nil, err
	}
	inv := hostKernel.inv.snapshot()
	body, err := hostKernel.fn(inv, lanes)
	if err != nil {
		return nil, fmt.Errorf("kernel %s: %w", hostKernel.entry, err)
	}

	ev := &event{done: make(chan struct{}), lanes: lanes}
	go func() {
		defer close(ev.done)
		ev.err = runGroups(b.workers, lanes, groupSize, body, &ev.executed)
	}()
	return ev, nil
}

//Wait blocks until the launch finished and verifies every lane ran
func (b *Backend) Wait(e compute.Event) error {
	hostEvent, ok := e.(*event)
	if !ok {
		return fmt.Errorf("event %T does not belong to the cpusim backend", e)
	}
	<-hostEvent.done
	if hostEvent.err != nil {
		return hostEvent.err
	}
	if hostEvent.executed != uint64(hostEvent.lanes) {
		return fmt.Errorf("launch executed %d of %d lanes", hostEvent.executed, hostEvent.lanes)
	}
	return nil
}

//Release is a no-op, host memory is garbage collected
func (b *Backend) Release() {}

// laneCounter is padded so workers do not share cache lines
type laneCounter struct {
	lanes uint64
	_     syscpu.CacheLinePad
}

// runGroups executes all work-groups of a launch, handing out group indices from a shared counter.
func runGroups(workers, lanes, groupSize int, body func(lane int), executed *uint64) error {
	groups := uint64(lanes / groupSize)
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if groups < uint64(workers) {
		workers = int(groups)
	}

	var next atomic.Uint64
	counters := make([]laneCounter, workers)

	var eg errgroup.Group
	for w := 0; w < workers; w++ {
		counter := &counters[w]
		eg.Go(func() error {
			for {
				group := next.Add(1)
				if group > groups {
					return nil
				}
				start := int(group-1) * groupSize
				for lane := start; lane < start+groupSize; lane++ {
					body(lane)
				}
				counter.lanes += uint64(groupSize)
			}
		})
	}
	err := eg.Wait()
	for i := range counters {
		*executed += counters[i].lanes
	}
	return err
}
