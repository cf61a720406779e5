//Package opencl implements the compute backend on top of the OpenCL api
package opencl

import (
	"errors"
	"fmt"
	"log"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"
	"github.com/robvanmieghem/gorambench/compute"
)

//ErrNoDevice is returned by Open when no usable GPU is present
var ErrNoDevice = errors.New("no suitable opencl GPU device found")

//DeviceTypes is the device class considered by Open. Only GPU's are benchmarked, there is no CPU fallback.
const DeviceTypes = cl.DeviceTypeGPU

// Backend runs kernels on a single OpenCL GPU through one context and one in-order command queue.
type Backend struct {
	info         compute.DeviceInfo
	clDevice     *cl.Device
	context      *cl.Context
	commandQueue *cl.CommandQueue
}

type buffer struct {
	mem  *cl.MemObject
	size int
}

func (b *buffer) Release() { b.mem.Release() }

func (b *buffer) Size() int { return b.size }

type program struct {
	program *cl.Program
}

func (p *program) Release() { p.program.Release() }

type kernel struct {
	kernel *cl.Kernel
}

func (k *kernel) Release() { k.kernel.Release() }

type event struct {
	event *cl.Event
}

func (e *event) Release() { e.event.Release() }

// Open picks the first GPU, over all platforms, for which exclude returns false.
// Devices are numbered in discovery order; exclude may be nil.
func Open(exclude func(deviceID int) bool) (b *Backend, err error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		return nil, fmt.Errorf("get platforms: %w", err)
	}

	deviceID := 0
	for _, platform := range platforms {
		log.Println("Platform", platform.Name())
		platformDevices, err := platform.GetDevices(DeviceTypes)
		if err != nil {
			if err != cl.ErrDeviceNotFound {
				log.Println(err)
			}
			continue
		}
		log.Println(len(platformDevices), "device(s) found:")
		for _, device := range platformDevices {
			id := deviceID
			deviceID++
			log.Println(id, "-", device.Type(), "-", device.Name())
			if exclude != nil && exclude(id) {
				log.Println(id, "- excluded")
				continue
			}
			if b == nil {
				b = &Backend{
					clDevice: device,
					info: compute.DeviceInfo{
						ID:               id,
						Platform:         platform.Name(),
						Name:             device.Name(),
						Vendor:           device.Vendor(),
						Type:             device.Type().String(),
						GlobalMemSize:    device.GlobalMemSize(),
						MaxWorkGroupSize: device.MaxWorkGroupSize(),
						ComputeUnits:     device.MaxComputeUnits(),
					},
				}
			}
		}
	}
	if b == nil {
		return nil, ErrNoDevice
	}

	log.Println(b.info.ID, "- Initializing", b.info.Type, "-", b.info.Name)
	b.context, err = cl.CreateContext([]*cl.Device{b.clDevice})
	if err != nil {
		return nil, fmt.Errorf("create context: %w", err)
	}
	b.commandQueue, err = b.context.CreateCommandQueue(b.clDevice, 0)
	if err != nil {
		b.context.Release()
		return nil, fmt.Errorf("create command queue: %w", err)
	}
	return b, nil
}

//Device returns the description of the selected GPU
func (b *Backend) Device() compute.DeviceInfo {
	return b.info
}

//CreateBuffer allocates an uninitialized device buffer
func (b *Backend) CreateBuffer(size int, mode compute.AccessMode) (compute.Buffer, error) {
	var flags cl.MemFlag
	switch mode {
	case compute.ReadOnly:
		flags = cl.MemReadOnly
	case compute.WriteOnly:
		flags = cl.MemWriteOnly
	case compute.ReadWrite:
		flags = cl.MemReadWrite
	default:
		return nil, fmt.Errorf("unsupported access mode %v", mode)
	}
	mem, err := b.context.CreateEmptyBuffer(flags, size)
	if err != nil {
		return nil, fmt.Errorf("create %v buffer of %d bytes: %w", mode, size, err)
	}
	return &buffer{mem: mem, size: size}, nil
}

//Upload copies data to the start of buf and blocks until the copy is done
func (b *Backend) Upload(buf compute.Buffer, data []byte) error {
	clBuf, err := b.buffer(buf)
	if err != nil {
		return err
	}
	if len(data) > clBuf.size {
		return fmt.Errorf("upload of %d bytes into a buffer of %d bytes", len(data), clBuf.size)
	}
	if len(data) == 0 {
		return nil
	}
	ev, err := b.commandQueue.EnqueueWriteBuffer(clBuf.mem, true, 0, len(data), unsafe.Pointer(&data[0]), nil)
	if err != nil {
		return err
	}
	releaseEvent(ev)
	return nil
}

//Download copies len(dst) bytes from the start of buf and blocks until the copy is done
func (b *Backend) Download(buf compute.Buffer, dst []byte) error {
	clBuf, err := b.buffer(buf)
	if err != nil {
		return err
	}
	if len(dst) > clBuf.size {
		return fmt.Errorf("download of %d bytes from a buffer of %d bytes", len(dst), clBuf.size)
	}
	if len(dst) == 0 {
		return nil
	}
	ev, err := b.commandQueue.EnqueueReadBuffer(clBuf.mem, true, 0, len(dst), unsafe.Pointer(&dst[0]), nil)
	if err != nil {
		return err
	}
	releaseEvent(ev)
	return nil
}

//Compile builds source for the selected device with the given build options
func (b *Backend) Compile(source, options string) (compute.Program, error) {
	p, err := b.context.CreateProgramWithSource([]string{source})
	if err != nil {
		return nil, err
	}
	if err = p.BuildProgram([]*cl.Device{b.clDevice}, options); err != nil {
		p.Release()
		return nil, fmt.Errorf("build program (%s): %w", options, err)
	}
	return &program{program: p}, nil
}

//CreateKernel looks up the kernel function entry in p
func (b *Backend) CreateKernel(p compute.Program, entry string) (compute.Kernel, error) {
	clProgram, ok := p.(*program)
	if !ok {
		return nil, fmt.Errorf("program %T does not belong to the opencl backend", p)
	}
	k, err := clProgram.program.CreateKernel(entry)
	if err != nil {
		return nil, fmt.Errorf("kernel %s: %w", entry, err)
	}
	return &kernel{kernel: k}, nil
}

//SetArg binds a Buffer or an int32 to the kernel argument at slot
func (b *Backend) SetArg(k compute.Kernel, slot int, value interface{}) error {
	clKernel, ok := k.(*kernel)
	if !ok {
		return fmt.Errorf("kernel %T does not belong to the opencl backend", k)
	}
	switch v := value.(type) {
	case compute.Buffer:
		clBuf, err := b.buffer(v)
		if err != nil {
			return err
		}
		return clKernel.kernel.SetArgBuffer(slot, clBuf.mem)
	case int32:
		return clKernel.kernel.SetArgInt32(slot, v)
	}
	return fmt.Errorf("unsupported kernel argument type %T for slot %d", value, slot)
}

//Launch enqueues lanes work items in groups of groupSize and flushes the queue
func (b *Backend) Launch(k compute.Kernel, lanes, groupSize int) (compute.Event, error) {
	clKernel, ok := k.(*kernel)
	if !ok {
		return nil, fmt.Errorf("kernel %T does not belong to the opencl backend", k)
	}
	if err := compute.CheckLaunch(lanes, groupSize, b.info.MaxWorkGroupSize); err != nil {
		return nil, err
	}
	ev, err := b.commandQueue.EnqueueNDRangeKernel(clKernel.kernel, nil, []int{lanes}, []int{groupSize}, nil)
	if err != nil {
		return nil, err
	}
	if err = b.commandQueue.Flush(); err != nil {
		releaseEvent(ev)
		return nil, fmt.Errorf("flush: %w", err)
	}
	return &event{event: ev}, nil
}

//Wait blocks until the launch that produced e has completed
func (b *Backend) Wait(e compute.Event) error {
	clEvent, ok := e.(*event)
	if !ok {
		return fmt.Errorf("event %T does not belong to the opencl backend", e)
	}
	return cl.WaitForEvents([]*cl.Event{clEvent.event})
}

//Release drains the queue and frees the queue and the context
func (b *Backend) Release() {
	if b.commandQueue != nil {
		if err := b.commandQueue.Finish(); err != nil {
			log.Println(b.info.ID, "- finish command queue -", err)
		}
		b.commandQueue.Release()
		b.commandQueue = nil
	}
	if b.context != nil {
		b.context.Release()
		b.context = nil
	}
}

func (b *Backend) buffer(buf compute.Buffer) (*buffer, error) {
	clBuf, ok := buf.(*buffer)
	if !ok {
		return nil, fmt.Errorf("buffer %T does not belong to the opencl backend", buf)
	}
	return clBuf, nil
}

func releaseEvent(ev *cl.Event) {
	if ev != nil {
		ev.Release()
	}
}
