package cpusim

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robvanmieghem/gorambench/compute"
)

type buffer struct {
	data []byte
	mode compute.AccessMode
}

func (b *buffer) Release() { b.data = nil }

func (b *buffer) Size() int { return len(b.data) }

type program struct {
	defines map[string]string
}

func (p *program) Release() {}

type kernel struct {
	entry string
	fn    KernelFunc
	inv   Invocation
}

func (k *kernel) Release() {}

type event struct {
	done     chan struct{}
	lanes    int
	executed uint64
	err      error
}

func (e *event) Release() {}

func toBuffer(buf compute.Buffer) (*buffer, error) {
	hostBuf, ok := buf.(*buffer)
	if !ok {
		return nil, fmt.Errorf("buffer %T does not belong to the cpusim backend", buf)
	}
	if hostBuf.data == nil {
		return nil, fmt.Errorf("use of a released buffer")
	}
	return hostBuf, nil
}

// Invocation is the argument set and the compile time defines a kernel is launched with
type Invocation struct {
	defines map[string]string
	args    map[int]interface{}
}

func (inv *Invocation) snapshot() *Invocation {
	args := make(map[int]interface{}, len(inv.args))
	for slot, v := range inv.args {
		args[slot] = v
	}
	return &Invocation{defines: inv.defines, args: args}
}

//Bytes returns the memory of the buffer bound at slot
func (inv *Invocation) Bytes(slot int) ([]byte, error) {
	v, ok := inv.args[slot]
	if !ok {
		return nil, fmt.Errorf("argument %d is not set", slot)
	}
	buf, ok := v.(*buffer)
	if !ok {
		return nil, fmt.Errorf("argument %d is a %T, not a buffer", slot, v)
	}
	if buf.data == nil {
		return nil, fmt.Errorf("argument %d is a released buffer", slot)
	}
	return buf.data, nil
}

//Int32 returns the scalar bound at slot
func (inv *Invocation) Int32(slot int) (int32, error) {
	v, ok := inv.args[slot]
	if !ok {
		return 0, fmt.Errorf("argument %d is not set", slot)
	}
	i, ok := v.(int32)
	if !ok {
		return 0, fmt.Errorf("argument %d is a %T, not an int32", slot, v)
	}
	return i, nil
}

// Define returns the numeric value of a -D define.
// C integer suffixes (u, l, ul) and hexadecimal notation are accepted.
func (inv *Invocation) Define(name string) (uint64, error) {
	raw, ok := inv.defines[name]
	if !ok {
		return 0, fmt.Errorf("%s is not defined", name)
	}
	value, err := strconv.ParseUint(strings.TrimRight(strings.ToLower(raw), "ul"), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("define %s=%s: %w", name, raw, err)
	}
	return value, nil
}

// ParseDefines extracts the "-D NAME=value" and "-DNAME=value" options from OpenCL build options.
// A define without a value gets the value "1", other options are ignored.
func ParseDefines(options string) (map[string]string, error) {
	defines := make(map[string]string)
	fields := strings.Fields(options)
	for i := 0; i < len(fields); i++ {
		field := fields[i]
		if !strings.HasPrefix(field, "-D") {
			continue
		}
		define := strings.TrimPrefix(field, "-D")
		if define == "" {
			if i+1 >= len(fields) {
				return nil, fmt.Errorf("-D without a definition in %q", options)
			}
			i++
			define = fields[i]
		}
		name, value, found := strings.Cut(define, "=")
		if name == "" {
			return nil, fmt.Errorf("invalid define %q", define)
		}
		if !found {
			value = "1"
		}
		defines[name] = value
	}
	return defines, nil
}
