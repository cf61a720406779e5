package cpusim

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/robvanmieghem/gorambench/compute"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// square writes lane*lane into a uint32 slot of the output buffer at slot 0, plus the OFFSET define
func square(inv *Invocation, lanes int) (func(lane int), error) {
	out, err := inv.Bytes(0)
	if err != nil {
		return nil, err
	}
	offset, err := inv.Define("OFFSET")
	if err != nil {
		return nil, err
	}
	if len(out) < lanes {
		return nil, errors.New("output too small")
	}
	return func(lane int) {
		out[lane] = byte(lane*lane + int(offset))
	}, nil
}

func TestLaunch(t *testing.T) {
	b := New(map[string]KernelFunc{"square": square})
	defer b.Release()

	out, err := b.CreateBuffer(256, compute.WriteOnly)
	require.NoError(t, err)
	p, err := b.Compile("ignored", "-cl-fast-relaxed-math -D OFFSET=0x3")
	require.NoError(t, err)
	k, err := b.CreateKernel(p, "square")
	require.NoError(t, err)
	require.NoError(t, b.SetArg(k, 0, out))

	ev, err := b.Launch(k, 256, 16)
	require.NoError(t, err)
	require.NoError(t, b.Wait(ev))
	ev.Release()

	result := make([]byte, 256)
	require.NoError(t, b.Download(out, result))
	for lane, v := range result {
		require.Equal(t, byte(lane*lane+3), v, "lane %d", lane)
	}
}

func TestLaunchGeometry(t *testing.T) {
	b := New(map[string]KernelFunc{"square": square})
	out, _ := b.CreateBuffer(4096, compute.WriteOnly)
	p, _ := b.Compile("", "-DOFFSET")
	k, _ := b.CreateKernel(p, "square")
	require.NoError(t, b.SetArg(k, 0, out))

	testSet := []struct {
		lanes, group int
		ok           bool
	}{
		{64, 64, true},
		{4096, 1, true},
		{4096, 1024, true},
		{100, 64, false},
		{0, 64, false},
		{64, 0, false},
		{4096, 2048, false},
	}
	for _, test := range testSet {
		ev, err := b.Launch(k, test.lanes, test.group)
		if test.ok {
			if assert.NoError(t, err, "%d lanes in groups of %d", test.lanes, test.group) {
				assert.NoError(t, b.Wait(ev))
			}
		} else {
			assert.Error(t, err, "%d lanes in groups of %d", test.lanes, test.group)
		}
	}
}

func TestRunGroupsVisitsEveryLaneOnce(t *testing.T) {
	const lanes = 1 << 14
	visits := make([]int32, lanes)
	for _, workers := range []int{0, 1, 3, 64, 1 << 20} {
		for i := range visits {
			visits[i] = 0
		}
		var executed uint64
		err := runGroups(workers, lanes, 32, func(lane int) {
			atomic.AddInt32(&visits[lane], 1)
		}, &executed)
		require.NoError(t, err)
		assert.Equal(t, uint64(lanes), executed, "workers %d", workers)
		for lane, v := range visits {
			if v != 1 {
				t.Fatal("workers", workers, "lane", lane, "visited", v, "times")
			}
		}
	}
}

func TestLaunchCapturesArguments(t *testing.T) {
	seen := make(chan int32, 2)
	b := New(map[string]KernelFunc{"seed": func(inv *Invocation, lanes int) (func(lane int), error) {
		seed, err := inv.Int32(0)
		if err != nil {
			return nil, err
		}
		seen <- seed
		return func(lane int) {}, nil
	}})
	p, _ := b.Compile("", "")
	k, err := b.CreateKernel(p, "seed")
	require.NoError(t, err)

	require.NoError(t, b.SetArg(k, 0, int32(17)))
	first, err := b.Launch(k, 64, 64)
	require.NoError(t, err)
	require.NoError(t, b.SetArg(k, 0, int32(34)))
	second, err := b.Launch(k, 64, 64)
	require.NoError(t, err)
	require.NoError(t, b.Wait(first))
	require.NoError(t, b.Wait(second))
	assert.Equal(t, int32(17), <-seen)
	assert.Equal(t, int32(34), <-seen)
}

func TestErrors(t *testing.T) {
	b := New(map[string]KernelFunc{"square": square})
	p, _ := b.Compile("", "")

	_, err := b.CreateKernel(p, "cube")
	assert.Error(t, err)

	k, _ := b.CreateKernel(p, "square")
	assert.Error(t, b.SetArg(k, 0, 1.5), "float arguments are not supported")
	assert.Error(t, b.SetArg(k, -1, int32(1)))

	_, err = b.Launch(k, 64, 64)
	assert.Error(t, err, "output is not bound")

	buf, _ := b.CreateBuffer(8, compute.ReadWrite)
	assert.Error(t, b.Upload(buf, make([]byte, 9)))
	assert.Error(t, b.Download(buf, make([]byte, 9)))
	buf.Release()
	assert.Error(t, b.Upload(buf, make([]byte, 1)), "released buffer")

	_, err = b.CreateBuffer(0, compute.ReadOnly)
	assert.Error(t, err)
}

func TestParseDefines(t *testing.T) {
	defines, err := ParseDefines("-D MASK=1023u -DKERNEL_ITERATIONS=2048 -cl-mad-enable -D FLAG -D")
	assert.Error(t, err, "dangling -D")
	assert.Nil(t, defines)

	defines, err = ParseDefines("-D MASK=1023u -DKERNEL_ITERATIONS=2048 -cl-mad-enable -D FLAG")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"MASK": "1023u", "KERNEL_ITERATIONS": "2048", "FLAG": "1"}, defines)

	_, err = ParseDefines("-D =3")
	assert.Error(t, err)

	inv := &Invocation{defines: map[string]string{"A": "1023u", "B": "0xffUL", "C": "x"}}
	a, err := inv.Define("A")
	require.NoError(t, err)
	assert.Equal(t, uint64(1023), a)
	bv, err := inv.Define("B")
	require.NoError(t, err)
	assert.Equal(t, uint64(255), bv)
	_, err = inv.Define("C")
	assert.Error(t, err)
	_, err = inv.Define("D")
	assert.Error(t, err)
}

func TestDevice(t *testing.T) {
	b := New(nil)
	device := b.Device()
	assert.Equal(t, "cpusim", device.Platform)
	assert.Equal(t, "CPU", device.Type)
	assert.Equal(t, MaxWorkGroupSize, device.MaxWorkGroupSize)
	assert.Greater(t, device.ComputeUnits, 0)
	assert.NotEmpty(t, device.Name)
}
