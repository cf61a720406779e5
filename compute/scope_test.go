package compute

import (
	"testing"
)

type recordingHandle struct {
	name     string
	released *[]string
}

func (h recordingHandle) Release() {
	*h.released = append(*h.released, h.name)
}

func TestScopeReleasesInReverseOrder(t *testing.T) {
	var released []string
	s := NewScope()
	for _, name := range []string{"context", "buffer", "program", "kernel"} {
		s.Add(recordingHandle{name: name, released: &released})
	}
	s.Add(nil)
	if s.Len() != 4 {
		t.Error(s.Len(), "handles held instead of 4")
	}
	s.Release()
	s.Release()

	expected := []string{"kernel", "program", "buffer", "context"}
	if len(released) != len(expected) {
		t.Fatal(released, "returned instead of", expected)
	}
	for i := range expected {
		if released[i] != expected[i] {
			t.Error(released, "returned instead of", expected)
		}
	}
	if s.Len() != 0 {
		t.Error(s.Len(), "handles held after release")
	}
}

func TestCheckLaunch(t *testing.T) {
	testSet := []struct {
		lanes, group, max int
		ok                bool
	}{
		{65536, 64, 256, true},
		{65536, 64, 0, true},
		{64, 64, 64, true},
		{65536, 512, 256, false},
		{100, 64, 256, false},
		{0, 64, 256, false},
		{64, 0, 256, false},
		{-64, 64, 256, false},
	}
	for _, test := range testSet {
		err := CheckLaunch(test.lanes, test.group, test.max)
		if (err == nil) != test.ok {
			t.Error(test, "-", err)
		}
	}
}

func TestAccessModeString(t *testing.T) {
	if ReadOnly.String() != "read-only" || WriteOnly.String() != "write-only" || ReadWrite.String() != "read-write" {
		t.Error("unexpected access mode names")
	}
	if AccessMode(7).String() != "AccessMode(7)" {
		t.Error(AccessMode(7).String(), "returned instead of AccessMode(7)")
	}
}
