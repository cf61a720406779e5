package compute

// Scope keeps track of acquired handles so they can be released together.
// Handles are released in reverse acquisition order, mirroring a chain of deferred Release calls.
// A Scope is not safe for concurrent use.
type Scope struct {
	handles []Handle
}

//NewScope returns an empty Scope
func NewScope() *Scope {
	return &Scope{}
}

//Add registers h for release. nil handles are ignored.
func (s *Scope) Add(h Handle) {
	if h != nil {
		s.handles = append(s.handles, h)
	}
}

//Len returns the number of handles that are still held
func (s *Scope) Len() int {
	return len(s.handles)
}

//Release releases every held handle, last acquired first. It is safe to call more than once.
func (s *Scope) Release() {
	for i := len(s.handles) - 1; i >= 0; i-- {
		s.handles[i].Release()
	}
	s.handles = nil
}
