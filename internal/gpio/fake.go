package gpio

// FakeRelay is a test double that records relay commands.
type FakeRelay struct {
	// States records every value passed to Set, in order.
	States []bool

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, will be returned by Set()
	SetError error
}

// NewFakeRelay creates an idle FakeRelay.
func NewFakeRelay() *FakeRelay {
	return &FakeRelay{}
}

// Set records the commanded state.
func (f *FakeRelay) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.States = append(f.States, on)
	return nil
}

// On returns the last commanded state, false if never commanded.
func (f *FakeRelay) On() bool {
	if len(f.States) == 0 {
		return false
	}
	return f.States[len(f.States)-1]
}

// Close marks the relay as closed.
func (f *FakeRelay) Close() error {
	f.Closed = true
	return nil
}

// FakeMotion is a test double delivering motion events on demand.
type FakeMotion struct {
	ch chan struct{}

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeMotion creates a FakeMotion with a buffered event channel.
func NewFakeMotion() *FakeMotion {
	return &FakeMotion{ch: make(chan struct{}, 8)}
}

// Trigger simulates one PIR detection.
func (f *FakeMotion) Trigger() {
	select {
	case f.ch <- struct{}{}:
	default:
	}
}

// Events returns the event channel.
func (f *FakeMotion) Events() <-chan struct{} { return f.ch }

// Close closes the event channel.
func (f *FakeMotion) Close() error {
	if !f.Closed {
		close(f.ch)
		f.Closed = true
	}
	return nil
}
