package mqtt

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// ValveEvents contains all valve events that were published.
	ValveEvents []ValveEvent

	// ValvePayloads contains the JSON payloads for valve events.
	ValvePayloads [][]byte

	// StatsPayloads contains the stats snapshots that were published.
	StatsPayloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by PublishValve and
	// PublishStats.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishValve records the valve event.
func (f *FakePublisher) PublishValve(event ValveEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.ValveEvents = append(f.ValveEvents, event)

	payload, err := FormatValvePayload(event)
	if err != nil {
		return err
	}
	f.ValvePayloads = append(f.ValvePayloads, payload)

	return nil
}

// PublishStats records the stats snapshot.
func (f *FakePublisher) PublishStats(payload []byte) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.StatsPayloads = append(f.StatsPayloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.ValveEvents = nil
	f.ValvePayloads = nil
	f.StatsPayloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
