// Package gpio provides hardware I/O with hardware abstraction:
// a boiler relay output and a PIR motion input.
// The real implementation uses Linux GPIO character device.
// The fake implementations allow testing without hardware.
package gpio

// Relay drives the boiler call-for-heat relay.
type Relay interface {
	// Set energises (true) or releases (false) the relay.
	Set(on bool) error

	// Close releases the relay (boiler off) and frees GPIO resources.
	Close() error
}

// Motion delivers PIR motion detections.
type Motion interface {
	// Events returns a channel receiving a value per motion detection.
	// The channel is closed by Close.
	Events() <-chan struct{}

	// Close stops event delivery and releases GPIO resources.
	Close() error
}

// Standard pin assignments (BCM numbering), used when no pin is configured.
const (
	PinBoilerRelay = 26 // Boiler call-for-heat relay
	PinPIR         = 16 // PIR motion detector
)
