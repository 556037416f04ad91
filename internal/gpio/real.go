//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealRelay drives the boiler relay using the Linux GPIO character device.
type RealRelay struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealRelay claims the relay pin as an output, initially off.
func NewRealRelay(pin int) (*RealRelay, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request relay pin %d: %w", pin, err)
	}

	return &RealRelay{chip: chip, line: line}, nil
}

// Set energises or releases the relay.
func (r *RealRelay) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := r.line.SetValue(v); err != nil {
		return fmt.Errorf("set relay: %w", err)
	}
	return nil
}

// Close releases the relay and GPIO resources.
// The pin is reconfigured to input with pull-down (matching Pi boot
// defaults) so the boiler is off and stays off across restarts.
func (r *RealRelay) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("release relay: %w", err))
		}
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure relay pin: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close relay pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealMotion delivers PIR rising-edge events using the Linux GPIO
// character device.
type RealMotion struct {
	chip   *gpiocdev.Chip
	line   *gpiocdev.Line
	events chan struct{}
}

// NewRealMotion claims the PIR pin as an input with rising-edge events.
func NewRealMotion(pin int) (*RealMotion, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	m := &RealMotion{chip: chip, events: make(chan struct{}, 8)}

	// Pull-down holds the line low between detections; most PIR boards
	// drive the line high on motion.
	line, err := chip.RequestLine(pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(m.handle))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request PIR pin %d: %w", pin, err)
	}
	m.line = line

	return m, nil
}

func (m *RealMotion) handle(evt gpiocdev.LineEvent) {
	// Drop events rather than block the kernel event goroutine.
	select {
	case m.events <- struct{}{}:
	default:
	}
}

// Events returns the motion event channel.
func (m *RealMotion) Events() <-chan struct{} { return m.events }

// Close stops event delivery and releases GPIO resources.
func (m *RealMotion) Close() error {
	var errs []error

	if m.line != nil {
		if err := m.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close PIR pin: %w", err))
		}
	}
	if m.chip != nil {
		if err := m.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	close(m.events)

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
