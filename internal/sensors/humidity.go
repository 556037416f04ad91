package sensors

import (
	"fmt"
	"sync"
)

// High-humidity thresholds with hysteresis; sustained RH above the set
// point suggests drying laundry or an unventilated room worth a little
// extra warmth.
const (
	RHHighPC  byte = 90
	RHClearPC byte = 80
)

// HumidityTracker samples a HumiditySensor and derives a debounced
// high-humidity flag. Safe for concurrent use.
type HumidityTracker struct {
	mu sync.Mutex

	sensor HumiditySensor
	rhPC   byte
	high   bool
	valid  bool
}

// NewHumidityTracker returns a tracker over sensor; nil sensor is allowed
// and reports no humidity available.
func NewHumidityTracker(sensor HumiditySensor) *HumidityTracker {
	return &HumidityTracker{sensor: sensor}
}

// Available reports whether a humidity sensor is fitted.
func (t *HumidityTracker) Available() bool { return t != nil && t.sensor != nil }

// Tick takes one reading. A read failure keeps the previous value but
// marks it stale.
func (t *HumidityTracker) Tick() error {
	if !t.Available() {
		return nil
	}
	v, err := t.sensor.ReadRHPC()
	if err != nil {
		t.mu.Lock()
		t.valid = false
		t.mu.Unlock()
		return fmt.Errorf("humidity: %w", err)
	}
	if v > 100 {
		v = 100
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rhPC = v
	t.valid = true
	if t.high {
		if v < RHClearPC {
			t.high = false
		}
	} else if v >= RHHighPC {
		t.high = true
	}
	return nil
}

// RHPC returns the last humidity percent and whether it is current.
func (t *HumidityTracker) RHPC() (byte, bool) {
	if !t.Available() {
		return 0, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rhPC, t.valid
}

// IsHighWithHyst reports whether humidity is high, with hysteresis.
func (t *HumidityTracker) IsHighWithHyst() bool {
	if !t.Available() {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.high
}

// IIOHumidity reads relative humidity from a Linux IIO sysfs channel
// (eg an SHT3x or HTU21D breakout) reporting milli-percent.
type IIOHumidity struct {
	path string
}

// NewIIOHumidity opens the given in_humidityrelative sysfs file.
func NewIIOHumidity(path string) (*IIOHumidity, error) {
	if _, err := readSysfsInt(path); err != nil {
		return nil, err
	}
	return &IIOHumidity{path: path}, nil
}

// ReadRHPC returns relative humidity percent.
func (h *IIOHumidity) ReadRHPC() (byte, error) {
	raw, err := readSysfsInt(h.path)
	if err != nil {
		return 0, err
	}
	pc := raw / 1000
	if pc > 100 {
		pc = 100
	}
	if pc < 0 {
		pc = 0
	}
	return byte(pc), nil
}

// FakeHumidity returns scripted humidity readings for tests.
type FakeHumidity struct {
	Samples []byte
	Err     error
	index   int
}

// ReadRHPC returns the next scripted reading, repeating the last.
func (f *FakeHumidity) ReadRHPC() (byte, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	if len(f.Samples) == 0 {
		return 0, fmt.Errorf("no samples configured")
	}
	v := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return v, nil
}
