package sensors

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Lit/dark thresholds with hysteresis so the room state does not flap at
// twilight levels.
const (
	DefaultLitThreshold  byte = 50
	DefaultDarkThreshold byte = 30
)

// Cap on the dark-minutes counter, a week.
const maxDarkMins = 7 * 24 * 60

// LightTracker samples a LightSensor once per minute and derives the
// lit/dark room state and how long the room has been continuously dark.
// Safe for concurrent use.
type LightTracker struct {
	mu sync.Mutex

	sensor        LightSensor
	litThreshold  byte
	darkThreshold byte

	level    byte
	lit      bool
	darkMins int
}

// NewLightTracker returns a tracker with default thresholds, initially
// treating the room as lit so a restart does not trigger setbacks.
func NewLightTracker(sensor LightSensor) *LightTracker {
	return &LightTracker{
		sensor:        sensor,
		litThreshold:  DefaultLitThreshold,
		darkThreshold: DefaultDarkThreshold,
		level:         DefaultLitThreshold,
		lit:           true,
	}
}

// Tick takes one reading and updates the lit/dark state. Called once per
// minute; a read failure leaves the previous state in place.
func (t *LightTracker) Tick() error {
	v, err := t.sensor.ReadLight()
	if err != nil {
		return fmt.Errorf("ambient light: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.level = v
	if t.lit {
		if v < t.darkThreshold {
			t.lit = false
		}
	} else if v >= t.litThreshold {
		t.lit = true
	}
	if t.lit {
		t.darkMins = 0
	} else if t.darkMins < maxDarkMins {
		t.darkMins++
	}
	return nil
}

// Level returns the last light reading [0,254].
func (t *LightTracker) Level() byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.level
}

// IsRoomLit reports whether the room is currently lit.
func (t *LightTracker) IsRoomLit() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lit
}

// IsRoomDark reports whether the room is currently dark.
func (t *LightTracker) IsRoomDark() bool { return !t.IsRoomLit() }

// DarkMinutes returns how long the room has been continuously dark.
func (t *LightTracker) DarkMinutes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.darkMins
}

// IIOLight reads an ambient light channel from the Linux industrial I/O
// sysfs interface (eg a TSL2561 or similar breakout), scaling raw values
// to [0,254].
type IIOLight struct {
	path    string
	rawFull int
}

// NewIIOLight opens the given in_illuminance sysfs file; rawFull is the raw
// reading treated as full brightness.
func NewIIOLight(path string, rawFull int) (*IIOLight, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("iio light %s: %w", path, err)
	}
	if rawFull <= 0 {
		rawFull = 1000
	}
	return &IIOLight{path: path, rawFull: rawFull}, nil
}

// ReadLight returns the scaled light level.
func (l *IIOLight) ReadLight() (byte, error) {
	raw, err := readSysfsInt(l.path)
	if err != nil {
		return 0, err
	}
	scaled := raw * 254 / l.rawFull
	if scaled > 254 {
		scaled = 254
	}
	if scaled < 0 {
		scaled = 0
	}
	return byte(scaled), nil
}

// FakeLight returns scripted light readings for tests.
type FakeLight struct {
	Samples []byte
	Err     error
	index   int
}

// ReadLight returns the next scripted reading, repeating the last.
func (f *FakeLight) ReadLight() (byte, error) {
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

func readSysfsInt(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}
