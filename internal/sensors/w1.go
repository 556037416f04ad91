package sensors

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// W1Temperature reads a DS18B20 (or compatible) 1-wire sensor via the
// kernel w1 sysfs interface.
type W1Temperature struct {
	path string
}

// NewW1Temperature finds the first 28-* family device under the w1 sysfs
// root, or opens the given device ID directly if non-empty.
func NewW1Temperature(deviceID string) (*W1Temperature, error) {
	const root = "/sys/bus/w1/devices"
	if deviceID != "" {
		p := filepath.Join(root, deviceID, "w1_slave")
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("w1 device %s: %w", deviceID, err)
		}
		return &W1Temperature{path: p}, nil
	}
	matches, err := filepath.Glob(filepath.Join(root, "28-*", "w1_slave"))
	if err != nil || len(matches) == 0 {
		return nil, fmt.Errorf("no w1 temperature device found under %s", root)
	}
	return &W1Temperature{path: matches[0]}, nil
}

// ReadTempC16 reads and parses the w1_slave file. The kernel reports
// milli-Celsius after "t="; a failed CRC shows as "NO" in the first line.
func (w *W1Temperature) ReadTempC16() (int16, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", w.path, err)
	}
	text := string(data)
	if strings.Contains(text, "NO") {
		return 0, fmt.Errorf("w1 crc failure")
	}
	i := strings.LastIndex(text, "t=")
	if i < 0 {
		return 0, fmt.Errorf("w1 output missing t= field")
	}
	milliC, err := strconv.Atoi(strings.TrimSpace(text[i+2:]))
	if err != nil {
		return 0, fmt.Errorf("parse w1 temperature: %w", err)
	}
	// Round to the nearest 1/16 C.
	c16 := (milliC*16 + 500) / 1000
	if milliC < 0 {
		c16 = (milliC*16 - 500) / 1000
	}
	return int16(c16), nil
}

// Close is a no-op; the sysfs file is opened per read.
func (w *W1Temperature) Close() error { return nil }

// FakeTemperature returns scripted temperature readings for tests.
// Exhausted scripts repeat the last value.
type FakeTemperature struct {
	Samples []int16
	Err     error
	index   int
}

// ReadTempC16 returns the next scripted reading.
func (f *FakeTemperature) ReadTempC16() (int16, error) {
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

// Close is a no-op.
func (f *FakeTemperature) Close() error { return nil }
