package sensors

import "fmt"

// Supply voltage below this is treated as low, prompting extra energy
// conservation (glacial valve movement, reduced transmissions).
const LowSupplyMV = 2000

// IIOVoltage reads supply voltage from a Linux IIO sysfs ADC channel
// reporting millivolts.
type IIOVoltage struct {
	path string
}

// NewIIOVoltage opens the given in_voltage sysfs file.
func NewIIOVoltage(path string) (*IIOVoltage, error) {
	if _, err := readSysfsInt(path); err != nil {
		return nil, err
	}
	return &IIOVoltage{path: path}, nil
}

// ReadMillivolts returns the supply voltage in mV.
func (v *IIOVoltage) ReadMillivolts() (int, error) {
	return readSysfsInt(v.path)
}

// IsLow reports whether the sensor reading is below the low threshold.
// Read failures report false so a flaky ADC does not force eco behaviour.
func IsLow(s VoltageSensor) bool {
	if s == nil {
		return false
	}
	mv, err := s.ReadMillivolts()
	if err != nil {
		return false
	}
	return mv < LowSupplyMV
}

// FakeVoltage returns a fixed supply reading for tests.
type FakeVoltage struct {
	MV  int
	Err error
}

// ReadMillivolts returns the configured reading.
func (f *FakeVoltage) ReadMillivolts() (int, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	if f.MV == 0 {
		return 0, fmt.Errorf("no voltage configured")
	}
	return f.MV, nil
}
