// Package sensors provides the environment inputs for the control loop:
// room temperature, ambient light, relative humidity and supply voltage.
// Real implementations read Linux sysfs devices; fakes allow testing and
// running on hosts without the hardware.
package sensors

// TemperatureSensor reads room temperature in 1/16ths of a Celsius degree.
type TemperatureSensor interface {
	// ReadTempC16 returns the current temperature in 1/16 C.
	ReadTempC16() (int16, error)

	// Close releases sensor resources.
	Close() error
}

// LightSensor reads ambient light level.
type LightSensor interface {
	// ReadLight returns the normalised light level [0,254],
	// 0 fully dark.
	ReadLight() (byte, error)
}

// HumiditySensor reads relative humidity.
type HumiditySensor interface {
	// ReadRHPC returns relative humidity percent [0,100].
	ReadRHPC() (byte, error)
}

// VoltageSensor reads the supply/battery voltage.
type VoltageSensor interface {
	// ReadMillivolts returns the supply voltage in mV.
	ReadMillivolts() (int, error)
}
