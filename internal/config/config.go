// Package config loads daemon configuration from the environment, with an
// optional .env file for development setups.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix for all environment variables, eg TRV_BROKER.
const envPrefix = "trv"

// Config is the full daemon configuration. Every field has a usable
// default so a bare environment starts a valve-only unit with fakes where
// hardware paths are not set.
type Config struct {
	Broker      string        `envconfig:"BROKER" default:"tcp://192.168.1.200:1883"`
	HTTPAddr    string        `envconfig:"HTTP_ADDR" default:":8080"`
	StorePath   string        `envconfig:"STORE_PATH" default:"/var/lib/trv-controller/store.bin"`
	TickPeriod  time.Duration `envconfig:"TICK_PERIOD" default:"1m"`
	StatsPeriod time.Duration `envconfig:"STATS_PERIOD" default:"15m"`

	// NodeID overrides the persisted node identity; normally left empty so
	// a generated ID survives in the store.
	NodeID string `envconfig:"NODE_ID"`

	// Hardware. Empty sensor paths fall back to fixed fake readings so the
	// daemon can run on a development host.
	// Pins left at 0 take the gpio package's standard assignments.
	RelayEnabled bool   `envconfig:"RELAY_ENABLED" default:"false"`
	PinRelay     int    `envconfig:"PIN_RELAY"`
	PIREnabled   bool   `envconfig:"PIR_ENABLED" default:"false"`
	PinPIR       int    `envconfig:"PIN_PIR"`
	W1DeviceID   string `envconfig:"W1_DEVICE"`
	LightPath    string `envconfig:"LIGHT_PATH"`
	LightRawFull int    `envconfig:"LIGHT_RAW_FULL" default:"1000"`
	HumidityPath string `envconfig:"HUMIDITY_PATH"`
	VoltagePath  string `envconfig:"VOLTAGE_PATH"`

	// Valve behaviour.
	Glacial    bool  `envconfig:"GLACIAL" default:"false"`
	MaxValvePC uint8 `envconfig:"MAX_VALVE_PC" default:"100"`

	// HubMinOnMins, when nonzero, enables boiler hub mode with the given
	// minimum boiler on-period and persists it to the store.
	HubMinOnMins uint8 `envconfig:"HUB_MIN_ON_MINS" default:"0"`
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present; real environment
// variables win.
func Load() (Config, error) {
	// Ignore a missing .env; it is a development convenience only.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.TickPeriod < time.Second {
		return Config{}, fmt.Errorf("tick period %v too short", cfg.TickPeriod)
	}
	if cfg.MaxValvePC == 0 || cfg.MaxValvePC > 100 {
		cfg.MaxValvePC = 100
	}
	return cfg, nil
}
