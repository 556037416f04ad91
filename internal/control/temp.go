// Package control holds the top-level heating policy: settable FROST/WARM
// target temperatures, the per-minute target computation with occupancy and
// light driven setbacks, and the radiator valve orchestration that ties the
// sensors, statistics and modelled valve together.
package control

import (
	"fmt"

	"github.com/sweeney/trv-controller/internal/store"
)

// Tunables collects the temperature policy constants. They are deployment
// configuration rather than code so one binary serves different households.
type Tunables struct {
	// Absolute bounds for any settable or computed target, C.
	MinTargetC uint8
	MaxTargetC uint8

	// Defaults applied when the store holds no saved value.
	DefaultFrostC uint8
	DefaultWarmC  uint8

	// BAKE raises the target this far above WARM, capped at MaxTargetC,
	// for at most BakeMaxMins minutes.
	BakeUpliftC uint8
	BakeMaxMins uint8

	// Setback tiers subtracted from the WARM target when the room can
	// tolerate being cooler, floored at the FROST target.
	SetbackDefaultC uint8
	SetbackEcoC     uint8
	SetbackFullC    uint8

	// WARM settings at or below BiasEcoC are treated as eco choices, at or
	// above BiasComfortC as comfort choices; at or below ScaleMidC the
	// whole unit runs with an eco bias.
	BiasEcoC     uint8
	BiasComfortC uint8
	ScaleMidC    uint8
}

// DefaultTunables returns the stock policy tuning.
func DefaultTunables() Tunables {
	return Tunables{
		MinTargetC:      5,
		MaxTargetC:      35,
		DefaultFrostC:   6,
		DefaultWarmC:    18,
		BakeUpliftC:     5,
		BakeMaxMins:     30,
		SetbackDefaultC: 1,
		SetbackEcoC:     2,
		SetbackFullC:    4,
		BiasEcoC:        17,
		BiasComfortC:    21,
		ScaleMidC:       19,
	}
}

// TempControl manages the persisted FROST and WARM target temperatures.
type TempControl struct {
	t  Tunables
	st store.Store
}

// NewTempControl returns a TempControl over st with tuning t.
func NewTempControl(t Tunables, st store.Store) *TempControl {
	return &TempControl{t: t, st: st}
}

// FrostC returns the frost-protection target, falling back to the default
// when nothing valid is stored.
func (tc *TempControl) FrostC() uint8 {
	return tc.load(store.AddrFrostC, tc.t.DefaultFrostC)
}

// WarmC returns the comfort target, falling back to the default when
// nothing valid is stored.
func (tc *TempControl) WarmC() uint8 {
	return tc.load(store.AddrWarmC, tc.t.DefaultWarmC)
}

func (tc *TempControl) load(addr uint16, def uint8) uint8 {
	v := tc.st.ReadByte(addr)
	if v == store.Unset || v < tc.t.MinTargetC || v > tc.t.MaxTargetC {
		return def
	}
	return v
}

// SetFrostC persists a new frost-protection target. It must not exceed the
// current WARM target.
func (tc *TempControl) SetFrostC(c uint8) error {
	if c > tc.WarmC() {
		return fmt.Errorf("control: frost %dC above warm %dC", c, tc.WarmC())
	}
	return tc.save(store.AddrFrostC, c)
}

// SetWarmC persists a new comfort target. It must not fall below the current
// FROST target.
func (tc *TempControl) SetWarmC(c uint8) error {
	if c < tc.FrostC() {
		return fmt.Errorf("control: warm %dC below frost %dC", c, tc.FrostC())
	}
	return tc.save(store.AddrWarmC, c)
}

func (tc *TempControl) save(addr uint16, c uint8) error {
	if c < tc.t.MinTargetC || c > tc.t.MaxTargetC {
		return fmt.Errorf("control: target %dC outside [%d,%d]", c, tc.t.MinTargetC, tc.t.MaxTargetC)
	}
	tc.st.UpdateByte(addr, c)
	return nil
}

// IsEcoTemperature reports whether tempC is an energy-conscious WARM choice.
func (tc *TempControl) IsEcoTemperature(tempC uint8) bool {
	return tempC <= tc.t.BiasEcoC
}

// IsComfortTemperature reports whether tempC is a comfort-first WARM choice.
func (tc *TempControl) IsComfortTemperature(tempC uint8) bool {
	return tempC >= tc.t.BiasComfortC
}

// HasEcoBias reports whether the unit should lean towards saving energy in
// ambiguous situations, derived from the user's WARM setting.
func (tc *TempControl) HasEcoBias() bool {
	return tc.WarmC() <= tc.t.ScaleMidC
}
