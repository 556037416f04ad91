// Package valve models the position of a radiator valve as a percentage open.
// It contains pure control logic with no I/O: given a target temperature, a
// (possibly noise-filtered) reference temperature and retained hysteresis
// state, each per-minute tick produces the next valve position. The
// controller is always willing to turn off quickly but turns on slowly
// ("slow start"), and works to eliminate hunting, which makes noise and
// wastes actuator energy.
package valve

// refTempOffsetC16 shifts the point at which the radiator is fully off from
// (target+1)C down to (target+0.5)C, ie the middle of the target degree,
// which matches user intuition and saves a little energy.
const refTempOffsetC16 = 8

// filterLength is the number of raw per-minute samples retained for the
// noise filter.
const filterLength = 16

// maxTempJumpC16 is the largest step between adjacent raw readings before
// filtering is forced on. Must be at least the sensor precision to avoid
// false triggering; too large fails to damp oscillation.
const maxTempJumpC16 = 3

// Params holds the valve movement tuning. Exact values are deployment
// configuration; see DefaultParams for the stock tuning.
type Params struct {
	// MinSlewPC is the minimum movement (deadband) in the proportional
	// band; keeping it above the temperature sensor step avoids hunting
	// from single-ulp noise.
	MinSlewPC uint8
	// MaxSlewPCPerMin is the normal slew limit close to target. Small
	// values reduce noise, overshoot and water surges.
	MaxSlewPCPerMin uint8
	// FastSlewPCPerMin is the limit when well away from target.
	FastSlewPCPerMin uint8
	// ModeratelyOpenPC is the position above which most valves already
	// deliver significant flow.
	ModeratelyOpenPC uint8
	// MaxRunOnTimeM bounds the slow "lingering" final close before the
	// remainder is shut in one burst.
	MaxRunOnTimeM uint8
	// RecloseDelayM/ReopenDelayM are the hysteresis windows applied after
	// an opening/closing move to suppress reversal ("hunting").
	RecloseDelayM uint8
	ReopenDelayM  uint8
	// SetbackFullC and MinTargetC bound the "not massively below target"
	// test used when deciding to creep glacially under a wide deadband.
	SetbackFullC uint8
	MinTargetC   uint8
}

// DefaultParams returns the stock tuning.
func DefaultParams() Params {
	return Params{
		MinSlewPC:        7,
		MaxSlewPCPerMin:  5,
		FastSlewPCPerMin: 10,
		ModeratelyOpenPC: 34,
		MaxRunOnTimeM:    5,
		RecloseDelayM:    5,
		ReopenDelayM:     10,
		SetbackFullC:     4,
		MinTargetC:       5,
	}
}

// InputState is the per-tick snapshot consumed by the state machine.
// It is recomputed in full before every tick and never persisted.
type InputState struct {
	TargetTempC uint8
	// RefTempC16 is the current temperature in 1/16C, already offset to
	// centre the proportional band on the target degree; see
	// SetReferenceTemperatures.
	RefTempC16 int16
	// MinPCOpen is the minimum percentage considered really open, and the
	// floor of the proportional band.
	MinPCOpen uint8
	// MaxPCOpen caps how far the valve may open, eg for pay-by-volume
	// heat systems.
	MaxPCOpen     uint8
	Glacial       bool
	InBakeMode    bool
	HasEcoBias    bool
	WidenDeadband bool
}

// SetReferenceTemperatures derives the reference temperature from the raw
// reading, pushing the regulation point down by 0.5C to the middle of the
// target degree.
func (in *InputState) SetReferenceTemperatures(currentTempC16 int16) {
	in.RefTempC16 = currentTempC16 + refTempOffsetC16
}

// State is the retained (between ticks) part of the valve model: the raw
// temperature history for the noise filter, the anti-hunting countdown
// timers, and movement diagnostics. It is owned exclusively by the control
// loop; readers elsewhere see only the valve percentage.
type State struct {
	p Params

	prevRawTempC16 [filterLength]int16
	initialised    bool
	filtering      bool

	// While nonzero, suppress moves in the named direction.
	dontTurnupM   uint8
	dontTurndownM uint8

	cumulativeMovementPC uint16
	valveMoved           bool
}

// NewState returns a State with uninitialised filter history; the first tick
// fills the whole history with the first raw reading so a cold start cannot
// falsely trigger the filter.
func NewState(p Params) *State {
	return &State{p: p}
}

// SmoothedRecent returns the mean of the retained raw samples, rounded.
func (s *State) SmoothedRecent() int16 {
	var sum int32
	for _, v := range s.prevRawTempC16 {
		sum += int32(v)
	}
	return int16((sum + filterLength/2) / filterLength)
}

// RawDelta returns the most recent single-tick raw temperature change.
func (s *State) RawDelta() int16 {
	return s.prevRawTempC16[0] - s.prevRawTempC16[1]
}

// Filtering reports whether the noise filter is currently engaged.
func (s *State) Filtering() bool { return s.filtering }

// ValveMoved reports whether the last tick changed the valve position; used
// to trigger transmission of a fresh valve command.
func (s *State) ValveMoved() bool { return s.valveMoved }

// CumulativeMovementPC returns total percent of valve travel so far, an
// (eventually wrapping) proxy for actuator wear and battery use.
func (s *State) CumulativeMovementPC() uint16 { return s.cumulativeMovementPC }

func (s *State) dontTurnup() bool   { return s.dontTurnupM > 0 }
func (s *State) dontTurndown() bool { return s.dontTurndownM > 0 }

// valveTurnup: after an opening move, defer any reclosing.
func (s *State) valveTurnup() { s.dontTurndownM = s.p.RecloseDelayM }

// valveTurndown: after a closing move, defer any reopening.
func (s *State) valveTurndown() { s.dontTurnupM = s.p.ReopenDelayM }

// Tick performs the per-minute update: shifts the raw temperature history,
// engages/releases the noise filter, runs down the hysteresis timers,
// recomputes the valve position and records movement. valvePCOpen is updated
// in place and always remains in [0,100].
func (s *State) Tick(valvePCOpen *uint8, in InputState) {
	rawTempC16 := in.RefTempC16 - refTempOffsetC16
	if !s.initialised {
		for i := range s.prevRawTempC16 {
			s.prevRawTempC16[i] = rawTempC16
		}
		s.initialised = true
	}

	for i := filterLength - 1; i > 0; i-- {
		s.prevRawTempC16[i] = s.prevRawTempC16[i-1]
	}
	s.prevRawTempC16[0] = rawTempC16

	// Allow exit from filtering only once the raw value is close enough to
	// the smoothed one that reverting will not itself cause a jump.
	if s.filtering {
		if abs16(s.SmoothedRecent()-rawTempC16) <= maxTempJumpC16 {
			s.filtering = false
		}
	}
	if !s.filtering {
		for i := 1; i < filterLength; i++ {
			if abs16(s.prevRawTempC16[i]-s.prevRawTempC16[i-1]) > maxTempJumpC16 {
				s.filtering = true
				break
			}
		}
	}

	if s.dontTurndownM > 0 {
		s.dontTurndownM--
	}
	if s.dontTurnupM > 0 {
		s.dontTurnupM--
	}

	newPC := s.ComputeRequiredPercentOpen(*valvePCOpen, in)
	changed := newPC != *valvePCOpen
	if changed {
		if newPC > *valvePCOpen {
			s.valveTurnup()
			s.cumulativeMovementPC += uint16(newPC - *valvePCOpen)
		} else {
			s.valveTurndown()
			s.cumulativeMovementPC += uint16(*valvePCOpen - newPC)
		}
		*valvePCOpen = newPC
	}
	s.valveMoved = changed
}

// ComputeRequiredPercentOpen computes the optimal valve position [0,100]
// from the supplied input state and current position. It uses no state other
// than its arguments and the retained hysteresis/filter fields, making it
// directly testable. Normally invoked via Tick, which performs the required
// per-minute state updates around it.
func (s *State) ComputeRequiredPercentOpen(valvePCOpen uint8, in InputState) uint8 {
	// Substitute the smoothed temperature while the filter is engaged.
	adjustedTempC16 := in.RefTempC16
	if s.filtering {
		adjustedTempC16 = s.SmoothedRecent() + refTempOffsetC16
	}
	adjustedTempC := adjustedTempC16 >> 4
	target := int16(in.TargetTempC)

	// (Well) under target: open up.
	if adjustedTempC < target {
		if valvePCOpen >= in.MaxPCOpen {
			return in.MaxPCOpen
		}
		// BAKE mode slams open to maximum for fast response; the mode is
		// already debounced so cycling through modes cannot cause this.
		if in.InBakeMode {
			return in.MaxPCOpen
		}
		if s.dontTurnup() {
			return valvePCOpen
		}
		// Go glacially when nobody is likely to care about reaching target
		// quickly: explicit request, or already delivering significant flow
		// under a widened deadband with an eco bias and not massively below
		// target, or the filter is engaged with the raw trend still rising.
		beGlacial := in.Glacial ||
			((valvePCOpen >= in.MinPCOpen) &&
				((in.WidenDeadband && in.HasEcoBias &&
					adjustedTempC >= max16(target-int16(s.p.SetbackFullC), int16(s.p.MinTargetC))) ||
					(s.filtering && s.RawDelta() > 0)))
		if beGlacial {
			return valvePCOpen + 1
		}
		// Open fast from cold for acceptable response; less fast once
		// moderately open or within the degree below target.
		slewRate := s.p.FastSlewPCPerMin
		if valvePCOpen >= s.p.ModeratelyOpenPC || adjustedTempC == target-1 {
			slewRate = s.p.MaxSlewPCPerMin
		}
		minOpenFromCold := maxU8(slewRate, in.MinPCOpen)
		if valvePCOpen < minOpenFromCold {
			return minOpenFromCold
		}
		return minU8(valvePCOpen+slewRate, in.MaxPCOpen)
	}

	// (Well) over target: close down.
	if adjustedTempC > target {
		if valvePCOpen == 0 {
			return 0
		}
		if s.dontTurndown() {
			return valvePCOpen
		}
		justOverTemp := adjustedTempC == target+1
		// Hold position when the error is small and falling under a
		// widened deadband, to minimise movement.
		if justOverTemp && in.WidenDeadband && s.RawDelta() < 0 {
			return valvePCOpen
		}
		// Glacial close when jittery and not far above target.
		if justOverTemp && s.filtering {
			return valvePCOpen - 1
		}
		minReallyOpen := in.MinPCOpen
		var lingerThreshold uint8
		if minReallyOpen > 0 {
			lingerThreshold = minReallyOpen - 1
		}
		// Below the really-open floor: linger, turning down as slowly as
		// possible to help systems with poor bypass and let the boiler
		// cool, then shut the rest in one burst once the run-on budget is
		// spent to avoid valve hiss.
		if valvePCOpen < minReallyOpen {
			if s.p.MaxRunOnTimeM < minReallyOpen && valvePCOpen < minReallyOpen-s.p.MaxRunOnTimeM {
				return 0
			}
			return valvePCOpen - 1
		}
		// With a comfort bias, or a small or jittery error, close only at
		// the fast rate to limit wasted effort from minor overshoot.
		fastFloor := constrainU8(int(lingerThreshold)+int(s.p.FastSlewPCPerMin),
			int(s.p.FastSlewPCPerMin), int(in.MaxPCOpen))
		if (!in.HasEcoBias || justOverTemp || s.filtering) && valvePCOpen > fastFloor {
			return valvePCOpen - s.p.FastSlewPCPerMin
		}
		// Else drop to (nearly) off immediately: low enough to stop
		// calling for heat at once.
		return lingerThreshold
	}

	// In the target degree: proportional control. The fraction of the degree
	// maps to a position, valve nearly shut just below the top of the degree.
	lsbits := uint8(adjustedTempC16 & 0xf)
	const ulpStep = 6
	targetPORaw := (16 - lsbits) * ulpStep // Nominal range 6..96.
	targetPO := constrainU8(int(targetPORaw), int(in.MinPCOpen), int(in.MaxPCOpen))
	if targetPO == valvePCOpen {
		return valvePCOpen
	}

	// The minimum adjustment allowed (deadband), widened on request; also
	// never below one temperature ulp's worth of travel.
	const realMinUlp = 1 + ulpStep
	var minAbsSlew uint8
	if in.WidenDeadband {
		wide := minU8(s.p.ModeratelyOpenPC/2, maxU8(s.p.MaxSlewPCPerMin, 2*s.p.MinSlewPC))
		minAbsSlew = maxU8(realMinUlp, maxU8(wide, 2+s.p.MinSlewPC))
	} else {
		minAbsSlew = maxU8(realMinUlp, s.p.MinSlewPC)
	}

	if targetPO < valvePCOpen {
		// Slightly too open.
		slew := valvePCOpen - targetPO
		if slew < minAbsSlew {
			return valvePCOpen
		}
		if s.dontTurndown() {
			return valvePCOpen
		}
		// The target is the top of the proportional band, so nothing within
		// it requires the temperature to be forced down: if the raw trend is
		// not rising, hold position.
		if s.RawDelta() <= 0 {
			return valvePCOpen
		}
		beGlacial := in.Glacial ||
			((in.WidenDeadband || s.filtering) && valvePCOpen <= s.p.ModeratelyOpenPC) ||
			lsbits < 8
		if beGlacial {
			return valvePCOpen - 1
		}
		if slew > s.p.FastSlewPCPerMin {
			return valvePCOpen - s.p.FastSlewPCPerMin
		}
		return targetPO
	}

	// Slightly too closed.
	if in.InBakeMode {
		return in.MaxPCOpen
	}
	slew := targetPO - valvePCOpen
	if slew < minAbsSlew {
		return valvePCOpen
	}
	if s.dontTurnup() {
		return valvePCOpen
	}
	// Minimise movement: if raw temperatures are rising, or we are already
	// fairly near the top of the degree, leave the valve as-is.
	if s.RawDelta() > 0 {
		return valvePCOpen
	}
	holdAbove := uint8(12)
	if in.WidenDeadband {
		holdAbove = 8
	}
	if lsbits >= holdAbove {
		return valvePCOpen
	}
	beGlacial := in.Glacial || in.WidenDeadband ||
		lsbits >= 8 || (lsbits >= 4 && valvePCOpen >= s.p.ModeratelyOpenPC)
	if beGlacial {
		return valvePCOpen + 1
	}
	// Open faster with a comfort bias.
	maxSlew := s.p.MaxSlewPCPerMin
	if !in.HasEcoBias {
		maxSlew = s.p.FastSlewPCPerMin
	}
	if slew > maxSlew {
		return valvePCOpen + maxSlew
	}
	return targetPO
}

func abs16(v int16) int16 {
	if v < 0 {
		return -v
	}
	return v
}

func max16(a, b int16) int16 {
	if a > b {
		return a
	}
	return b
}

func maxU8(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}

func minU8(a, b uint8) uint8 {
	if a < b {
		return a
	}
	return b
}

func constrainU8(v, lo, hi int) uint8 {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return uint8(v)
}
