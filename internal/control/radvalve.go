package control

import (
	"sync"
	"time"

	"github.com/sweeney/trv-controller/internal/stats"
	"github.com/sweeney/trv-controller/internal/store"
	"github.com/sweeney/trv-controller/internal/valve"
)

// Occupancy is the view of room occupancy the policy needs.
type Occupancy interface {
	IsLikelyOccupied() bool
	IsLikelyUnoccupied() bool
	LongVacant() bool
	LongLongVacant() bool
}

// AmbientLight is the view of room light the policy needs.
type AmbientLight interface {
	IsRoomLit() bool
	IsRoomDark() bool
	DarkMinutes() int
}

// WarmSchedule answers whether a programmed warm period is active or
// imminent at mm minutes after local midnight.
type WarmSchedule interface {
	WarmActiveNow(mm int, ecoBias bool) bool
	WarmStartingSoon(mm int, ecoBias bool) bool
}

// How long after a user mode/target adjustment the policy treats the room
// as deliberately attended and suppresses setbacks.
const recentUIMins = 10

// Dark this long before the room is treated as settled for the night (or
// genuinely unattended) rather than briefly unlit.
const darkForSetbackMins = 10

// DefaultMinReallyOpenPC is the valve position below which most TRV bases
// pass no water; positions under it do not count as calling for heat.
const DefaultMinReallyOpenPC = 10

// RadValve drives one modelled radiator valve: it owns the mode (frost,
// warm, bake), recomputes the target temperature each minute from the
// sensors, schedule and statistics, and ticks the valve model. All methods
// are safe for concurrent use; the per-minute work happens in
// ComputeCallForHeat, called from the control loop.
type RadValve struct {
	mu sync.Mutex

	t     Tunables
	temps *TempControl
	st    store.Store
	occ   Occupancy
	amb   AmbientLight
	sched WarmSchedule
	stats *stats.Stats
	now   func() time.Time

	state *valve.State
	in    valve.InputState

	warmMode       bool
	bakeCountdownM uint8
	uiCountdownM   uint8
	glacial        bool
	maxPCOpen      uint8

	valvePCOpen    uint8
	targetTempC    uint8
	callingForHeat bool
}

// RadValveConfig wires a RadValve's collaborators.
type RadValveConfig struct {
	Tunables    Tunables
	ValveParams valve.Params
	Temps       *TempControl
	Store       store.Store
	Occupancy   Occupancy
	Ambient     AmbientLight
	Schedule    WarmSchedule
	Stats       *stats.Stats
	Now         func() time.Time

	// Glacial forces all opening moves to the slowest rate, eg for homes
	// with fragile plumbing or pay-by-volume heat.
	Glacial bool
	// MaxPCOpen caps valve travel; 0 means fully open allowed.
	MaxPCOpen uint8
}

// NewRadValve returns a RadValve starting in warm mode with the valve shut.
func NewRadValve(cfg RadValveConfig) *RadValve {
	maxPC := cfg.MaxPCOpen
	if maxPC == 0 || maxPC > 100 {
		maxPC = 100
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &RadValve{
		t:         cfg.Tunables,
		temps:     cfg.Temps,
		st:        cfg.Store,
		occ:       cfg.Occupancy,
		amb:       cfg.Ambient,
		sched:     cfg.Schedule,
		stats:     cfg.Stats,
		now:       now,
		state:     valve.NewState(cfg.ValveParams),
		glacial:   cfg.Glacial,
		maxPCOpen: maxPC,
		warmMode:  true,
	}
}

// SetWarmMode switches between frost protection and warm service. Leaving
// warm mode also cancels any bake.
func (rv *RadValve) SetWarmMode(warm bool) {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	rv.warmMode = warm
	if !warm {
		rv.bakeCountdownM = 0
	}
	rv.uiCountdownM = recentUIMins
}

// InWarmMode reports whether warm service is selected.
func (rv *RadValve) InWarmMode() bool {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	return rv.warmMode
}

// StartBake selects warm mode and raises the target for a limited time, for
// quickly warming a just-entered cold room.
func (rv *RadValve) StartBake() {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	rv.warmMode = true
	rv.bakeCountdownM = rv.t.BakeMaxMins
	rv.uiCountdownM = recentUIMins
}

// CancelBake ends any bake in progress without leaving warm mode.
func (rv *RadValve) CancelBake() {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	rv.bakeCountdownM = 0
}

// InBakeMode reports whether a bake is in progress.
func (rv *RadValve) InBakeMode() bool {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	return rv.bakeCountdownM > 0
}

// SetGlacial forces or releases slowest-rate valve movement, eg while the
// supply battery is low.
func (rv *RadValve) SetGlacial(g bool) {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	rv.glacial = g
}

// MarkUserControlUse records a deliberate user adjustment so setbacks are
// held off while someone is clearly attending to the unit.
func (rv *RadValve) MarkUserControlUse() {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	rv.uiCountdownM = recentUIMins
}

func (rv *RadValve) recentUIUse() bool { return rv.uiCountdownM > 0 }

// MinReallyOpenPC returns the persisted really-open threshold, or the
// default when none is stored.
func (rv *RadValve) MinReallyOpenPC() uint8 {
	v := rv.st.ReadByte(store.AddrMinValvePCOpen)
	if v == store.Unset || v < 1 || v > 99 {
		return DefaultMinReallyOpenPC
	}
	return v
}

// SetMinReallyOpenPC persists a new really-open threshold; values outside
// [1,99] reset to the default.
func (rv *RadValve) SetMinReallyOpenPC(pc uint8) {
	if pc < 1 || pc > 99 {
		rv.st.EraseByte(store.AddrMinValvePCOpen)
		return
	}
	rv.st.UpdateByte(store.AddrMinValvePCOpen, pc)
}

// ComputeCallForHeat is the per-minute policy step: run down the bake and
// user-interaction timers, recompute the target temperature from current
// conditions, and tick the valve model with the new reading.
func (rv *RadValve) ComputeCallForHeat(currentTempC16 int16) {
	rv.mu.Lock()
	defer rv.mu.Unlock()

	if !rv.warmMode {
		rv.bakeCountdownM = 0
	} else if rv.bakeCountdownM > 0 {
		rv.bakeCountdownM--
	}
	if rv.uiCountdownM > 0 {
		rv.uiCountdownM--
	}

	rv.computeTargetTemperature(currentTempC16)
	// A bake that has brought the room up to its boosted target has done
	// its job; do not wait out the rest of the countdown.
	if rv.bakeCountdownM > 0 && !rv.callingForHeat {
		rv.bakeCountdownM = 0
	}
	rv.state.Tick(&rv.valvePCOpen, rv.in)
}

// computeTargetTemperature refreshes the target, the valve input snapshot
// and the call-for-heat flag. Caller holds the lock.
func (rv *RadValve) computeTargetTemperature(currentTempC16 int16) {
	target := rv.computeTargetTemp()
	rv.targetTempC = target

	in := valve.InputState{
		TargetTempC: target,
		MinPCOpen:   rv.MinReallyOpenPC(),
		MaxPCOpen:   rv.maxPCOpen,
		Glacial:     rv.glacial,
		InBakeMode:  rv.bakeCountdownM > 0,
		HasEcoBias:  rv.temps.HasEcoBias(),
	}
	// Tolerate a wider temperature band when no one can notice (room dark
	// or long vacant), in frost mode, or while the reading is jittery, to
	// save valve movement and batteries.
	in.WidenDeadband = rv.amb.IsRoomDark() || rv.occ.LongVacant() ||
		!rv.warmMode || rv.state.Filtering()
	in.SetReferenceTemperatures(currentTempC16)
	rv.in = in

	rv.callingForHeat = int16(target) >= (in.RefTempC16 >> 4)
}

// computeTargetTemp derives the working target temperature for the current
// mode, with occupancy, light, schedule and history driven setbacks.
// Caller holds the lock.
func (rv *RadValve) computeTargetTemp() uint8 {
	t := rv.now()
	nowMM := t.Hour()*60 + t.Minute()
	hour := t.Hour()
	ecoBias := rv.temps.HasEcoBias()

	if !rv.warmMode {
		frost := rv.temps.FrostC()
		// Pre-warm ahead of a scheduled warm period even from frost mode,
		// unless the home is vacant or someone just set the mode by hand.
		if !rv.occ.LongVacant() && rv.sched.WarmStartingSoon(nowMM, ecoBias) && !rv.recentUIUse() {
			warm := rv.temps.WarmC()
			if !rv.temps.IsEcoTemperature(warm) {
				setback := rv.t.SetbackDefaultC
				if ecoBias {
					setback = rv.t.SetbackEcoC
				}
				preWarm := maxU8(warm-setback, frost)
				if frost < preWarm {
					return preWarm
				}
			}
		}
		return frost
	}

	if rv.bakeCountdownM > 0 {
		return minU8(rv.temps.WarmC()+rv.t.BakeUpliftC, rv.t.MaxTargetC)
	}

	warm := rv.temps.WarmC()
	longLongVacant := rv.occ.LongLongVacant()
	longVacant := longLongVacant || rv.occ.LongVacant()
	likelyVacantNow := longVacant || rv.occ.IsLikelyUnoccupied()

	// Vacant now and rarely occupied at this hour historically: not worth
	// keeping fully warm.
	notLikelyOccupiedSoon := longLongVacant ||
		(likelyVacantNow && rv.stats.InOutlierQuartile(false, stats.OccPCByHourSmoothed, hour))

	darkAWhile := rv.amb.DarkMinutes() > darkForSetbackMins

	// Set the room back when it has been vacant a long time, or when it
	// looks unattended (unlikely occupied soon, or dark a while) with no
	// schedule active and no recent hands-on use.
	setBack := longVacant ||
		((notLikelyOccupiedSoon || darkAWhile) &&
			!rv.sched.WarmActiveNow(nowMM, ecoBias) && !rv.recentUIUse())
	if !setBack {
		return warm
	}

	// Smallest setback when evidence says people may still want warmth;
	// deepest when the home looks abandoned or the user already chose an
	// eco target.
	var setback uint8
	switch {
	case !ecoBias || rv.occ.IsLikelyOccupied() ||
		(!longLongVacant && rv.amb.IsRoomLit()) ||
		(!longLongVacant && rv.stats.InOutlierQuartile(true, stats.OccPCByHourSmoothed, hour)) ||
		(!longVacant && rv.sched.WarmStartingSoon(nowMM, ecoBias)):
		setback = rv.t.SetbackDefaultC
	case longLongVacant || (notLikelyOccupiedSoon && rv.temps.IsEcoTemperature(warm)):
		setback = rv.t.SetbackFullC
	default:
		setback = rv.t.SetbackEcoC
	}
	return maxU8(warm-setback, rv.temps.FrostC())
}

// TargetTempC returns the current working target, C.
func (rv *RadValve) TargetTempC() uint8 {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	return rv.targetTempC
}

// PercentOpen returns the modelled valve position [0,100].
func (rv *RadValve) PercentOpen() uint8 {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	return rv.valvePCOpen
}

// IsCallingForHeat reports whether the room is at or below target.
func (rv *RadValve) IsCallingForHeat() bool {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	return rv.callingForHeat
}

// IsReallyOpen reports whether the valve is open far enough to pass water
// while the room still wants heat: the signal a co-located boiler hub uses.
func (rv *RadValve) IsReallyOpen() bool {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	return rv.callingForHeat && rv.valvePCOpen >= rv.MinReallyOpenPC()
}

// ValveMoved reports whether the last tick changed the valve position.
func (rv *RadValve) ValveMoved() bool {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	return rv.state.ValveMoved()
}

// CumulativeMovementPC returns total valve travel in percent.
func (rv *RadValve) CumulativeMovementPC() uint16 {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	return rv.state.CumulativeMovementPC()
}

// IsFiltering reports whether the temperature noise filter is engaged.
func (rv *RadValve) IsFiltering() bool {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	return rv.state.Filtering()
}

// ShouldBeWarmedAtHour predicts from stored history whether the room is
// worth pre-warming at hour hh: not in a habitually dark or unoccupied
// hour, and either warm mode was in regular use at that hour or the room
// already tended to be at temperature then.
func (rv *RadValve) ShouldBeWarmedAtHour(hh int) bool {
	if rv.stats.InOutlierQuartile(false, stats.AmbLightByHourSmoothed, hh) {
		return false
	}
	if rv.stats.InOutlierQuartile(false, stats.OccPCByHourSmoothed, hh) {
		return false
	}
	h := rv.stats.WarmHistoryAt(hh)
	if h.IsSet() {
		// Regular use: warm yesterday or a week ago, and at least one
		// more warm day in the window backing it up.
		recent := h.WarmDaysAgo(1) || h.WarmDaysAgo(7)
		if recent && h.WarmDayCount() >= 2 {
			return true
		}
	}
	c := rv.stats.ByHour(stats.TempByHourSmoothed, hh)
	if c != stats.Unset {
		typicalC := (stats.ExpandTempC16(c) + 8) >> 4
		if typicalC >= int16(rv.temps.WarmC()) {
			return true
		}
	}
	return false
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
