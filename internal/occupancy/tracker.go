// Package occupancy estimates room occupancy from weak activity signals
// (lights, PIR, voice, UI touches) as a decaying confidence percentage.
// Marking calls arrive asynchronously (eg from a GPIO edge handler) while the
// per-minute tick runs on the control loop, so all state lives behind a mutex.
package occupancy

import "sync"

// Config holds the tracker timeouts in minutes of assumed occupancy.
type Config struct {
	// TimeoutMins is how long strong evidence keeps the room "occupied".
	// Must be in [25,100] for the confidence scaling to stay in range.
	TimeoutMins uint8
	// WeakTimeoutMins is the (shorter) hold time for weak evidence.
	WeakTimeoutMins uint8
	// LongVacantHours and LongLongVacantHours gate setback depth.
	LongVacantHours     uint16
	LongLongVacantHours uint16
}

// DefaultConfig mirrors the behaviour tuned for domestic rooms.
func DefaultConfig() Config {
	return Config{
		TimeoutMins:         50,
		WeakTimeoutMins:     25,
		LongVacantHours:     24,
		LongLongVacantHours: 72,
	}
}

// Tracker tracks occupancy confidence and vacancy duration.
type Tracker struct {
	mu  sync.Mutex
	cfg Config

	// confidenceShift scales countdown decay to a [0,100] confidence;
	// derived from TimeoutMins.
	confidenceShift uint8

	confidencePC         uint8
	occupationCountdownM uint8
	vacancyM             uint8
	vacancyH             uint16
	activityCountdownM   uint8

	// onActivity, if set, is invoked (outside the lock) on each marking call
	// so the UI can flash an indicator.
	onActivity func()
}

// New returns a Tracker with the given config. Out-of-range timeouts are
// clamped into [25,100] rather than reported.
func New(cfg Config) *Tracker {
	if cfg.TimeoutMins < 25 {
		cfg.TimeoutMins = 25
	}
	if cfg.TimeoutMins > 100 {
		cfg.TimeoutMins = 100
	}
	if cfg.WeakTimeoutMins > cfg.TimeoutMins {
		cfg.WeakTimeoutMins = cfg.TimeoutMins
	}
	var shift uint8
	switch {
	case cfg.TimeoutMins <= 25:
		shift = 2
	case cfg.TimeoutMins <= 50:
		shift = 1
	default:
		shift = 0
	}
	return &Tracker{cfg: cfg, confidenceShift: shift}
}

// SetActivityCallback registers a UI hook invoked on each marking call.
func (t *Tracker) SetActivityCallback(fn func()) {
	t.mu.Lock()
	t.onActivity = fn
	t.mu.Unlock()
}

// MarkAsOccupied records strong evidence of occupancy (eg a PIR trigger),
// resetting the full occupation timeout. Safe to call from any goroutine.
func (t *Tracker) MarkAsOccupied() {
	t.mark(t.cfg.TimeoutMins)
}

// MarkAsPossiblyOccupied records weak evidence of occupancy, such as a light
// coming on. It never shortens an existing countdown. Do not call for
// internally-generated events. Safe to call from any goroutine.
func (t *Tracker) MarkAsPossiblyOccupied() {
	t.mark(t.cfg.WeakTimeoutMins)
}

func (t *Tracker) mark(timeoutM uint8) {
	t.mu.Lock()
	if t.occupationCountdownM < timeoutM {
		t.occupationCountdownM = timeoutM
	}
	t.confidencePC = t.confidenceFor(t.occupationCountdownM)
	t.activityCountdownM = 2
	cb := t.onActivity
	t.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// confidenceFor maps a countdown value to a confidence percent, linearly
// from 100 at a full timeout down to exactly 0 at 0. Caller holds the lock.
func (t *Tracker) confidenceFor(countdownM uint8) uint8 {
	if countdownM == 0 {
		return 0
	}
	elapsed := uint16(t.cfg.TimeoutMins-countdownM) << t.confidenceShift
	if elapsed >= 100 {
		return 0
	}
	return 100 - uint8(elapsed)
}

// Tick advances the tracker by one minute and returns the updated occupancy
// confidence percent. Confidence decays linearly from 100 as the occupation
// countdown runs out and is exactly 0 whenever the countdown is 0; vacancy
// time accrues (saturating) only while the countdown is 0.
func (t *Tracker) Tick() uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.occupationCountdownM > 0 {
		t.occupationCountdownM--
		t.vacancyM = 0
		t.vacancyH = 0
	} else if t.vacancyH < 0xffff {
		t.vacancyM++
		if t.vacancyM >= 60 {
			t.vacancyM = 0
			t.vacancyH++
		}
	}
	if t.activityCountdownM > 0 {
		t.activityCountdownM--
	}
	t.confidencePC = t.confidenceFor(t.occupationCountdownM)
	return t.confidencePC
}

// Confidence returns the occupancy confidence percent from the last tick.
func (t *Tracker) Confidence() uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.confidencePC
}

// IsLikelyOccupied reports whether there is any current occupancy evidence.
func (t *Tracker) IsLikelyOccupied() bool { return t.Confidence() > 0 }

// IsLikelyUnoccupied reports the absence of any current occupancy evidence.
func (t *Tracker) IsLikelyUnoccupied() bool { return !t.IsLikelyOccupied() }

// RecentActivity reports whether a marking call happened in the last couple
// of minutes, eg to suppress duplicate UI flashes.
func (t *Tracker) RecentActivity() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.activityCountdownM > 0
}

// VacancyHours returns whole hours of continuous apparent vacancy.
func (t *Tracker) VacancyHours() uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.vacancyH
}

// LongVacant reports vacancy long enough to allow a deeper setback.
func (t *Tracker) LongVacant() bool {
	return t.VacancyHours() > t.cfg.LongVacantHours
}

// LongLongVacant reports vacancy long enough to allow the deepest setback.
func (t *Tracker) LongLongVacant() bool {
	return t.VacancyHours() > t.cfg.LongLongVacantHours
}
