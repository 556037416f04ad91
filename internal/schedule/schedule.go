// Package schedule implements a minimal learned on/off heating schedule:
// up to two daily programmes, each a start time from which the room should
// be warm for a fixed period. Programme starts persist across restarts.
package schedule

import (
	"fmt"

	"github.com/sweeney/trv-controller/internal/store"
)

// Granularity of stored start times, minutes. A day is 240 units, so a
// programme start fits one byte with room for the unset marker.
const GranularityM = 6

const minsPerDay = 24 * 60

// MaxPrograms is the number of independently settable daily programmes.
const MaxPrograms = 2

// On periods applied from each programme start. The comfort period is
// longer so that a single button press covers an entire evening.
const (
	LearnedOnPeriodM        = 60
	LearnedOnPeriodComfortM = 120
)

// Schedule reads and writes programme start times in the byte store and
// answers whether any programme calls for warmth now or soon.
type Schedule struct {
	st store.Store

	// PreWarmMins is how far ahead of a programme start the room may begin
	// warming so it is comfortable by the set time.
	PreWarmMins int
}

// New returns a Schedule backed by st.
func New(st store.Store) *Schedule {
	return &Schedule{st: st, PreWarmMins: 30}
}

func addr(program int) uint16 {
	return store.AddrSchedule0 + uint16(program)
}

// Set records a programme start at mm minutes after local midnight, rounded
// down to the schedule granularity.
func (s *Schedule) Set(program, mm int) error {
	if program < 0 || program >= MaxPrograms {
		return fmt.Errorf("schedule: program %d out of range", program)
	}
	if mm < 0 || mm >= minsPerDay {
		return fmt.Errorf("schedule: start %dm out of range", mm)
	}
	s.st.UpdateByte(addr(program), byte(mm/GranularityM))
	return nil
}

// Clear removes a programme.
func (s *Schedule) Clear(program int) error {
	if program < 0 || program >= MaxPrograms {
		return fmt.Errorf("schedule: program %d out of range", program)
	}
	s.st.EraseByte(addr(program))
	return nil
}

// StartMins returns a programme start in minutes after midnight, or ok=false
// if the programme is not set.
func (s *Schedule) StartMins(program int) (mm int, ok bool) {
	if program < 0 || program >= MaxPrograms {
		return 0, false
	}
	v := s.st.ReadByte(addr(program))
	if v == store.Unset || int(v)*GranularityM >= minsPerDay {
		return 0, false
	}
	return int(v) * GranularityM, true
}

// onPeriod returns the warm period in minutes for the current bias.
func onPeriod(ecoBias bool) int {
	if ecoBias {
		return LearnedOnPeriodM
	}
	return LearnedOnPeriodComfortM
}

// WarmActiveNow reports whether any programme wants the room warm at mm
// minutes after midnight. Periods wrap across midnight.
func (s *Schedule) WarmActiveNow(mm int, ecoBias bool) bool {
	period := onPeriod(ecoBias)
	for p := 0; p < MaxPrograms; p++ {
		start, ok := s.StartMins(p)
		if !ok {
			continue
		}
		if sinceStart(mm, start) < period {
			return true
		}
	}
	return false
}

// WarmStartingSoon reports whether any programme start falls within the
// pre-warm window after mm, allowing the room to be brought up to
// temperature in advance. A programme already active does not count.
func (s *Schedule) WarmStartingSoon(mm int, ecoBias bool) bool {
	if s.WarmActiveNow(mm, ecoBias) {
		return false
	}
	for p := 0; p < MaxPrograms; p++ {
		start, ok := s.StartMins(p)
		if !ok {
			continue
		}
		until := sinceStart(start, mm)
		if until > 0 && until <= s.PreWarmMins {
			return true
		}
	}
	return false
}

// sinceStart returns minutes from start forward to mm, wrapping at midnight.
func sinceStart(mm, start int) int {
	d := mm - start
	if d < 0 {
		d += minsPerDay
	}
	return d
}
