// Package stats maintains per-hour-of-day statistics used for adaptive
// setback and predictive warming: for each tracked metric a "last" value and
// an exponentially-smoothed value per hour, each a single byte in the
// persistent store, plus a 7-day WARM-mode history per hour.
package stats

import (
	"math/rand"

	"github.com/sweeney/trv-controller/internal/store"
)

// Unset marks a hole in a stats series.
const Unset byte = store.Unset

// Set identifies one 24-byte per-hour series in the store.
// Each "last" set is immediately followed by its smoothed companion,
// mirroring the persisted layout.
type Set uint8

const (
	TempByHour Set = iota // Compressed temperature (see CompressTempC16).
	TempByHourSmoothed
	AmbLightByHour // Ambient light level [0,254].
	AmbLightByHourSmoothed
	OccPCByHour // Occupancy confidence percent [0,100].
	OccPCByHourSmoothed
	RHPCByHour // Relative humidity percent [0,100].
	RHPCByHourSmoothed
	WarmModeByHourOfWeek // 7-day WARM-mode window, see WarmHistory.

	numSets
)

// smoothShift is the exponential smoothing factor: larger means a longer
// time constant. 3 retains reasonable precision in a byte while smoothing
// over roughly a week of daily samples.
const smoothShift = 3

// Stats reads and updates the per-hour series in a byte store.
type Stats struct {
	st store.Store

	// randByte supplies the stochastic rounding bias; replaceable in tests.
	randByte func() byte

	// zapCursor makes Zap resumable across calls.
	zapCursor uint16
}

// New returns a Stats backed by st.
func New(st store.Store) *Stats {
	return &Stats{
		st:       st,
		randByte: func() byte { return byte(rand.Uint32()) },
	}
}

func addrOf(set Set, hour int) uint16 {
	return store.AddrStatsStart + uint16(set)*store.StatsSetSize + uint16(hour)
}

// ByHour returns the raw stats byte for hour [0,23] of the given set,
// or Unset for an invalid set/hour.
func (s *Stats) ByHour(set Set, hour int) byte {
	if set >= numSets || hour < 0 || hour > 23 {
		return Unset
	}
	return s.st.ReadByte(addrOf(set, hour))
}

// RecordSample updates the last-value slot for the given hour and folds the
// sample into the smoothed companion set, seeding it if currently unset.
// lastSet must be one of the "last" sets; value must be below Unset.
func (s *Stats) RecordSample(lastSet Set, hour int, value byte) {
	if hour < 0 || hour > 23 || value == Unset {
		return
	}
	switch lastSet {
	case TempByHour, AmbLightByHour, OccPCByHour, RHPCByHour:
	default:
		return
	}
	s.st.UpdateByte(addrOf(lastSet, hour), value)
	smoothedAddr := addrOf(lastSet+1, hour)
	old := s.st.ReadByte(smoothedAddr)
	if old == Unset {
		s.st.UpdateByte(smoothedAddr, value)
		return
	}
	s.st.UpdateByte(smoothedAddr, s.smooth(old, value))
}

// smooth computes the new exponentially-smoothed value. It never exceeds
// max(old, value) nor falls below min(old, value). Stochastic rounding adds a
// uniform sub-LSB bias before the shift so persistent fractional trends move
// the stored byte about once per 2^smoothShift samples.
func (s *Stats) smooth(old, value byte) byte {
	if old == value {
		return old
	}
	stocAdd := s.randByte() & ((1 << smoothShift) - 1)
	return byte((uint16(old)<<smoothShift - uint16(old) + uint16(value) + uint16(stocAdd)) >> smoothShift)
}

// WarmHistoryAt returns the 7-day WARM-mode window for the given hour.
func (s *Stats) WarmHistoryAt(hour int) WarmHistory {
	if hour < 0 || hour > 23 {
		return WarmHistory(Unset)
	}
	return WarmHistory(s.st.ReadByte(addrOf(WarmModeByHourOfWeek, hour)))
}

// RecordWarmMode shifts today's WARM/FROST sample into the hour's window.
func (s *Stats) RecordWarmMode(hour int, warm bool) {
	if hour < 0 || hour > 23 {
		return
	}
	addr := addrOf(WarmModeByHourOfWeek, hour)
	h := WarmHistory(s.st.ReadByte(addr))
	s.st.UpdateByte(addr, byte(h.ShiftIn(warm)))
}

// InOutlierQuartile reports whether the given hour's sample sits
// (conservatively) in the top or bottom quartile of its 24-hour series:
// at least 18 of the 24 values must be strictly below (top) or above
// (bottom) it. Returns false if any value in the series is unset, so an
// incomplete first day of history disables anticipation rather than failing.
// Always false when all samples are equal.
func (s *Stats) InOutlierQuartile(top bool, set Set, hour int) bool {
	if set >= numSets || hour < 0 || hour > 23 {
		return false
	}
	sample := s.ByHour(set, hour)
	if sample == Unset {
		return false
	}
	outliers := 0
	for hh := 0; hh < 24; hh++ {
		v := s.ByHour(set, hh)
		if v == Unset {
			return false
		}
		if (top && v < sample) || (!top && v > sample) {
			outliers++
			if outliers >= 18 {
				return true
			}
		}
	}
	return false
}

// Zap incrementally erases all stored stats, eg when the device moves to a
// new room. At most maxBytes actual erases are performed per call
// (0 means no limit); progress persists across calls. Returns true once every
// stats byte is erased, resetting for a future full zap.
func (s *Stats) Zap(maxBytes int) bool {
	end := store.AddrStatsStart + uint16(numSets)*store.StatsSetSize
	if s.zapCursor < store.AddrStatsStart {
		s.zapCursor = store.AddrStatsStart
	}
	erased := 0
	for ; s.zapCursor < end; s.zapCursor++ {
		if s.st.EraseByte(s.zapCursor) {
			erased++
			if maxBytes > 0 && erased >= maxBytes {
				s.zapCursor++
				if s.zapCursor >= end {
					s.zapCursor = 0
					return true
				}
				return false
			}
		}
	}
	s.zapCursor = 0
	return true
}
