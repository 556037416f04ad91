package stats

// WarmHistory is a 7-day rolling window of WARM-mode samples for one hour of
// day. Bits 0-6 hold the last seven daily samples, bit 6 being the most
// recent; bit 7 set marks a never-written value. The encoding matches the
// persisted byte layout so stored history survives upgrades.
type WarmHistory byte

// IsSet reports whether the history has ever been written.
func (h WarmHistory) IsSet() bool { return h&0x80 == 0 }

// ShiftIn records today's sample, dropping the oldest day.
// On first use all seven days are filled with the sample value.
func (h WarmHistory) ShiftIn(warm bool) WarmHistory {
	if !h.IsSet() {
		if warm {
			return 0x7f
		}
		return 0
	}
	nh := (h >> 1) & 0x3f
	if warm {
		nh |= 0x40
	}
	return nh
}

// WarmDaysAgo reports whether the sample from d days ago (d in [1,7],
// 1 = yesterday) was in WARM mode. False for an unset history or d out of range.
func (h WarmHistory) WarmDaysAgo(d int) bool {
	if !h.IsSet() || d < 1 || d > 7 {
		return false
	}
	return h&(1<<(7-d)) != 0
}

// WarmDayCount returns how many of the last seven daily samples were WARM,
// or 0 for an unset history.
func (h WarmHistory) WarmDayCount() int {
	if !h.IsSet() {
		return 0
	}
	n := 0
	for d := 1; d <= 7; d++ {
		if h.WarmDaysAgo(d) {
			n++
		}
	}
	return n
}
