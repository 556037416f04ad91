package stats

// MaxAmbLight caps recorded ambient light so a full-scale reading cannot
// collide with the unset value.
const MaxAmbLight byte = 254

// SampleInputs is one raw snapshot of the sensed environment.
type SampleInputs struct {
	TempC16  int16
	AmbLight byte
	OccPC    byte
	RHPC     byte
	HaveRH   bool
	WarmMode bool
}

// Sampler accumulates sub-hour samples and flushes their means to the
// per-hour stats at the end of each hour. At most one pre-sample and the
// final full sample are used per hour; a crash simply discards the unflushed
// accumulator, which is acceptable loss.
type Sampler struct {
	stats *Stats

	sampleCount   uint8
	warmCount     int8
	ambLightTotal uint16
	occTotal      uint16
	rhTotal       uint16
	tempC16Total  int32
}

// NewSampler returns a Sampler recording into st.
func NewSampler(st *Stats) *Sampler {
	return &Sampler{stats: st}
}

// Sample accumulates one snapshot. Call with full=false around mid-hour for
// an optional pre-sample, and with full=true as near the end of the hour as
// possible to flush the hour's record for hour [0,23]. Extra pre-samples
// beyond the first are ignored.
func (u *Sampler) Sample(full bool, hour int, in SampleInputs) {
	if !full && u.sampleCount != 0 {
		return
	}
	first := u.sampleCount == 0
	u.sampleCount++

	if in.WarmMode {
		u.warmCount++
	} else {
		u.warmCount--
	}
	amb := in.AmbLight
	if amb > MaxAmbLight {
		amb = MaxAmbLight
	}
	occ := in.OccPC
	if occ > 100 {
		occ = 100
	}
	rh := in.RHPC
	if rh > 100 {
		rh = 100
	}
	if first {
		u.ambLightTotal = uint16(amb)
		u.occTotal = uint16(occ)
		u.rhTotal = uint16(rh)
		u.tempC16Total = int32(in.TempC16)
	} else {
		u.ambLightTotal += uint16(amb)
		u.occTotal += uint16(occ)
		u.rhTotal += uint16(rh)
		u.tempC16Total += int32(in.TempC16)
	}
	if !full {
		return
	}

	sc := u.sampleCount
	warm := u.warmCount > 0
	u.sampleCount = 0
	u.warmCount = 0

	tempMean := u.tempC16Total
	if sc > 1 {
		tempMean = (tempMean + 1) >> 1
	}
	u.stats.RecordSample(TempByHour, hour, CompressTempC16(int16(tempMean)))
	u.stats.RecordSample(AmbLightByHour, hour, meanByte(u.ambLightTotal, sc))
	u.stats.RecordSample(OccPCByHour, hour, meanByte(u.occTotal, sc))
	if in.HaveRH {
		u.stats.RecordSample(RHPCByHour, hour, meanByte(u.rhTotal, sc))
	}
	u.stats.RecordWarmMode(hour, warm)
}

// meanByte averages a running total over a small sample count with rounding.
func meanByte(total uint16, count uint8) byte {
	if count <= 1 {
		return byte(total)
	}
	return byte((total + 1) >> 1)
}
