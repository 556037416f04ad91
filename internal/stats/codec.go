package stats

// Lossy compression of temperatures in 1/16ths Celsius to a single byte for
// the per-hour history. Precision is banded: 0.5C steps below 16C and above
// 24C (up to 100C, allowing DHW temperatures), and 0.25C steps in the
// [16C,24C) comfort band where accuracy matters most. Band transitions are at
// whole degrees so compression is monotonic non-decreasing.

// UnsetInt16 is returned by ExpandTempC16 for unset/invalid input.
const UnsetInt16 int16 = 0x7fff

const (
	compressLowThreshold  = 16 << 4 // Start of high-precision band.
	compressLowAfter      = compressLowThreshold >> 3
	compressHighThreshold = 24 << 4 // End of high-precision band.
	compressHighAfter     = compressLowAfter + ((compressHighThreshold - compressLowThreshold) >> 1)
	compressCeil          = 100 << 4 // Input ceiling.
	compressCeilAfter     = compressHighAfter + ((compressCeil - compressHighThreshold) >> 3)
)

// CompressTempC16 range-compresses a signed 1/16ths-C temperature to a byte
// strictly less than 0xFF. Inputs below 0C clamp to 0C and above 100C to 100C.
func CompressTempC16(tempC16 int16) byte {
	if tempC16 <= 0 {
		return 0
	}
	if tempC16 < compressLowThreshold {
		return byte(tempC16 >> 3)
	}
	if tempC16 < compressHighThreshold {
		return byte(((tempC16 - compressLowThreshold) >> 1) + compressLowAfter)
	}
	if tempC16 < compressCeil {
		return byte(((tempC16 - compressHighThreshold) >> 3) + compressHighAfter)
	}
	return compressCeilAfter
}

// ExpandTempC16 reverses CompressTempC16 to within the precision of the band.
// 0xFF or any other out-of-range input yields UnsetInt16.
func ExpandTempC16(c byte) int16 {
	if c < compressLowAfter {
		return int16(c) << 3
	}
	if c < compressHighAfter {
		return ((int16(c) - compressLowAfter) << 1) + compressLowThreshold
	}
	if c <= compressCeilAfter {
		return ((int16(c) - compressHighAfter) << 3) + compressHighThreshold
	}
	return UnsetInt16
}
