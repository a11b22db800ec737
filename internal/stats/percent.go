package stats

// maxDecimals bounds the scale so the int64 numerator cannot overflow.
const maxDecimals = 6

// Percent returns 100*part/whole rounded half away from zero to decimals
// places. A zero whole yields 0. Decimals are clamped to [0, 6].
func Percent(part, whole, decimals int) float64 {
	if whole <= 0 {
		return 0
	}
	decimals = min(max(decimals, 0), maxDecimals)

	scale := int64(1)
	for i := 0; i < decimals; i++ {
		scale *= 10
	}

	// Rounding happens on the exact rational value in integers; only the
	// final division by scale is done in floating point.
	neg := part < 0
	num := int64(part) * 100 * scale
	if neg {
		num = -num
	}
	w := int64(whole)
	q := (2*num + w) / (2 * w)
	if neg {
		q = -q
	}
	return float64(q) / float64(scale)
}
