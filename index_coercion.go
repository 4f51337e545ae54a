package jsarray

import "math"

// clampedIndexFromStartOrEnd converts a start/end/count argument into an index in [0, length].
// Negative values are counted from the end when relativeNegative is set,
// otherwise they clamp to 0. Undefined yields def.
func clampedIndexFromStartOrEnd(v Value, length uint64, relativeNegative bool, def uint64) uint64 {
	if v == nil || v == _undefined {
		return def
	}
	if i, ok := v.(valueInt); ok && i >= math.MinInt32 && i <= math.MaxInt32 {
		idx := int64(i)
		if idx < 0 {
			if !relativeNegative {
				return 0
			}
			idx += int64(length)
			if idx < 0 {
				return 0
			}
			return uint64(idx)
		}
		if uint64(idx) > length {
			return length
		}
		return uint64(idx)
	}
	d := toIntegerOrInfinity(v)
	if d < 0 {
		if !relativeNegative {
			return 0
		}
		d += float64(length)
		if d < 0 {
			return 0
		}
		return uint64(d)
	}
	if d > float64(length) {
		return length
	}
	return uint64(d)
}

// unclampedIndexFromStartOrEnd is like clampedIndexFromStartOrEnd with relative
// negatives, but keeps results that fall before 0 or past length so callers can
// reject them. Infinite input saturates.
func unclampedIndexFromStartOrEnd(v Value, length uint64, def int64) int64 {
	if v == nil || v == _undefined {
		return def
	}
	d := toIntegerOrInfinity(v)
	if d < 0 {
		d += float64(length)
	}
	switch {
	case d >= math.MaxInt64:
		return math.MaxInt64
	case d <= math.MinInt64:
		return math.MinInt64
	}
	return int64(d)
}
