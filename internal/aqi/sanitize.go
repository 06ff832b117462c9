package aqi

import "math"

// Sanitize converts a raw stored value into a clean response value. Absent
// or non-numeric values, NaN, infinities and negative numbers all collapse
// to 0.0; everything else is rounded to 2 decimal places. Every value that
// crosses from the store into a response passes through here, on every
// query path.
func Sanitize(v interface{}) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	default:
		return 0.0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0.0
	}
	return math.Round(f*100) / 100
}
