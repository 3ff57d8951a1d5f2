package normalize

import "math"

// Percent normalizes an accuracy or score to a percentage with two decimals.
// Values below 1 are fractions and are scaled by 100; everything else is already a percentage.
// The result is clamped to [0,100].
func Percent(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < 1 {
		v *= 100
	}
	v = math.Round(v*100) / 100
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// Fraction normalizes a confidence to [0,1]. Values above 1 are treated as percentages.
func Fraction(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	if v > 1 {
		v /= 100
	}
	return math.Min(v, 1)
}
