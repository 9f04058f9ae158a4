package util

import (
	"math"
	"math/rand"
)

// ArrayEpsEquals reports whether x and y have the same length and all
// entries are within eps of each other.
func ArrayEpsEquals(x, y []float64, eps float64) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if !EpsEqual(x[i], y[i], eps) {
			return false
		}
	}
	return true
}

func EpsEqual(x, y, eps float64) bool {
	return math.Abs(x-y) < eps
}

// RandomInInterval draws uniformly from [low, high).
func RandomInInterval(low, high float64) float64 {
	return low + (rand.Float64() * (high - low))
}
