/*package eq is a simple package for telling whether two arrays are equal to
one another, exactly or to within a tolerance.*/
package eq

import (
	"math"
)

// Generic returns true if two arrays are the same type and have the same
// values and false otherwise. Only []int, []float64, and [][3]float64 are
// supported.
func Generic(x, y interface{}) bool {
	switch xx := x.(type) {
	case []int:
		yy, ok := y.([]int)
		if !ok { return false }
		return Ints(xx, yy)
	case []float64:
		yy, ok := y.([]float64)
		if !ok { return false }
		return Float64s(xx, yy)
	case [][3]float64:
		yy, ok := y.([][3]float64)
		if !ok { return false }
		return Vec64s(xx, yy)
	default:
		return false
	}
}

// Ints returns true if two []int arrays are the same and false otherwise.
func Ints(x, y []int) bool {
	if len(x) != len(y) { return false }
	for i := range x {
		if x[i] != y[i] { return false }
	}
	return true
}

// Float64s returns true if two []float64 arrays are exactly the same and
// false otherwise.
func Float64s(x, y []float64) bool {
	if len(x) != len(y) { return false }
	for i := range x {
		if x[i] != y[i] { return false }
	}
	return true
}

// Float64sEps returns true if two []float64 arrays are the same to within an
// absolute tolerance eps at every index and false otherwise.
func Float64sEps(x, y []float64, eps float64) bool {
	if len(x) != len(y) { return false }
	for i := range x {
		if math.Abs(x[i]-y[i]) > eps { return false }
	}
	return true
}

// Vec64s returns true if two [][3]float64 arrays are the same and false
// otherwise.
func Vec64s(x, y [][3]float64) bool {
	if len(x) != len(y) { return false }
	for i := range x {
		for d := 0; d < 3; d++ {
			if x[i][d] != y[i][d] { return false }
		}
	}
	return true
}

// MaxAbsDiff returns the largest absolute difference between corresponding
// elements of x and y. The arrays must be the same length.
func MaxAbsDiff(x, y []float64) float64 {
	max := 0.0
	for i := range x {
		d := math.Abs(x[i] - y[i])
		if d > max { max = d }
	}
	return max
}
