// Package similarity ranks candidate vectors against a query vector by cosine similarity.
package similarity

import (
	"math"

	"ragflow/internal/domain"
)

// Cosine returns dot(a,b) / (|a| * |b|). Vectors of different lengths yield a
// *domain.DimensionMismatchError; a zero-magnitude vector yields a *domain.InvalidVectorError.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &domain.DimensionMismatchError{Expected: len(a), Actual: len(b)}
	}
	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0, &domain.InvalidVectorError{}
	}
	return clamp(dot / (math.Sqrt(na2) * math.Sqrt(nb2))), nil
}

// Magnitude returns the L2 norm of v.
func Magnitude(v []float32) float64 {
	sum := 0.0
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// rounding can push |cos| slightly past 1
func clamp(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
