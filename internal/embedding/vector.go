package embedding

import (
	"errors"
	"math"
)

// Numeric invariant violations. These indicate a data-pipeline bug upstream
// (a provider returning ragged or degenerate vectors) and must surface as
// internal errors, never as an ordinary authentication failure.
var (
	ErrEmptyInput        = errors.New("embedding: empty input")
	ErrDimensionMismatch = errors.New("embedding: dimension mismatch")
	ErrZeroMagnitude     = errors.New("embedding: zero magnitude vector")
)

// Mean computes the element-wise arithmetic mean of the input vectors. All
// vectors must share the same length. The result does not depend on input
// order.
func Mean(vectors [][]float64) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, ErrEmptyInput
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, ErrEmptyInput
	}
	sum := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, ErrDimensionMismatch
		}
		for i, x := range v {
			sum[i] += x
		}
	}
	n := float64(len(vectors))
	for i := range sum {
		sum[i] /= n
	}
	return sum, nil
}

// Cosine returns dot(a,b) / (|a|*|b|). The result lies in [-1, 1] up to
// floating error and is not clamped; callers compare the raw value against
// their threshold.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	if len(a) == 0 {
		return 0, ErrEmptyInput
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, ErrZeroMagnitude
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
