package embedding

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

const tolerance = 1e-9

func TestMeanMatrix(t *testing.T) {
	t.Run("single vector is identity", func(t *testing.T) {
		got, err := Mean([][]float64{{1, 2, 3}})
		if err != nil {
			t.Fatalf("mean: %v", err)
		}
		want := []float64{1, 2, 3}
		for i := range want {
			if math.Abs(got[i]-want[i]) > tolerance {
				t.Fatalf("element %d: got %v want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("element-wise mean", func(t *testing.T) {
		got, err := Mean([][]float64{{1, 0, 4}, {3, 2, 0}})
		if err != nil {
			t.Fatalf("mean: %v", err)
		}
		want := []float64{2, 1, 2}
		for i := range want {
			if math.Abs(got[i]-want[i]) > tolerance {
				t.Fatalf("element %d: got %v want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if _, err := Mean(nil); !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("expected ErrEmptyInput, got %v", err)
		}
		if _, err := Mean([][]float64{}); !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("expected ErrEmptyInput, got %v", err)
		}
	})

	t.Run("ragged input", func(t *testing.T) {
		if _, err := Mean([][]float64{{1, 2}, {1, 2, 3}}); !errors.Is(err, ErrDimensionMismatch) {
			t.Fatalf("expected ErrDimensionMismatch, got %v", err)
		}
	})
}

func TestMeanPermutationInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	vectors := make([][]float64, 5)
	for i := range vectors {
		v := make([]float64, 16)
		for j := range v {
			v[j] = rng.NormFloat64()
		}
		vectors[i] = v
	}
	base, err := Mean(vectors)
	if err != nil {
		t.Fatalf("mean: %v", err)
	}

	for trial := 0; trial < 10; trial++ {
		shuffled := make([][]float64, len(vectors))
		copy(shuffled, vectors)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got, err := Mean(shuffled)
		if err != nil {
			t.Fatalf("mean of permutation: %v", err)
		}
		for i := range base {
			if math.Abs(got[i]-base[i]) > tolerance {
				t.Fatalf("trial %d element %d: got %v want %v", trial, i, got[i], base[i])
			}
		}
	}
}

func TestCosineMatrix(t *testing.T) {
	t.Run("self similarity is one", func(t *testing.T) {
		v := []float64{0.3, -1.2, 4.5, 0.01}
		got, err := Cosine(v, v)
		if err != nil {
			t.Fatalf("cosine: %v", err)
		}
		if math.Abs(got-1.0) > tolerance {
			t.Fatalf("cosine(v,v) = %v, want 1.0", got)
		}
	})

	t.Run("opposite vector is minus one", func(t *testing.T) {
		v := []float64{2, -3, 0.5}
		neg := []float64{-2, 3, -0.5}
		got, err := Cosine(v, neg)
		if err != nil {
			t.Fatalf("cosine: %v", err)
		}
		if math.Abs(got+1.0) > tolerance {
			t.Fatalf("cosine(v,-v) = %v, want -1.0", got)
		}
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		got, err := Cosine([]float64{1, 0}, []float64{0, 1})
		if err != nil {
			t.Fatalf("cosine: %v", err)
		}
		if math.Abs(got) > tolerance {
			t.Fatalf("cosine of orthogonal vectors = %v, want 0", got)
		}
	})

	t.Run("length mismatch never returns a value", func(t *testing.T) {
		if _, err := Cosine([]float64{1, 2}, []float64{1, 2, 3}); !errors.Is(err, ErrDimensionMismatch) {
			t.Fatalf("expected ErrDimensionMismatch, got %v", err)
		}
	})

	t.Run("zero magnitude", func(t *testing.T) {
		if _, err := Cosine([]float64{0, 0}, []float64{1, 2}); !errors.Is(err, ErrZeroMagnitude) {
			t.Fatalf("expected ErrZeroMagnitude, got %v", err)
		}
		if _, err := Cosine([]float64{1, 2}, []float64{0, 0}); !errors.Is(err, ErrZeroMagnitude) {
			t.Fatalf("expected ErrZeroMagnitude, got %v", err)
		}
	})
}
