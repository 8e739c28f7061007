package gallery

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"opposite", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 0},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"mismatched length", []float32{1, 0}, []float32{1, 0, 0}, -1},
		{"empty", []float32{}, []float32{}, -1},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 0, 0}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := []float32{0.3, -0.5, 0.8, 0.1}
	b := []float32{0.7, 0.2, -0.1, 0.6}

	ab := CosineSimilarity(a, b)
	ba := CosineSimilarity(b, a)
	if ab != ba {
		t.Errorf("similarity not symmetric: %v vs %v", ab, ba)
	}
}

func TestCosineSimilarityDeterministic(t *testing.T) {
	a := []float32{0.12, 0.95, -0.3}
	b := []float32{0.5, 0.5, 0.5}

	first := CosineSimilarity(a, b)
	for i := 0; i < 10; i++ {
		if got := CosineSimilarity(a, b); got != first {
			t.Fatalf("run %d: similarity %v differs from %v", i, got, first)
		}
	}
}

func TestCosineDistance(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if got := CosineDistance(a, b); got != 1 {
		t.Errorf("CosineDistance(orthogonal) = %v, want 1", got)
	}
	if got := CosineDistance(a, a); got != 0 {
		t.Errorf("CosineDistance(identical) = %v, want 0", got)
	}
}
