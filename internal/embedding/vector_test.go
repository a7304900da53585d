package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	vec := Normalize([]float32{3, 4})

	assert.InDelta(t, 0.6, float64(vec[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(vec[1]), 1e-6)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}

	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestNormalizeZeroVector(t *testing.T) {
	vec := Normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, vec)
}

func TestDot(t *testing.T) {
	assert.InDelta(t, 11.0, Dot([]float32{1, 2}, []float32{3, 4}), 1e-9)
	assert.InDelta(t, 0.0, Dot([]float32{1, 2}, []float32{1}), 1e-9, "length mismatch yields zero")
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 2, 3}

	assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity(a, []float32{1, 2}), 1e-9, "length mismatch")
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}), 1e-9, "zero vector")
}

func TestDotMatchesCosineForUnitVectors(t *testing.T) {
	a := Normalize([]float32{2, 5, 1})
	b := Normalize([]float32{1, 3, 4})

	assert.InDelta(t, CosineSimilarity(a, b), Dot(a, b), 1e-6)
}
