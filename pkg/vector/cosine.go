package vector

import "math"

// CosineDistance returns 1 - cos(a, b). Zero vectors are treated as
// orthogonal to everything (distance 1).
func CosineDistance(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 1, nil
	}

	return float32(1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))), nil
}
