// Package vector provides similarity helpers for normalized vectors and an in-memory
// index over paragraph embeddings.
package vector

import "math"

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// CosineSimilarity returns the cosine similarity of two normalized vectors, clamped to [0,1].
// Mismatched or empty vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	return math.Max(0, math.Min(1, InnerProduct(a, b)))
}

// MaxCosine returns the highest CosineSimilarity between q and any vector in set.
func MaxCosine(q []float32, set [][]float32) float64 {
	best := 0.0
	for _, v := range set {
		if s := CosineSimilarity(q, v); s > best {
			best = s
		}
	}
	return best
}
