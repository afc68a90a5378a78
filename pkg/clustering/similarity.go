package clustering

import "math"

// CosineSimilarity computes dot(a,b) / (|a| * |b|), clamped to [0,1].
// Zero-magnitude or mismatched vectors have similarity 0 to everything.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	return cosineWithNorms(a, b, norm(a), norm(b))
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosineWithNorms(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	s := dot / (na * nb)
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
