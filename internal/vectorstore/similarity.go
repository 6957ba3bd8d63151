// Package vectorstore holds the scoring helpers shared by the local stores.
// The stores themselves live in the memory, sqlite and qdrant subpackages.
package vectorstore

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"biorag/internal/domain"
)

// ErrDimensionMismatch is returned when a vector does not fit the collection.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// ParseDistance validates a configured metric name.
func ParseDistance(s string) (domain.Distance, error) {
	switch d := domain.Distance(s); d {
	case domain.Cosine, domain.Dot, domain.Euclid:
		return d, nil
	case "":
		return domain.Cosine, nil
	default:
		return "", fmt.Errorf("unknown distance %q", s)
	}
}

// Score compares a stored vector with a query under the given metric. For
// Euclid the score is the distance itself, so lower is closer.
func Score(d domain.Distance, stored, query []float32) float64 {
	switch d {
	case domain.Dot:
		return dot(stored, query)
	case domain.Euclid:
		var sum float64
		for i := range stored {
			diff := float64(stored[i]) - float64(query[i])
			sum += diff * diff
		}
		return math.Sqrt(sum)
	default:
		na, nb := norm(stored), norm(query)
		if na == 0 || nb == 0 {
			return 0
		}
		return dot(stored, query) / (na * nb)
	}
}

// Rank orders hits best-first and keeps at most topK. Ties keep their input
// order.
func Rank(d domain.Distance, hits []domain.ScoredPoint, topK int) []domain.ScoredPoint {
	slices.SortStableFunc(hits, func(a, b domain.ScoredPoint) int {
		if d == domain.Euclid {
			return cmpFloat(a.Score, b.Score)
		}
		return cmpFloat(b.Score, a.Score)
	})
	if topK >= 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// CheckDimension fails when vec does not have exactly dim components.
func CheckDimension(vec []float32, dim int) error {
	if len(vec) != dim {
		return fmt.Errorf("%w: got %d, collection has %d", ErrDimensionMismatch, len(vec), dim)
	}
	return nil
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(a []float32) float64 {
	return math.Sqrt(dot(a, a))
}
