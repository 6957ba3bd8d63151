package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biorag/internal/domain"
)

func hit(id string, score float64) domain.ScoredPoint {
	return domain.ScoredPoint{Point: domain.Point{ID: id}, Score: score}
}

func TestScore(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{3, 4}

	assert.InDelta(t, 0.6, Score(domain.Cosine, a, b), 1e-9)
	assert.InDelta(t, 3.0, Score(domain.Dot, a, b), 1e-9)
	assert.InDelta(t, 4.472135955, Score(domain.Euclid, a, b), 1e-6)
	assert.Zero(t, Score(domain.Cosine, []float32{0, 0}, b))
}

func TestRank_SimilarityDescending(t *testing.T) {
	hits := []domain.ScoredPoint{hit("a", 0.1), hit("b", 0.9), hit("c", 0.5), hit("d", 0.9)}
	ranked := Rank(domain.Cosine, hits, 3)
	require.Len(t, ranked, 3)
	assert.Equal(t, "b", ranked[0].ID)
	assert.Equal(t, "d", ranked[1].ID)
	assert.Equal(t, "c", ranked[2].ID)
}

func TestRank_EuclidAscending(t *testing.T) {
	hits := []domain.ScoredPoint{hit("far", 3), hit("near", 0.5)}
	ranked := Rank(domain.Euclid, hits, 10)
	assert.Equal(t, "near", ranked[0].ID)
	assert.Len(t, ranked, 2)
}

func TestParseDistance(t *testing.T) {
	d, err := ParseDistance("")
	require.NoError(t, err)
	assert.Equal(t, domain.Cosine, d)

	d, err = ParseDistance("Dot")
	require.NoError(t, err)
	assert.Equal(t, domain.Dot, d)

	_, err = ParseDistance("manhattan")
	assert.Error(t, err)
}

func TestCheckDimension(t *testing.T) {
	assert.NoError(t, CheckDimension([]float32{1, 2}, 2))
	assert.ErrorIs(t, CheckDimension([]float32{1}, 2), ErrDimensionMismatch)
}
