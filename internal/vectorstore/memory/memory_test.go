package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biorag/internal/domain"
	"biorag/internal/vectorstore"
)

func point(id, key string, vec ...float32) domain.Point {
	return domain.Point{
		ID:     id,
		Vector: vec,
		Record: domain.ToolRecord{IdentityKey: key, Name: key, Description: key + " does things"},
	}
}

func TestStorage_MissingCollection(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	ok, err := s.CollectionExists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Scroll(ctx, domain.TextMatch{Field: domain.FieldIdentityKey, Value: "x"}, 1)
	assert.ErrorIs(t, err, domain.ErrCollectionMissing)
	assert.ErrorIs(t, s.Upsert(ctx, []domain.Point{point("1", "a", 1, 0)}), domain.ErrCollectionMissing)
	_, err = s.Search(ctx, []float32{1, 0}, 3)
	assert.ErrorIs(t, err, domain.ErrCollectionMissing)
}

func TestStorage_UpsertSearchCount(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.CreateCollection(ctx, 2, domain.Cosine))
	require.NoError(t, s.Upsert(ctx, []domain.Point{
		point("1", "BioPython", 1, 0),
		point("2", "Clustal Omega", 0.7, 0.7),
		point("3", "Cytoscape", 0, 1),
	}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err := s.Search(ctx, []float32{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "BioPython", hits[0].Record.IdentityKey)
	assert.Equal(t, "Clustal Omega", hits[1].Record.IdentityKey)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	// same ID overwrites in place
	require.NoError(t, s.Upsert(ctx, []domain.Point{point("1", "Biopython", 1, 0)}))
	n, _ = s.Count(ctx)
	assert.Equal(t, 3, n)
}

func TestStorage_Scroll(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.CreateCollection(ctx, 1, domain.Cosine))
	require.NoError(t, s.Upsert(ctx, []domain.Point{
		point("1", "BioPython", 1),
		point("2", "pysam", 1),
	}))

	found, err := s.Scroll(ctx, domain.TextMatch{Field: domain.FieldIdentityKey, Value: "Python", Mode: domain.MatchSubstring}, 1)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "1", found[0].ID)

	found, err = s.Scroll(ctx, domain.TextMatch{Field: domain.FieldIdentityKey, Value: "Python", Mode: domain.MatchExact}, 1)
	require.NoError(t, err)
	assert.Empty(t, found)

	all, err := s.Scroll(ctx, domain.TextMatch{}, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStorage_RejectsWrongDimension(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.CreateCollection(ctx, 3, domain.Cosine))

	err := s.Upsert(ctx, []domain.Point{point("1", "a", 1, 0, 0), point("2", "b", 1)})
	assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)
	n, _ := s.Count(ctx)
	assert.Zero(t, n, "a rejected batch must not be partially applied")

	assert.Error(t, s.CreateCollection(ctx, 4, domain.Cosine))
	assert.NoError(t, s.CreateCollection(ctx, 3, domain.Cosine))
}

func TestStorage_Drop(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.CreateCollection(ctx, 1, domain.Cosine))
	require.NoError(t, s.Upsert(ctx, []domain.Point{point("1", "a", 1)}))
	require.NoError(t, s.DropCollection(ctx))

	ok, _ := s.CollectionExists(ctx)
	assert.False(t, ok)
}

func TestStorage_ReturnedPointsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.CreateCollection(ctx, 2, domain.Cosine))
	p := point("1", "IGV", 1, 0)
	p.Record.Topics = []string{"Genomics"}
	require.NoError(t, s.Upsert(ctx, []domain.Point{p}))

	scrolled, err := s.Scroll(ctx, domain.TextMatch{}, 0)
	require.NoError(t, err)
	scrolled[0].Vector[0] = 42
	scrolled[0].Record.Topics[0] = "changed"

	hits, err := s.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	hits[0].Vector[1] = 42

	again, err := s.Scroll(ctx, domain.TextMatch{}, 0)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, again[0].Vector)
	assert.Equal(t, []string{"Genomics"}, again[0].Record.Topics)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}
