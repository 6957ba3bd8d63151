package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolRecord_Validate(t *testing.T) {
	assert.NoError(t, ToolRecord{IdentityKey: "biopython", Description: "Sequence tools"}.Validate())

	err := ToolRecord{Description: "no key"}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRecord))

	err = ToolRecord{IdentityKey: "blast", Description: "   "}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blast")
}

func TestPayload_SurvivesJSONTransport(t *testing.T) {
	rec := ToolRecord{
		IdentityKey: "biopython",
		Name:        "BioPython",
		Description: "Performs sequence alignments",
		Homepage:    "https://biopython.org/",
		Languages:   []string{"Python"},
		Topics:      []string{"Sequence analysis"},
		Operations:  []string{"Sequence alignment", "Parsing"},
	}

	// Stores hand payloads back after a JSON hop, so slices come back as []any.
	data, err := json.Marshal(rec.Payload())
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	got, err := RecordFromPayload(decoded)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestRecordFromPayload_EmptySlicesAndMissingFields(t *testing.T) {
	got, err := RecordFromPayload(map[string]any{
		FieldIdentityKey: "clustalo",
		FieldDescription: "Multiple sequence alignment",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{}, got.Topics)
	assert.Equal(t, "clustalo", got.DisplayName())

	_, err = RecordFromPayload(map[string]any{FieldName: "orphan"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestTextMatch_Matches(t *testing.T) {
	sub := TextMatch{Field: FieldIdentityKey, Value: "BLAST", Mode: MatchSubstring}
	assert.True(t, sub.Matches("BLAST (Basic Local Alignment Search Tool)"))
	assert.False(t, sub.Matches("blast"))

	exact := TextMatch{Field: FieldIdentityKey, Value: "BLAST", Mode: MatchExact}
	assert.False(t, exact.Matches("BLAST (Basic Local Alignment Search Tool)"))
	assert.True(t, exact.Matches("BLAST"))
}

func TestScoredPoint_Retrieved(t *testing.T) {
	p := ScoredPoint{
		Point: Point{Record: ToolRecord{IdentityKey: "igv", Description: "Genome viewer", Homepage: "https://igv.org"}},
		Score: 0.81,
	}
	got := p.Retrieved()
	assert.Equal(t, "igv", got.Name)
	assert.Equal(t, "https://igv.org", got.URL)
	assert.InDelta(t, 0.81, got.Score, 1e-9)
}
