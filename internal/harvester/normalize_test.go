package harvester

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biorag/internal/domain"
)

func TestNormalize_FlattensNestedTerms(t *testing.T) {
	raw := json.RawMessage(`{
		"name": "Biopython",
		"biotoolsID": "biopython",
		"description": "Python tools for computational molecular biology, including sequence alignments.",
		"homepage": "https://biopython.org",
		"language": ["Python", "C"],
		"topic": [{"term": "Sequence analysis", "uri": "http://edamontology.org/topic_0080"}, {"uri": "no-term"}, "junk"],
		"function": [
			{"operation": [{"term": "Sequence alignment"}, {"term": "Format conversion"}]},
			{"operation": [{"term": "Database search"}]},
			{"input": []}
		]
	}`)

	rec, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.ToolRecord{
		IdentityKey: "biopython",
		Name:        "Biopython",
		Description: "Python tools for computational molecular biology, including sequence alignments.",
		Homepage:    "https://biopython.org",
		Languages:   []string{"Python", "C"},
		Topics:      []string{"Sequence analysis"},
		Operations:  []string{"Sequence alignment", "Format conversion", "Database search"},
	}, rec)
}

func TestNormalize_IdentityFallbacks(t *testing.T) {
	rec, err := Normalize(json.RawMessage(`{"name":"Clustal Omega","description":"MSA"}`))
	require.NoError(t, err)
	assert.Equal(t, "Clustal Omega", rec.IdentityKey)

	rec, err = Normalize(json.RawMessage(`{"biotoolsID":"clustalo","description":"MSA"}`))
	require.NoError(t, err)
	assert.Equal(t, "clustalo", rec.Name)
	assert.Empty(t, rec.Topics)
	assert.NotNil(t, rec.Topics)
}

func TestNormalize_Rejects(t *testing.T) {
	for name, raw := range map[string]string{
		"no description":    `{"name":"x","biotoolsID":"x"}`,
		"blank description": `{"name":"x","description":"   "}`,
		"no identity":       `{"description":"something"}`,
		"wrong types":       `{"name":42,"description":["a"]}`,
		"not an object":     `[1,2]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize(json.RawMessage(raw))
			assert.ErrorIs(t, err, domain.ErrParse)
		})
	}
}
