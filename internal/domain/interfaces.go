package domain

import (
	"context"
	"fmt"
	"strings"
)

// ToolRecord is one bioinformatics tool after normalization.
type ToolRecord struct {
	IdentityKey string   `json:"identity_key"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Homepage    string   `json:"homepage,omitempty"`
	Languages   []string `json:"languages"`
	Topics      []string `json:"topics"`
	Operations  []string `json:"operations"`
}

// Validate reports whether the record carries the fields every stored entry needs.
func (r ToolRecord) Validate() error {
	if strings.TrimSpace(r.IdentityKey) == "" {
		return fmt.Errorf("%w: missing identity key", ErrInvalidRecord)
	}
	if strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("%w: %q has no description", ErrInvalidRecord, r.IdentityKey)
	}
	return nil
}

// DisplayName returns the name, falling back to the identity key.
func (r ToolRecord) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.IdentityKey
}

// Point is a persisted corpus entry: a record, its embedding and a stable ID.
type Point struct {
	ID     string
	Vector []float32
	Record ToolRecord
}

// ScoredPoint is a Point returned by a similarity search.
type ScoredPoint struct {
	Point
	Score float64
}

// RetrievedTool is the per-hit view handed to answer synthesis.
type RetrievedTool struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	URL         string  `json:"url"`
	Score       float64 `json:"score"`
}

// MatchMode selects how a TextMatch compares payload values.
type MatchMode string

const (
	// MatchSubstring matches when the stored value contains the query text.
	MatchSubstring MatchMode = "substring"
	// MatchExact matches only identical values.
	MatchExact MatchMode = "exact"
)

// TextMatch filters points by a payload field.
type TextMatch struct {
	Field string
	Value string
	Mode  MatchMode
}

// Matches applies the filter to a stored value.
func (m TextMatch) Matches(stored string) bool {
	if m.Mode == MatchExact {
		return stored == m.Value
	}
	return strings.Contains(stored, m.Value)
}

// Distance is the similarity metric of a collection.
type Distance string

const (
	Cosine Distance = "Cosine"
	Dot    Distance = "Dot"
	Euclid Distance = "Euclid"
)

// Embedder converts free text into a fixed-length vector.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore persists points in a named collection and answers kNN queries.
type VectorStore interface {
	CollectionExists(ctx context.Context) (bool, error)
	CreateCollection(ctx context.Context, dimension int, distance Distance) error
	DropCollection(ctx context.Context) error
	Scroll(ctx context.Context, filter TextMatch, limit int) ([]Point, error)
	Search(ctx context.Context, vector []float32, topK int) ([]ScoredPoint, error)
	Upsert(ctx context.Context, points []Point) error
	Count(ctx context.Context) (int, error)
}

// GenerateOptions tunes a single completion.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// LanguageModel turns a prompt into generated text.
type LanguageModel interface {
	Name() string
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
