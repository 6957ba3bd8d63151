// Package hashing provides an offline embedder based on the hashing trick.
package hashing

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"biorag/internal/domain"
)

// Embedder maps tokens into a fixed number of buckets with signed term
// frequencies and L2-normalizes the result. The dimension does not depend on
// the corpus.
type Embedder struct {
	dimension    int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewEmbedder creates a hashing embedder producing vectors of the given size.
func NewEmbedder(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = 768
	}
	return &Embedder{
		dimension:    dimension,
		tokenPattern: regexp.MustCompile(`\p{L}[\p{L}\p{N}]*(?:['’-][\p{L}\p{N}]+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "hashing" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed computes the hashed term-frequency vector for the given text.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	tokens := e.tokenize(text)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no indexable tokens in %q", domain.ErrEmbedding, text)
	}
	acc := make([]float64, e.dimension)
	for _, tok := range tokens {
		idx, sign := e.bucket(tok)
		acc[idx] += sign
	}
	// Sublinear TF dampens repeated terms in long descriptions.
	norm := 0.0
	for i, v := range acc {
		if v == 0 {
			continue
		}
		s := 1.0
		if v < 0 {
			s = -1.0
		}
		acc[i] = s * (1 + math.Log(math.Abs(v)))
		norm += acc[i] * acc[i]
	}
	norm = math.Sqrt(norm)
	vec := make([]float32, e.dimension)
	if norm == 0 {
		return nil, fmt.Errorf("%w: tokens of %q cancelled out", domain.ErrEmbedding, text)
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec, nil
}

func (e *Embedder) bucket(token string) (int, float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	sum := h.Sum64()
	sign := 1.0
	if sum>>63 == 1 {
		sign = -1.0
	}
	return int(sum % uint64(e.dimension)), sign
}

func (e *Embedder) tokenize(text string) []string {
	lower := strings.ToLower(text)
	raw := e.tokenPattern.FindAllString(lower, -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, stem(t))
	}
	return out
}

// stem folds the plural and gerund forms that dominate tool descriptions
// ("alignments", "aligning") onto one bucket.
func stem(t string) string {
	switch {
	case len(t) > 5 && strings.HasSuffix(t, "ing"):
		return t[:len(t)-3]
	case len(t) > 4 && strings.HasSuffix(t, "ies"):
		return t[:len(t)-3] + "y"
	case len(t) > 3 && strings.HasSuffix(t, "s") && !strings.HasSuffix(t, "ss"):
		return t[:len(t)-1]
	}
	return t
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"which", "what", "tool", "tools", "i", "me", "my", "use", "need", "do", "does",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
