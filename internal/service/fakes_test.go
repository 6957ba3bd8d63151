package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"biorag/internal/domain"
	"biorag/internal/vectorstore/memory"
)

// scriptedLLM answers by naming every tool that appears in the prompt.
type scriptedLLM struct {
	mu      sync.Mutex
	prompts []string
	err     error
	answer  string
}

func (l *scriptedLLM) Name() string { return "scripted" }

func (l *scriptedLLM) Generate(_ context.Context, prompt string, _ domain.GenerateOptions) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
	if l.err != nil {
		return "", l.err
	}
	if l.answer != "" {
		return l.answer, nil
	}
	var names []string
	for _, line := range strings.Split(prompt, "\n") {
		if name, ok := strings.CutPrefix(line, "Tool: "); ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "I could not find a matching tool.", nil
	}
	return "I recommend " + strings.Join(names, " or ") + ".", nil
}

// flakyStore fails the Nth Upsert call (1-based) and delegates everything else.
type flakyStore struct {
	*memory.Storage
	failOn  int
	upserts int
}

func (s *flakyStore) Upsert(ctx context.Context, points []domain.Point) error {
	s.upserts++
	if s.upserts == s.failOn {
		return errors.New("simulated write timeout")
	}
	return s.Storage.Upsert(ctx, points)
}

// brokenScrollStore returns an error from every dedup check.
type brokenScrollStore struct {
	*memory.Storage
}

func (s brokenScrollStore) Scroll(context.Context, domain.TextMatch, int) ([]domain.Point, error) {
	return nil, errors.New("unexpected response")
}

// failingEmbedder fails for texts that contain a marker.
type failingEmbedder struct {
	domain.Embedder
	marker string
}

func (e failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.Contains(text, e.marker) {
		return nil, fmt.Errorf("%w: provider unavailable", domain.ErrEmbedding)
	}
	return e.Embedder.Embed(ctx, text)
}

// recorder logs the order in which capabilities are called.
type recorder struct {
	calls []string
}

type recEmbedder struct {
	r   *recorder
	dim int
}

func (e recEmbedder) Name() string   { return "rec" }
func (e recEmbedder) Dimension() int { return e.dim }
func (e recEmbedder) Embed(context.Context, string) ([]float32, error) {
	e.r.calls = append(e.r.calls, "embed")
	v := make([]float32, e.dim)
	v[0] = 1
	return v, nil
}

type recStore struct {
	*memory.Storage
	r *recorder
}

func (s recStore) Search(ctx context.Context, v []float32, k int) ([]domain.ScoredPoint, error) {
	s.r.calls = append(s.r.calls, "search")
	return s.Storage.Search(ctx, v, k)
}

type recLLM struct{ r *recorder }

func (l recLLM) Name() string { return "rec" }
func (l recLLM) Generate(context.Context, string, domain.GenerateOptions) (string, error) {
	l.r.calls = append(l.r.calls, "generate")
	return "ok", nil
}

// overfullStore ignores topK and returns every point.
type overfullStore struct {
	*memory.Storage
}

func (s overfullStore) Search(ctx context.Context, v []float32, _ int) ([]domain.ScoredPoint, error) {
	return s.Storage.Search(ctx, v, 1000)
}

func tool(key, desc string) domain.ToolRecord {
	return domain.ToolRecord{IdentityKey: key, Name: key, Description: desc}
}
