package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"biorag/internal/domain"
	"biorag/internal/logging"
)

// ExistingPolicy decides what happens to a record whose identity key is
// already in the store.
type ExistingPolicy string

const (
	// ExistingSkip keeps the first-seen entry untouched.
	ExistingSkip ExistingPolicy = "skip"
	// ExistingReplace re-embeds the record and overwrites the existing point.
	ExistingReplace ExistingPolicy = "replace"
)

// DefaultBatchSize is the number of points written per upsert call.
const DefaultBatchSize = 50

// IngestOptions configures an Ingestor.
type IngestOptions struct {
	BatchSize  int
	Match      domain.MatchMode
	OnExisting ExistingPolicy
	// Distance is used when the collection has to be created.
	Distance domain.Distance
}

// IngestReport counts per-record outcomes. Created and Updated only include
// points whose chunk was written successfully.
type IngestReport struct {
	Created      int `json:"created"`
	Updated      int `json:"updated"`
	Duplicates   int `json:"duplicates"`
	Invalid      int `json:"invalid"`
	EmbedFailed  int `json:"embed_failed"`
	WriteFailed  int `json:"write_failed"`
	Chunks       int `json:"chunks"`
	FailedChunks int `json:"failed_chunks"`
}

// IngestorOption configures optional Ingestor behaviour.
type IngestorOption func(*Ingestor)

// WithIngestLogger sets the logger for skipped records and failed chunks.
func WithIngestLogger(l *zap.Logger) IngestorOption {
	return func(i *Ingestor) { i.logger = l }
}

// WithIDGenerator replaces the UUIDv4 point ID generator.
func WithIDGenerator(fn func() string) IngestorOption {
	return func(i *Ingestor) { i.newID = fn }
}

// Ingestor deduplicates, embeds and writes tool records.
type Ingestor struct {
	embedder domain.Embedder
	store    domain.VectorStore
	opts     IngestOptions
	logger   *zap.Logger
	newID    func() string
}

// NewIngestor creates an ingestor. Zero options fall back to batches of 50,
// substring matching and the skip policy.
func NewIngestor(embedder domain.Embedder, store domain.VectorStore, opts IngestOptions, options ...IngestorOption) *Ingestor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Match == "" {
		opts.Match = domain.MatchSubstring
	}
	if opts.OnExisting == "" {
		opts.OnExisting = ExistingSkip
	}
	if opts.Distance == "" {
		opts.Distance = domain.Cosine
	}
	i := &Ingestor{
		embedder: embedder,
		store:    store,
		opts:     opts,
		newID:    uuid.NewString,
	}
	for _, o := range options {
		o(i)
	}
	i.logger = logging.OrNop(i.logger)
	return i
}

// ComposeEmbeddingText builds the text embedded for a record: a
// "name: description" header, then a Topics line and an Operations line when
// those lists are non-empty.
func ComposeEmbeddingText(r domain.ToolRecord) string {
	var b strings.Builder
	b.WriteString(r.DisplayName())
	b.WriteString(": ")
	b.WriteString(strings.TrimSpace(r.Description))
	if len(r.Topics) > 0 {
		b.WriteString("\nTopics: ")
		b.WriteString(strings.Join(r.Topics, ", "))
	}
	if len(r.Operations) > 0 {
		b.WriteString("\nOperations: ")
		b.WriteString(strings.Join(r.Operations, ", "))
	}
	return b.String()
}

type staged struct {
	point   domain.Point
	outcome domain.Outcome
}

// storedKeys is a per-run snapshot of the identity keys already in the store.
type storedKeys struct {
	loaded bool
	points []domain.Point
}

// Ingest processes records in order and writes the survivors in chunks.
//
// Per-record problems (invalid fields, duplicates, embedding failures) and
// per-chunk write failures are counted in the report, never returned. An
// error is returned only when ctx ends or the collection cannot be created.
func (i *Ingestor) Ingest(ctx context.Context, records iter.Seq[domain.ToolRecord]) (IngestReport, error) {
	var rep IngestReport
	var pending []staged
	var stored storedKeys

	for rec := range records {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		outcome, point := i.prepare(ctx, rec, pending, &stored)
		switch outcome {
		case domain.OutcomeInvalid:
			rep.Invalid++
		case domain.OutcomeDuplicate:
			rep.Duplicates++
		case domain.OutcomeEmbedFailed:
			rep.EmbedFailed++
		default:
			pending = append(pending, staged{point: point, outcome: outcome})
		}
	}

	if len(pending) > 0 {
		if err := i.ensureCollection(ctx, len(pending[0].point.Vector)); err != nil {
			return rep, err
		}
		i.write(ctx, pending, &rep)
	}

	i.logger.Info("ingestion finished",
		zap.Int("created", rep.Created),
		zap.Int("updated", rep.Updated),
		zap.Int("duplicates", rep.Duplicates),
		zap.Int("invalid", rep.Invalid),
		zap.Int("embed_failed", rep.EmbedFailed),
		zap.Int("write_failed", rep.WriteFailed))
	return rep, nil
}

func (i *Ingestor) prepare(ctx context.Context, rec domain.ToolRecord, pending []staged, stored *storedKeys) (domain.Outcome, domain.Point) {
	if err := rec.Validate(); err != nil {
		i.logger.Warn("skipping invalid record", zap.Error(err))
		return domain.OutcomeInvalid, domain.Point{}
	}
	key := rec.IdentityKey

	for _, p := range pending {
		if i.sameTool(p.point.Record.IdentityKey, key) {
			i.logger.Debug("duplicate within run", zap.String("identity_key", key),
				zap.String("kept", p.point.Record.IdentityKey))
			return domain.OutcomeDuplicate, domain.Point{}
		}
	}

	id, outcome := "", domain.OutcomeCreated
	existing, err := i.store.Scroll(ctx, domain.TextMatch{
		Field: domain.FieldIdentityKey,
		Value: key,
		Mode:  i.opts.Match,
	}, 1)
	if err == nil && len(existing) == 0 && i.opts.Match == domain.MatchSubstring {
		if p, ok := i.containedKey(ctx, key, stored); ok {
			existing = []domain.Point{p}
		}
	}
	switch {
	case err != nil:
		// A missing collection simply has no entries yet.
		i.logger.Debug("dedup check failed, treating as new", zap.String("identity_key", key), zap.Error(err))
	case len(existing) > 0 && i.opts.OnExisting == ExistingReplace:
		id, outcome = existing[0].ID, domain.OutcomeUpdated
	case len(existing) > 0:
		i.logger.Debug("already stored", zap.String("identity_key", key), zap.String("id", existing[0].ID))
		return domain.OutcomeDuplicate, domain.Point{}
	}

	vec, err := i.embedder.Embed(ctx, ComposeEmbeddingText(rec))
	if err == nil && len(vec) == 0 {
		err = fmt.Errorf("%w: empty vector", domain.ErrEmbedding)
	}
	if err != nil {
		i.logger.Warn("embedding failed, skipping record", zap.String("identity_key", key), zap.Error(err))
		return domain.OutcomeEmbedFailed, domain.Point{}
	}
	if id == "" {
		id = i.newID()
	}
	return outcome, domain.Point{ID: id, Vector: vec, Record: rec}
}

// sameTool compares a key staged earlier in this run with a new one. In
// substring mode either key containing the other counts as the same tool.
func (i *Ingestor) sameTool(prev, key string) bool {
	if i.opts.Match == domain.MatchExact {
		return prev == key
	}
	return strings.Contains(prev, key) || strings.Contains(key, prev)
}

// containedKey finds a stored point whose identity key is a substring of key.
// The store is scanned once per run.
func (i *Ingestor) containedKey(ctx context.Context, key string, stored *storedKeys) (domain.Point, bool) {
	if !stored.loaded {
		stored.loaded = true
		points, err := i.store.Scroll(ctx, domain.TextMatch{}, 0)
		if err != nil {
			i.logger.Debug("listing stored keys failed", zap.Error(err))
			return domain.Point{}, false
		}
		stored.points = points
	}
	for _, p := range stored.points {
		if k := p.Record.IdentityKey; k != "" && strings.Contains(key, k) {
			return p, true
		}
	}
	return domain.Point{}, false
}

func (i *Ingestor) ensureCollection(ctx context.Context, vectorLen int) error {
	exists, err := i.store.CollectionExists(ctx)
	if err != nil {
		return fmt.Errorf("%w: checking collection: %w", domain.ErrStoreWrite, err)
	}
	if exists {
		return nil
	}
	dim := i.embedder.Dimension()
	if dim <= 0 {
		dim = vectorLen
	}
	if err := i.store.CreateCollection(ctx, dim, i.opts.Distance); err != nil {
		return fmt.Errorf("%w: creating collection: %w", domain.ErrStoreWrite, err)
	}
	i.logger.Info("created collection", zap.Int("dimension", dim), zap.String("distance", string(i.opts.Distance)))
	return nil
}

func (i *Ingestor) write(ctx context.Context, pending []staged, rep *IngestReport) {
	for start := 0; start < len(pending); start += i.opts.BatchSize {
		end := min(start+i.opts.BatchSize, len(pending))
		chunk := pending[start:end]
		points := make([]domain.Point, len(chunk))
		for j, s := range chunk {
			points[j] = s.point
		}
		rep.Chunks++
		if err := i.store.Upsert(ctx, points); err != nil {
			rep.FailedChunks++
			rep.WriteFailed += len(chunk)
			i.logger.Warn("chunk write failed",
				zap.Int("chunk", rep.Chunks),
				zap.Int("size", len(chunk)),
				zap.Error(errors.Join(domain.ErrStoreWrite, err)))
			continue
		}
		for _, s := range chunk {
			if s.outcome == domain.OutcomeUpdated {
				rep.Updated++
			} else {
				rep.Created++
			}
		}
	}
}
