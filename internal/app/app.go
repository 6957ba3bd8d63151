// Package app assembles biorag's components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"biorag/internal/config"
	"biorag/internal/domain"
	"biorag/internal/embedding/hashing"
	"biorag/internal/embedding/openai"
	"biorag/internal/harvester"
	ollamallm "biorag/internal/llm/ollama"
	openaillm "biorag/internal/llm/openai"
	"biorag/internal/logging"
	"biorag/internal/service"
	"biorag/internal/summarizer"
	"biorag/internal/vectorstore"
	"biorag/internal/vectorstore/memory"
	"biorag/internal/vectorstore/qdrant"
	"biorag/internal/vectorstore/sqlite"
)

// App holds the components shared by every command and server. It is built
// once per process and passed explicitly.
type App struct {
	Config    *config.AppConfig
	Logger    *zap.Logger
	Embedder  domain.Embedder
	Store     domain.VectorStore
	LLM       domain.LanguageModel
	Harvester *harvester.Harvester
	Ingestor  *service.Ingestor
	Pipeline  *service.QueryPipeline

	closers []io.Closer
}

// New builds an App. The language model is created on first use, and
// harvesting and ingestion never touch it.
func New(cfg *config.AppConfig, logger *zap.Logger) (*App, error) {
	logger = logging.OrNop(logger)

	emb, err := NewEmbedder(cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	store, closer, err := NewStore(cfg.VectorStore)
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}
	a := &App{Config: cfg, Logger: logger, Embedder: emb, Store: store}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	ingestOpts, err := IngestOptions(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.LLM = &lazyLLM{cfg: cfg.LLM}
	a.Harvester = harvester.New(harvester.Config{
		BaseURL:           cfg.Catalog.BaseURL,
		Language:          cfg.Catalog.Language,
		PageSize:          cfg.Catalog.PageSize,
		MaxPages:          cfg.Catalog.MaxPages,
		RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
		Timeout:           seconds(cfg.Catalog.TimeoutSecs),
		UserAgent:         cfg.Catalog.UserAgent,
	}, harvester.WithLogger(logger.Named("harvester")))
	a.Ingestor = service.NewIngestor(emb, store, ingestOpts,
		service.WithIngestLogger(logger.Named("ingest")))
	a.Pipeline = service.NewQueryPipeline(emb, store, a.LLM, service.QueryOptions{
		TopK:                    cfg.Query.TopK,
		MaxDescriptionSentences: cfg.Query.MaxDescriptionSentences,
		Generate: domain.GenerateOptions{
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		},
	},
		service.WithPipelineLogger(logger.Named("query")),
		service.WithSummarizer(summarizer.NewFrequencySummarizer()))

	logger.Debug("app assembled",
		zap.String("embedder", emb.Name()),
		zap.String("store", cfg.VectorStore.Type),
		zap.String("collection", cfg.Collection()),
		zap.String("llm", a.LLM.Name()))
	return a, nil
}

// Close releases resources held by the store.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewEmbedder selects the embedder named by cfg.Type.
func NewEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "hashing", "":
		return hashing.NewEmbedder(cfg.Dimension), nil
	case "openai":
		c, err := openai.NewClient(openai.Config{
			BaseURL:    cfg.BaseURL,
			APIKeyEnv:  cfg.APIKeyEnv,
			Model:      cfg.Model,
			Dimension:  cfg.Dimension,
			Timeout:    seconds(cfg.TimeoutSecs),
			MaxRetries: cfg.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

// NewStore selects the vector store named by cfg.Type. The returned closer is
// nil for stores that hold no resources.
func NewStore(cfg config.VectorStoreConfig) (domain.VectorStore, io.Closer, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewStorage(), nil, nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, nil, errors.New("qdrant config missing")
		}
		var apiKey string
		if cfg.Qdrant.APIKeyEnv != "" {
			apiKey = os.Getenv(cfg.Qdrant.APIKeyEnv)
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     apiKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    seconds(cfg.Qdrant.TimeoutSecs),
		}), nil, nil
	case "sqlite":
		if cfg.SQLite == nil {
			return nil, nil, errors.New("sqlite config missing")
		}
		st, err := sqlite.Open(cfg.SQLite.Path, cfg.SQLite.Collection)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

// IngestOptions translates the ingest section of cfg.
func IngestOptions(cfg *config.AppConfig) (service.IngestOptions, error) {
	opts := service.IngestOptions{BatchSize: cfg.Ingest.BatchSize}

	switch m := domain.MatchMode(cfg.Ingest.Match); m {
	case domain.MatchSubstring, domain.MatchExact, "":
		opts.Match = m
	default:
		return opts, fmt.Errorf("ingest.match: unknown mode %q", cfg.Ingest.Match)
	}
	switch p := service.ExistingPolicy(cfg.Ingest.OnExisting); p {
	case service.ExistingSkip, service.ExistingReplace, "":
		opts.OnExisting = p
	default:
		return opts, fmt.Errorf("ingest.on_existing: unknown policy %q", cfg.Ingest.OnExisting)
	}

	var distance string
	switch {
	case cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant != nil:
		distance = cfg.VectorStore.Qdrant.Distance
	case cfg.VectorStore.Type == "sqlite" && cfg.VectorStore.SQLite != nil:
		distance = cfg.VectorStore.SQLite.Distance
	}
	d, err := vectorstore.ParseDistance(distance)
	if err != nil {
		return opts, err
	}
	opts.Distance = d
	return opts, nil
}

// NewLanguageModel selects the model named by cfg.Type.
func NewLanguageModel(cfg config.LLMConfig) (domain.LanguageModel, error) {
	switch cfg.Type {
	case "ollama", "":
		return ollamallm.NewClient(ollamallm.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: seconds(cfg.TimeoutSecs),
		}), nil
	case "openai":
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("%s is not set", cfg.APIKeyEnv)
		}
		return openaillm.NewClient(openaillm.Config{
			APIKey:  key,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: seconds(cfg.TimeoutSecs),
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm: %s", cfg.Type)
	}
}

// lazyLLM defers client construction, and its credential checks, to the
// first Generate call.
type lazyLLM struct {
	cfg  config.LLMConfig
	once sync.Once
	llm  domain.LanguageModel
	err  error
}

func (l *lazyLLM) Name() string { return l.cfg.Type + ":" + l.cfg.Model }

func (l *lazyLLM) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	l.once.Do(func() { l.llm, l.err = NewLanguageModel(l.cfg) })
	if l.err != nil {
		return "", l.err
	}
	return l.llm.Generate(ctx, prompt, opts)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
