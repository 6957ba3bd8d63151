package config

import "os"

// Defaults shared with the components that consume them.
const (
	DefaultCatalogURL        = "https://bio.tools/api/tool/"
	DefaultCatalogLanguage   = "Python"
	DefaultCollection        = "OmiyDB"
	DefaultQdrantURL         = "http://localhost:6333"
	DefaultEmbeddingDim      = 768
	DefaultTopK              = 3
	DefaultBatchSize         = 50
	DefaultRequestsPerSecond = 1.0
)

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder:    EmbedderConfig{Type: "hashing"},
		VectorStore: VectorStoreConfig{Type: "memory"},
		LLM:         LLMConfig{Type: "ollama"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	c := &cfg.Catalog
	if c.BaseURL == "" {
		c.BaseURL = DefaultCatalogURL
	}
	if c.Language == "" {
		c.Language = DefaultCatalogLanguage
	}
	if c.PageSize == 0 {
		c.PageSize = 100
	}
	if c.MaxPages == 0 {
		c.MaxPages = 50
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = 30
	}
	if c.UserAgent == "" {
		c.UserAgent = "biorag-harvester/1.0"
	}

	e := &cfg.Embedder
	if e.Type == "" {
		e.Type = "hashing"
	}
	if e.Dimension == 0 && e.Type == "hashing" {
		e.Dimension = DefaultEmbeddingDim
	}
	if e.Type == "openai" {
		if e.BaseURL == "" {
			e.BaseURL = "http://localhost:11434/v1"
		}
		if e.Model == "" {
			e.Model = "nomic-embed-text"
		}
		if e.TimeoutSecs == 0 {
			e.TimeoutSecs = 30
		}
	}

	v := &cfg.VectorStore
	if v.Type == "" {
		v.Type = "memory"
	}
	if v.Type == "qdrant" {
		if v.Qdrant == nil {
			v.Qdrant = &QdrantConfig{}
		}
		if v.Qdrant.URL == "" {
			v.Qdrant.URL = DefaultQdrantURL
		}
		if v.Qdrant.APIKeyEnv == "" {
			v.Qdrant.APIKeyEnv = "QDRANT_API_KEY"
		}
		if v.Qdrant.Collection == "" {
			v.Qdrant.Collection = DefaultCollection
		}
		if v.Qdrant.Distance == "" {
			v.Qdrant.Distance = "Cosine"
		}
		if v.Qdrant.TimeoutSecs == 0 {
			v.Qdrant.TimeoutSecs = 15
		}
	}
	if v.Type == "sqlite" {
		if v.SQLite == nil {
			v.SQLite = &SQLiteConfig{}
		}
		if v.SQLite.Path == "" {
			v.SQLite.Path = "biorag.db"
		}
		if v.SQLite.Collection == "" {
			v.SQLite.Collection = DefaultCollection
		}
		if v.SQLite.Distance == "" {
			v.SQLite.Distance = "Cosine"
		}
	}

	l := &cfg.LLM
	if l.Type == "" {
		l.Type = "ollama"
	}
	if l.Temperature == 0 {
		l.Temperature = 0.3
	}
	if l.MaxTokens == 0 {
		l.MaxTokens = 1024
	}
	if l.TimeoutSecs == 0 {
		l.TimeoutSecs = 120
	}
	switch l.Type {
	case "openai":
		if l.BaseURL == "" {
			l.BaseURL = "https://api.openai.com/v1"
		}
		if l.APIKeyEnv == "" {
			l.APIKeyEnv = "OPENAI_API_KEY"
		}
		if l.Model == "" {
			l.Model = "gpt-4o-mini"
		}
	case "ollama":
		if l.BaseURL == "" {
			l.BaseURL = "http://localhost:11434"
		}
		if l.Model == "" {
			l.Model = "llama3.2"
		}
	}

	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = DefaultBatchSize
	}
	if cfg.Ingest.Match == "" {
		cfg.Ingest.Match = "substring"
	}
	if cfg.Ingest.OnExisting == "" {
		cfg.Ingest.OnExisting = "skip"
	}
	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = DefaultTopK
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
}

// applyEnvOverrides honours the variables deployments already export for the
// hosted Qdrant cluster.
func applyEnvOverrides(cfg *AppConfig) {
	url := os.Getenv("QDRANT_CLUSTER_URL")
	collection := os.Getenv("COLLECTION_NAME")
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant != nil {
		if url != "" {
			cfg.VectorStore.Qdrant.URL = url
		}
		if collection != "" {
			cfg.VectorStore.Qdrant.Collection = collection
		}
	}
	if cfg.VectorStore.Type == "sqlite" && cfg.VectorStore.SQLite != nil && collection != "" {
		cfg.VectorStore.SQLite.Collection = collection
	}
}
