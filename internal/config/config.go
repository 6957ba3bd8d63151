package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CatalogConfig configures the bio.tools harvester.
type CatalogConfig struct {
	BaseURL           string  `yaml:"base_url"`
	Language          string  `yaml:"language"`
	PageSize          int     `yaml:"page_size"`
	MaxPages          int     `yaml:"max_pages"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	UserAgent         string  `yaml:"user_agent"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type        string `yaml:"type"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	Dimension   int    `yaml:"dimension"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
	SQLite *SQLiteConfig `yaml:"sqlite,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	Distance    string `yaml:"distance"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SQLiteConfig points the local store at a database file.
type SQLiteConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	Distance   string `yaml:"distance"`
}

// LLMConfig selects and configures the answer-synthesis model.
type LLMConfig struct {
	Type        string  `yaml:"type"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// IngestConfig controls batching and the duplicate policy.
type IngestConfig struct {
	BatchSize  int    `yaml:"batch_size"`
	Match      string `yaml:"match"`
	OnExisting string `yaml:"on_existing"`
}

// QueryConfig controls retrieval and prompt construction.
type QueryConfig struct {
	TopK                    int `yaml:"top_k"`
	MaxDescriptionSentences int `yaml:"max_description_sentences"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Debug       bool              `yaml:"debug"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	LLM         LLMConfig         `yaml:"llm"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Query       QueryConfig       `yaml:"query"`
	Server      ServerConfig      `yaml:"server"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/biorag/config.yaml.
// If neither exists, it writes defaults to ~/.config/biorag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Collection returns the collection name of the selected store.
func (c *AppConfig) Collection() string {
	switch c.VectorStore.Type {
	case "sqlite":
		if c.VectorStore.SQLite != nil {
			return c.VectorStore.SQLite.Collection
		}
	case "qdrant":
		if c.VectorStore.Qdrant != nil {
			return c.VectorStore.Qdrant.Collection
		}
	}
	return DefaultCollection
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "biorag", "config.yaml"), nil
}
