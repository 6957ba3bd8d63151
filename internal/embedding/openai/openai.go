package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"biorag/internal/domain"
)

// Client is an OpenAI-compatible embeddings client implementing domain.Embedder.
// It also understands the Ollama-native response shape.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	client     *http.Client
	maxRetries int
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	// Dimension, when set, is enforced on every returned vector. Otherwise it
	// is learned from the first response.
	Dimension  int
	Timeout    time.Duration
	MaxRetries int
}

// NewClient creates a new embeddings client using the provided configuration.
// The API key is optional.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must be >= 0, got %d", cfg.MaxRetries)
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	var key string
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     key,
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		client:     &http.Client{Timeout: t},
		maxRetries: cfg.MaxRetries,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Dimension returns the dimensionality of the produced embedding vectors, or 0
// before the first call when it was not configured.
func (c *Client) Dimension() int { return c.dimension }

type embedRequest struct {
	Input  string `json:"input,omitempty"`
	Prompt string `json:"prompt,omitempty"`
	Model  string `json:"model"`
}

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	url := c.baseURL + "/embeddings"
	data, err := json.Marshal(embedRequest{Input: text, Prompt: text, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", domain.ErrEmbedding, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		vec, retryAfter, err := c.embedOnce(ctx, url, data)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if retryAfter < 0 || attempt == c.maxRetries {
			break
		}
		if retryAfter == 0 {
			retryAfter = retryDelay(attempt)
		}
		if err := sleep(ctx, retryAfter); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
		}
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, lastErr)
}

// embedOnce performs a single request. A negative retryAfter marks the error as
// permanent; a positive one is the server-requested delay.
func (c *Client) embedOnce(ctx context.Context, url string, body []byte) ([]float32, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, -1, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		var wait time.Duration
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				wait = time.Duration(secs) * time.Second
			}
		}
		return nil, wait, fmt.Errorf("embeddings request failed: %s", resp.Status)
	}
	if resp.StatusCode >= 300 {
		return nil, -1, fmt.Errorf("embeddings request failed: %s", resp.Status)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	vec, err := decodeEmbedding(payload)
	if err != nil {
		return nil, 0, err
	}
	if c.dimension == 0 {
		c.dimension = len(vec)
	} else if len(vec) != c.dimension {
		return nil, -1, fmt.Errorf("embedding has dimension %d, want %d", len(vec), c.dimension)
	}
	return vec, 0, nil
}

func decodeEmbedding(payload []byte) ([]float32, error) {
	// OpenAI-compatible: {"data":[{"embedding":[...]}]}
	var openaiOut struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &openaiOut); err == nil {
		if len(openaiOut.Data) > 0 && len(openaiOut.Data[0].Embedding) > 0 {
			return openaiOut.Data[0].Embedding, nil
		}
	}
	// Ollama-native: {"embedding":[...]}
	var ollamaOut struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &ollamaOut); err == nil && len(ollamaOut.Embedding) > 0 {
		return ollamaOut.Embedding, nil
	}
	return nil, fmt.Errorf("no embedding returned")
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
