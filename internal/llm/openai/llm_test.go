package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biorag/internal/domain"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gemini-2.0-flash", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "which aligner?", req.Messages[0].Content)
		assert.InDelta(t, 0.3, req.Temperature, 1e-9)
		assert.Equal(t, 1024, req.MaxTokens)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Use Clustal Omega."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "gemini-2.0-flash"})
	assert.Equal(t, "openai:gemini-2.0-flash", c.Name())

	out, err := c.Generate(context.Background(), "which aligner?", domain.GenerateOptions{Temperature: 0.3, MaxTokens: 1024})
	require.NoError(t, err)
	assert.Equal(t, "Use Clustal Omega.", out)
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http status", http.StatusTooManyRequests, `{"error":{"message":"quota"}}`},
		{"error object", http.StatusOK, `{"error":{"message":"bad model"}}`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
		{"not json", http.StatusOK, `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(Config{BaseURL: srv.URL}).Generate(context.Background(), "q", domain.GenerateOptions{})
			assert.Error(t, err)
		})
	}
}
