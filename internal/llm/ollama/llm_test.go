package ollama

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
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2", req.Model)
		assert.False(t, req.Stream)
		require.NotNil(t, req.Options)
		assert.Equal(t, 256, req.Options.NumPredict)

		_, _ = w.Write([]byte(`{"response":"BioPython fits.","done":true}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/"})
	out, err := c.Generate(context.Background(), "prompt", domain.GenerateOptions{MaxTokens: 256, Temperature: 0.3})
	require.NoError(t, err)
	assert.Equal(t, "BioPython fits.", out)
	assert.Equal(t, "ollama:llama3.2", c.Name())
}

func TestGenerate_NoOptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, has := req["options"]
		assert.False(t, has)
		_, _ = w.Write([]byte(`{"response":"ok","done":true}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}).Generate(context.Background(), "p", domain.GenerateOptions{})
	require.NoError(t, err)
}

func TestGenerate_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}).Generate(context.Background(), "p", domain.GenerateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}
