package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaClientComplete(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":"{\"folder\":\"Docs\",\"reason\":\"r\",\"suggestedName\":null}"}`))
	}))
	defer server.Close()

	client, err := newOllamaClient(Config{
		Backend:     BackendLocal,
		BaseURL:     server.URL,
		Model:       "llama3.2",
		Temperature: 0.1,
		MaxTokens:   128,
	})
	require.NoError(t, err)

	raw, err := client.Complete(context.Background(), "where does this go?")
	require.NoError(t, err)
	assert.Contains(t, raw, `"folder":"Docs"`)

	assert.Equal(t, "llama3.2", captured["model"])
	assert.Equal(t, "where does this go?", captured["prompt"])
	assert.Equal(t, false, captured["stream"])

	options, ok := captured["options"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 0.1, options["temperature"], 0.001)
	assert.InDelta(t, 128, options["num_predict"], 0.001)
}

func TestOllamaClientStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client, err := newOllamaClient(Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "prompt")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
}

func TestOllamaClientRequiresBaseURL(t *testing.T) {
	_, err := newOllamaClient(Config{})
	require.Error(t, err)
}
