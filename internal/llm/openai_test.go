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

func TestOpenAIClientComplete(t *testing.T) {
	var captured map[string]any
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"folder\":\"Taxes\"}"}}]}`))
	}))
	defer server.Close()

	client, err := newOpenAIClient(Config{
		Backend:   BackendOpenAI,
		BaseURL:   server.URL,
		APIKey:    "sk-test",
		Model:     "gpt-4o-mini",
		MaxTokens: 200,
	})
	require.NoError(t, err)

	raw, err := client.Complete(context.Background(), "classify this")
	require.NoError(t, err)
	assert.Contains(t, raw, "Taxes")

	assert.Equal(t, "Bearer sk-test", authHeader)
	assert.Equal(t, "gpt-4o-mini", captured["model"])
	assert.InDelta(t, 200, captured["max_completion_tokens"], 0.001)

	messages, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	first, ok := messages[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "classify this", first["content"])
}

func TestOpenAIClientOutputFallbackShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output":[{"content":[{"text":"{\"folder\":\"Projects\"}"}]}]}`))
	}))
	defer server.Close()

	client, err := newOpenAIClient(Config{BaseURL: server.URL, APIKey: "sk-test"})
	require.NoError(t, err)

	raw, err := client.Complete(context.Background(), "classify")
	require.NoError(t, err)
	assert.Contains(t, raw, "Projects")
}

func TestOpenAIClientUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := newOpenAIClient(Config{BaseURL: server.URL, APIKey: "sk-bad"})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "classify")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
	assert.True(t, rejectedByBackend(statusErr.Code))
}

func TestOpenAIClientRequiresAPIKey(t *testing.T) {
	_, err := newOpenAIClient(Config{})
	require.Error(t, err)
}

func TestOpenAIClientEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client, err := newOpenAIClient(Config{BaseURL: server.URL, APIKey: "sk-test"})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "classify")
	require.Error(t, err)
}
