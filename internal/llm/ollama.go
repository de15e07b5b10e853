package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Local model servers can take minutes on large prompts.
const localRequestTimeout = 120 * time.Second

// ollamaClient implements the Client interface for a local-model HTTP
// endpoint speaking the Ollama generate protocol.
type ollamaClient struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	temperature float64
	numPredict  int
}

// newOllamaClient creates a client for a local model endpoint.
func newOllamaClient(cfg Config) (Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("local backend base URL is required")
	}

	model := cfg.Model
	if model == "" {
		model = "llama3.2"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.2
	}

	numPredict := cfg.MaxTokens
	if numPredict == 0 {
		numPredict = 300
	}

	return &ollamaClient{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		model:       model,
		temperature: temperature,
		numPredict:  numPredict,
		httpClient:  newHTTPClient(localRequestTimeout),
	}, nil
}

// Complete sends a single non-streaming generate request.
func (c *ollamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": c.temperature,
			"num_predict": c.numPredict,
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", strings.NewReader(string(jsonBody)))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	return response.Response, nil
}
