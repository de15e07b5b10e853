// Package llm implements the classification client: prompt construction,
// backend protocol selection, retry with backoff, and response parsing.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"shelfwise/internal/common"
	"shelfwise/internal/model"
)

// maxExtractChars bounds how much extracted text enters the prompt.
const maxExtractChars = 4000

const truncationMarker = "\n[... content truncated ...]"

// Backend selects the classification protocol.
type Backend string

// Supported backends.
const (
	BackendLocal  Backend = "local"
	BackendOpenAI Backend = "openai"
)

// Config holds configuration for the classifier.
type Config struct {
	Backend           Backend
	BaseURL           string
	APIKey            string
	Model             string
	Temperature       float64
	MaxTokens         int
	MaxRetries        int
	RetryDelay        time.Duration
	RequestsPerMinute int
}

// RenameConfig carries a folder's rename settings into the prompt.
type RenameConfig struct {
	Rule    string
	Mode    model.RenameMode
	Enabled bool
}

// Classifier asks a backend where a file belongs and parses the answer.
type Classifier struct {
	client    Client
	logger    *slog.Logger
	limiter   *rate.Limiter
	retryOpts common.RetryOptions
}

// NewClassifier creates a classifier for the configured backend.
func NewClassifier(cfg Config, logger *slog.Logger) (*Classifier, error) {
	var client Client
	var err error

	switch cfg.Backend {
	case BackendLocal:
		client, err = newOllamaClient(cfg)
	case BackendOpenAI:
		client, err = newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported classification backend: %s", cfg.Backend)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	retryOpts := common.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = 2 * time.Second
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Classifier{
		client:    client,
		logger:    logger,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		retryOpts: retryOpts,
	}, nil
}

// Classify asks the backend for a placement decision. Transport failures
// are retried with exponential backoff; rejected requests (400/401/404)
// and unparseable responses fail immediately.
func (c *Classifier) Classify(ctx context.Context, meta model.FileMetadata, extracted string, existingFolders []string, userPrompt string, rename RenameConfig) (model.Classification, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.Classification{}, fmt.Errorf("rate limit wait: %w", err)
	}

	prompt := buildPrompt(meta, extracted, existingFolders, userPrompt, rename)

	var result model.Classification
	err := common.WithRetry(ctx, func() error {
		raw, err := c.client.Complete(ctx, prompt)
		if err != nil {
			retryable := true
			var statusErr *StatusError
			if errors.As(err, &statusErr) && rejectedByBackend(statusErr.Code) {
				retryable = false
			}
			if retryable {
				c.logger.Warn("classification attempt failed",
					"file", meta.Name,
					"error", err)
			}
			return &common.RetryableError{Err: err, Retryable: retryable}
		}

		parsed, parseErr := ParseClassification(raw)
		if parseErr != nil {
			return &common.RetryableError{Err: parseErr, Retryable: false}
		}

		result = parsed
		return nil
	}, c.retryOpts)

	if err != nil {
		return model.Classification{}, fmt.Errorf("%w: %v", common.ErrClassificationFailed, err)
	}

	c.logger.Info("file classified",
		"file", meta.Name,
		"folder", result.Folder,
		"suggested_name", result.SuggestedName)

	return result, nil
}

// buildPrompt assembles the single natural-language prompt sent to either
// backend protocol.
func buildPrompt(meta model.FileMetadata, extracted string, existingFolders []string, userPrompt string, rename RenameConfig) string {
	var b strings.Builder

	b.WriteString("You are a file organization assistant. Decide which folder the file below belongs in.\n\n")

	ext := strings.TrimPrefix(filepath.Ext(meta.Name), ".")
	if ext == "" {
		ext = "none"
	}
	fmt.Fprintf(&b, "File details:\nName: %s\nExtension: %s\nSize: %d bytes\nCreated: %s\nModified: %s\n",
		meta.Name,
		ext,
		meta.Size,
		meta.Created.Format("2006-01-02 15:04"),
		meta.Modified.Format("2006-01-02 15:04"))

	if extracted != "" {
		text := extracted
		if len(text) > maxExtractChars {
			text = text[:maxExtractChars] + truncationMarker
		}
		fmt.Fprintf(&b, "\nExtracted content:\n%s\n", text)
	}

	b.WriteString("\nExisting subfolders:\n")
	if len(existingFolders) == 0 {
		b.WriteString("(none)\n")
	} else {
		for _, folder := range existingFolders {
			fmt.Fprintf(&b, "- %s\n", folder)
		}
	}

	if userPrompt != "" {
		fmt.Fprintf(&b, "\nUser instructions:\n%s\n", userPrompt)
	}

	if rename.Enabled {
		b.WriteString("\nRenaming:\n")
		switch rename.Mode {
		case model.RenameRuleBased:
			fmt.Fprintf(&b, "Rename the file following this rule exactly; if the rule cannot be applied literally, match its intent as closely as possible: %s\n", rename.Rule)
		default:
			b.WriteString("Propose a short descriptive filename prefixed with the file's date as YYYY-MM-DD.\n")
		}
		b.WriteString("Put the proposed name, without extension, in suggestedName.\n")
	} else {
		b.WriteString("\nDo not propose a rename; leave suggestedName null.\n")
	}

	b.WriteString(`
Respond with ONLY a single JSON object, no commentary, markdown, or explanation:
{"folder": "relative/destination/folder", "reason": "one sentence", "suggestedName": null}
The folder may contain subfolders that do not exist yet. It must not be empty.`)

	return b.String()
}
