// Package extract reads file content for classification prompts.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// maxReadBytes bounds how much of a file is loaded for classification.
const maxReadBytes = 256 * 1024

// Result is the extractor's output. Text may be empty for unsupported
// types; Confidence is advisory only.
type Result struct {
	Text       string
	Confidence float64
}

// Extractor produces text from a file for the classification prompt.
// Implementations may be slow and must be treated as fallible.
type Extractor interface {
	Extract(path string) (Result, error)
}

// TextExtractor reads plain-text content directly from disk. Binary files
// yield an empty result rather than an error so the pipeline can still
// classify on metadata alone.
type TextExtractor struct{}

// NewTextExtractor creates the default extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// textExtensions are treated as plain text regardless of content sniffing.
var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".csv": true, ".json": true, ".xml": true,
	".yaml": true, ".yml": true, ".log": true, ".html": true, ".htm": true,
	".ini": true, ".toml": true, ".tex": true, ".rtf": true,
}

// Extract reads up to maxReadBytes from path and scores how text-like the
// content is. I/O failure is an error; binary content is not.
func (e *TextExtractor) Extract(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open file for extraction: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxReadBytes))
	if err != nil {
		return Result{}, fmt.Errorf("failed to read file content: %w", err)
	}

	if len(data) == 0 {
		return Result{}, nil
	}

	if bytes.ContainsRune(data, 0) || !utf8.Valid(data) {
		// Binary payload; nothing usable for the prompt.
		return Result{}, nil
	}

	confidence := 0.6
	if textExtensions[strings.ToLower(filepath.Ext(path))] {
		confidence = 0.9
	}

	return Result{
		Text:       string(data),
		Confidence: confidence,
	}, nil
}
