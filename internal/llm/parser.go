package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"shelfwise/internal/common"
	"shelfwise/internal/model"
)

// ParseClassification extracts the classification JSON object from raw
// backend output. Backends are instructed to answer with only a JSON
// object, but many still wrap it in commentary, so the substring between
// the first '{' and the last '}' is what gets parsed. Parse failures are
// never retryable.
func ParseClassification(raw string) (model.Classification, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return model.Classification{}, fmt.Errorf("%w: no JSON object in %q", common.ErrResponseParse, truncateForError(raw))
	}

	var result model.Classification
	if err := json.Unmarshal([]byte(raw[start:end+1]), &result); err != nil {
		return model.Classification{}, fmt.Errorf("%w: %v", common.ErrResponseParse, err)
	}

	result.Folder = strings.TrimSpace(result.Folder)
	if result.Folder == "" {
		return model.Classification{}, fmt.Errorf("%w: empty folder", common.ErrResponseParse)
	}

	result.Reason = strings.TrimSpace(result.Reason)
	result.SuggestedName = strings.TrimSpace(result.SuggestedName)

	return result, nil
}

func truncateForError(raw string) string {
	const limit = 120
	raw = strings.TrimSpace(raw)
	if len(raw) <= limit {
		return raw
	}
	return raw[:limit] + "..."
}
