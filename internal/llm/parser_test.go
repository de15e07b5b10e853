package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfwise/internal/common"
	"shelfwise/internal/model"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    model.Classification
		wantErr bool
	}{
		{
			name:  "bare JSON object",
			input: `{"folder":"Invoices/2026","reason":"utility bill","suggestedName":"2026-08-01 electricity"}`,
			want: model.Classification{
				Folder:        "Invoices/2026",
				Reason:        "utility bill",
				SuggestedName: "2026-08-01 electricity",
			},
		},
		{
			name:  "commentary before and after the object",
			input: `Sure! {"folder":"x","reason":"y","suggestedName":null} Thanks!`,
			want: model.Classification{
				Folder: "x",
				Reason: "y",
			},
		},
		{
			name:  "markdown code fence",
			input: "```json\n{\"folder\":\"Receipts\",\"reason\":\"\",\"suggestedName\":null}\n```",
			want: model.Classification{
				Folder: "Receipts",
			},
		},
		{
			name:  "nested braces inside reason survive first-to-last extraction",
			input: `{"folder":"Code","reason":"contains {braces}","suggestedName":null}`,
			want: model.Classification{
				Folder: "Code",
				Reason: "contains {braces}",
			},
		},
		{
			name:    "no JSON object at all",
			input:   "I cannot classify this file.",
			wantErr: true,
		},
		{
			name:    "empty folder rejected",
			input:   `{"folder":"","reason":"?","suggestedName":null}`,
			wantErr: true,
		},
		{
			name:    "malformed JSON rejected",
			input:   `{"folder": "x", "reason": }`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClassification(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrResponseParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
