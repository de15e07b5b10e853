package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfwise/internal/common"
	"shelfwise/internal/model"
)

func loadYAML(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	SetDefaults(v)
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	return Load(v)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadYAML(t, "")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "local", cfg.Backend.Kind)
	assert.Equal(t, "http://localhost:11434", cfg.Backend.BaseURL)
	assert.Equal(t, 3, cfg.Backend.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Backend.RetryDelay)
	assert.Equal(t, 2*time.Second, cfg.Engine.Debounce)
	assert.Equal(t, 60*time.Second, cfg.Engine.Cooldown)
	assert.Empty(t, cfg.Folders)
	assert.NotEmpty(t, cfg.History.Path)
}

func TestLoadFolders(t *testing.T) {
	cfg, err := loadYAML(t, `
folders:
  - path: /srv/inbox
    prompt: sort my paperwork
    extensions: [pdf, txt]
    watch_depth: 2
    extract_text: true
  - id: media
    path: /srv/downloads
    enabled: false
    rename_files: true
    rename_mode: rule-based
    rename_rule: "<date> - <topic>"
`)
	require.NoError(t, err)
	require.Len(t, cfg.Folders, 2)

	inbox := cfg.Folders[0]
	assert.Equal(t, "inbox", inbox.ID, "id defaults to the path base name")
	assert.Equal(t, "/srv/inbox", inbox.Path)
	assert.Equal(t, []string{"pdf", "txt"}, inbox.Extensions)
	assert.Equal(t, 2, inbox.WatchDepth)
	assert.True(t, inbox.Enabled, "enabled defaults to true")
	assert.True(t, inbox.ExtractText)
	assert.Equal(t, model.RenameFreeForm, inbox.RenameMode)

	media := cfg.Folders[1]
	assert.Equal(t, "media", media.ID)
	assert.False(t, media.Enabled)
	assert.Equal(t, model.WatchDepthUnbounded, media.WatchDepth, "depth defaults to unbounded")
	assert.Equal(t, model.RenameRuleBased, media.RenameMode)
	assert.Equal(t, "<date> - <topic>", media.RenameRule)
}

func TestLoadRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{
			name: "folder without path",
			yaml: "folders:\n  - prompt: hello\n",
			want: common.ErrMissingConfig,
		},
		{
			name: "duplicate folder ids",
			yaml: "folders:\n  - path: /a/inbox\n  - path: /b/inbox\n",
			want: common.ErrInvalidConfig,
		},
		{
			name: "unknown rename mode",
			yaml: "folders:\n  - path: /srv/inbox\n    rename_mode: shouty\n",
			want: common.ErrInvalidConfig,
		},
		{
			name: "unknown backend kind",
			yaml: "backend:\n  kind: carrier-pigeon\n",
			want: common.ErrInvalidConfig,
		},
		{
			name: "openai backend without key",
			yaml: "backend:\n  kind: openai\n",
			want: common.ErrMissingConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadYAML(t, tt.yaml)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadOpenAIBackend(t *testing.T) {
	cfg, err := loadYAML(t, `
backend:
  kind: openai
  api_key: sk-test
  model: gpt-4o-mini
  requests_per_minute: 10
`)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Backend.Kind)
	assert.Equal(t, "sk-test", cfg.Backend.APIKey)
	assert.Equal(t, 10, cfg.Backend.RequestsPerMinute)
}

func TestExpandPath(t *testing.T) {
	t.Setenv("SHELFWISE_TEST_DIR", "/var/data")

	assert.Equal(t, "/var/data/files", ExpandPath("$SHELFWISE_TEST_DIR/files"))
	assert.Equal(t, "", ExpandPath(""))
	assert.NotContains(t, ExpandPath("~/documents"), "~")
}
