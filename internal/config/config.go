// Package config materializes the application's viper configuration into
// typed settings for the engine, the classification backend, and the
// watched folders.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"shelfwise/internal/common"
	"shelfwise/internal/model"
)

// Config is the fully resolved application configuration.
type Config struct {
	Logging LoggingConfig
	Backend BackendConfig
	Engine  EngineConfig
	Notify  NotifyConfig
	History HistoryConfig
	Folders []model.FolderConfig
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// BackendConfig configures the classification backend.
type BackendConfig struct {
	Kind              string // "local" or "openai"
	BaseURL           string
	APIKey            string
	Model             string
	Temperature       float64
	MaxTokens         int
	MaxRetries        int
	RetryDelay        time.Duration
	RequestsPerMinute int
}

// EngineConfig holds the pipeline tunables.
type EngineConfig struct {
	Debounce time.Duration
	Cooldown time.Duration
	LogLimit int
}

// NotifyConfig configures the optional ntfy push channel. An empty topic
// disables notifications.
type NotifyConfig struct {
	Topic   string
	Timeout time.Duration
}

// HistoryConfig locates the audit database. An empty path disables
// persistence.
type HistoryConfig struct {
	Path string
}

// folderSpec is the on-disk shape of one watched-folder entry.
type folderSpec struct {
	ID          string   `mapstructure:"id"`
	Path        string   `mapstructure:"path"`
	Prompt      string   `mapstructure:"prompt"`
	Extensions  []string `mapstructure:"extensions"`
	RenameRule  string   `mapstructure:"rename_rule"`
	RenameMode  string   `mapstructure:"rename_mode"`
	WatchDepth  *int     `mapstructure:"watch_depth"`
	Enabled     *bool    `mapstructure:"enabled"`
	ExtractText bool     `mapstructure:"extract_text"`
	RenameFiles bool     `mapstructure:"rename_files"`
}

// SetDefaults registers every configuration default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("backend.kind", "local")
	v.SetDefault("backend.base_url", "http://localhost:11434")
	v.SetDefault("backend.model", "")
	v.SetDefault("backend.temperature", 0.2)
	v.SetDefault("backend.max_tokens", 300)
	v.SetDefault("backend.max_retries", 3)
	v.SetDefault("backend.retry_delay", "2s")
	v.SetDefault("backend.requests_per_minute", 30)

	v.SetDefault("engine.debounce", "2s")
	v.SetDefault("engine.cooldown", "60s")
	v.SetDefault("engine.log_limit", 200)

	v.SetDefault("notify.topic", "")
	v.SetDefault("notify.timeout", "10s")

	v.SetDefault("history.path", DefaultHistoryPath())
}

// Load resolves the configuration from v. Call SetDefaults first; Load
// validates what it reads but fills nothing in on its own.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Backend: BackendConfig{
			Kind:              v.GetString("backend.kind"),
			BaseURL:           v.GetString("backend.base_url"),
			APIKey:            v.GetString("backend.api_key"),
			Model:             v.GetString("backend.model"),
			Temperature:       v.GetFloat64("backend.temperature"),
			MaxTokens:         v.GetInt("backend.max_tokens"),
			MaxRetries:        v.GetInt("backend.max_retries"),
			RetryDelay:        v.GetDuration("backend.retry_delay"),
			RequestsPerMinute: v.GetInt("backend.requests_per_minute"),
		},
		Engine: EngineConfig{
			Debounce: v.GetDuration("engine.debounce"),
			Cooldown: v.GetDuration("engine.cooldown"),
			LogLimit: v.GetInt("engine.log_limit"),
		},
		Notify: NotifyConfig{
			Topic:   v.GetString("notify.topic"),
			Timeout: v.GetDuration("notify.timeout"),
		},
		History: HistoryConfig{
			Path: ExpandPath(v.GetString("history.path")),
		},
	}

	if err := validateBackend(cfg.Backend); err != nil {
		return nil, err
	}

	var specs []folderSpec
	if err := v.UnmarshalKey("folders", &specs); err != nil {
		return nil, fmt.Errorf("%w: folders: %v", common.ErrInvalidConfig, err)
	}

	seen := make(map[string]struct{}, len(specs))
	for i, spec := range specs {
		folder, err := spec.resolve(i)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[folder.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate folder id %q", common.ErrInvalidConfig, folder.ID)
		}
		seen[folder.ID] = struct{}{}
		cfg.Folders = append(cfg.Folders, folder)
	}

	return cfg, nil
}

func validateBackend(b BackendConfig) error {
	switch b.Kind {
	case "local":
	case "openai":
		if b.APIKey == "" {
			return fmt.Errorf("%w: backend.api_key is required for the openai backend", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: unknown backend kind %q", common.ErrInvalidConfig, b.Kind)
	}
	return nil
}

func (s folderSpec) resolve(index int) (model.FolderConfig, error) {
	if s.Path == "" {
		return model.FolderConfig{}, fmt.Errorf("%w: folders[%d].path is required", common.ErrMissingConfig, index)
	}

	path := ExpandPath(s.Path)

	id := s.ID
	if id == "" {
		id = filepath.Base(path)
	}

	mode := model.RenameMode(s.RenameMode)
	if mode == "" {
		mode = model.RenameFreeForm
	}
	if mode != model.RenameFreeForm && mode != model.RenameRuleBased {
		return model.FolderConfig{}, fmt.Errorf("%w: folders[%d].rename_mode must be %q or %q",
			common.ErrInvalidConfig, index, model.RenameFreeForm, model.RenameRuleBased)
	}

	depth := model.WatchDepthUnbounded
	if s.WatchDepth != nil {
		depth = *s.WatchDepth
	}

	enabled := true
	if s.Enabled != nil {
		enabled = *s.Enabled
	}

	return model.FolderConfig{
		ID:          id,
		Path:        path,
		Prompt:      s.Prompt,
		Extensions:  s.Extensions,
		RenameRule:  s.RenameRule,
		RenameMode:  mode,
		WatchDepth:  depth,
		Enabled:     enabled,
		ExtractText: s.ExtractText,
		RenameFiles: s.RenameFiles,
	}, nil
}
