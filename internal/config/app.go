package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/tuskthread/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"TUSK_RUNTIME_PATH" envDefault:".tuskthread"`

	// Context Management
	HotWindowSize int `env:"HOT_WINDOW_SIZE" envDefault:"8"`
	TemporalTurns int `env:"TEMPORAL_TURNS" envDefault:"3"`
	KeywordTurns  int `env:"KEYWORD_TURNS" envDefault:"3"`

	// Archival
	ArchiveBatchSize      int           `env:"ARCHIVE_BATCH_SIZE" envDefault:"10"`
	DigestMaxTokens       int           `env:"DIGEST_MAX_TOKENS" envDefault:"40"`
	TokenizerEncoding     string        `env:"TOKENIZER_ENCODING"`
	CompactionTimeout     time.Duration `env:"COMPACTION_TIMEOUT" envDefault:"1m"`
	CompactionConcurrency int           `env:"COMPACTION_CONCURRENCY" envDefault:"2"`

	// Documents
	Cooldown     time.Duration `env:"COOLDOWN" envDefault:"5m"`
	SyncInterval time.Duration `env:"SYNC_INTERVAL" envDefault:"10s"`

	// Generation
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"2m"`
	Provider          string        `env:"LLM_PROVIDER" envDefault:"openai"`
	Model             string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	APIKey            string        `env:"LLM_API_KEY"`
	BaseURL           string        `env:"LLM_BASE_URL"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	c.RuntimePath = GetRuntimePath()
	return c
}

// NewDefaultConfig returns the envDefault values without reading the environment.
func NewDefaultConfig() *AppConfig {
	c := &AppConfig{}
	_ = env.ParseWithOptions(c, env.Options{Environment: map[string]string{}})
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "tuskthread.db")
}

func (c AppConfig) GetDocumentsPath() string {
	return filepath.Join(c.RuntimePath, "documents")
}

func (c AppConfig) GetInputHistoryPath() string {
	return filepath.Join(c.RuntimePath, "input_history")
}

func (c AppConfig) GetHotWindowSize() int { return c.HotWindowSize }

func (c AppConfig) GetTemporalTurns() int { return c.TemporalTurns }

func (c AppConfig) GetKeywordTurns() int { return c.KeywordTurns }

func (c AppConfig) GetArchiveBatchSize() int { return c.ArchiveBatchSize }

func (c AppConfig) GetDigestMaxTokens() int { return c.DigestMaxTokens }

func (c AppConfig) GetCompactionTimeout() time.Duration { return c.CompactionTimeout }

func (c AppConfig) GetCompactionConcurrency() int { return c.CompactionConcurrency }

func (c AppConfig) GetCooldown() time.Duration { return c.Cooldown }

func (c AppConfig) GetSyncInterval() time.Duration { return c.SyncInterval }

func (c AppConfig) GetGenerationTimeout() time.Duration { return c.GenerationTimeout }

func (c AppConfig) GetProvider() string { return c.Provider }

func (c AppConfig) GetModel() string { return c.Model }

func (c AppConfig) GetAPIKey() string { return c.APIKey }

func (c AppConfig) GetBaseURL() string { return c.BaseURL }
