// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/antyra/ranksync/internal/rank"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Serper   SerperConfig   `mapstructure:"serper"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Matching MatchingConfig `mapstructure:"matching"`
	Sheets   SheetsConfig   `mapstructure:"sheets"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Targets  []TargetConfig `mapstructure:"targets"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// SerperConfig governs the ranking API client.
type SerperConfig struct {
	APIKey            string `mapstructure:"api_key"`
	BaseURL           string `mapstructure:"base_url"`
	Country           string `mapstructure:"country"`
	Language          string `mapstructure:"language"`
	Results           int    `mapstructure:"results"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
	RetryAttempts     int    `mapstructure:"retry_attempts"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds"`
	ThrottleMs        int    `mapstructure:"throttle_ms"`
}

// SyncConfig shapes the per-run worker pool and the optional schedule.
type SyncConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	// IntervalMinutes enables the scheduler when > 0.
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

// CacheConfig controls the in-memory result cache.
type CacheConfig struct {
	TTLMinutes int `mapstructure:"ttl_minutes"`
}

// MatchingConfig selects how result links are matched to domains.
type MatchingConfig struct {
	Strategy string `mapstructure:"strategy"`
}

// SheetsConfig locates the tracked spreadsheet and its credentials.
type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	Provider        string `mapstructure:"provider"`
}

// ArchiveConfig names the blob location for snapshot archives. An empty URI
// disables archiving.
type ArchiveConfig struct {
	URI string `mapstructure:"uri"`
}

// DBConfig controls access to the run history database. An empty DSN keeps
// history in memory.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int    `mapstructure:"max_conns"`
	MinConns int    `mapstructure:"min_conns"`
}

// PubSubConfig holds metadata for run completion notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// TargetConfig declares one tracked domain and its worksheet.
type TargetConfig struct {
	Domain      string `mapstructure:"domain"`
	SheetGID    int64  `mapstructure:"sheet_gid"`
	DisplayName string `mapstructure:"display_name"`
}

// Sheet store provider names.
const (
	SheetsProviderGoogle = "google"
	SheetsProviderMemory = "memory"
)

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RANKSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("serper.base_url", "https://google.serper.dev")
	v.SetDefault("serper.country", "LK")
	v.SetDefault("serper.language", "en")
	v.SetDefault("serper.results", 100)
	v.SetDefault("serper.timeout_seconds", 30)
	v.SetDefault("serper.retry_attempts", 3)
	v.SetDefault("serper.retry_delay_seconds", 1)
	v.SetDefault("serper.throttle_ms", 150)
	v.SetDefault("sync.concurrency", 5)
	v.SetDefault("sync.interval_minutes", 0)
	v.SetDefault("cache.ttl_minutes", 30)
	v.SetDefault("matching.strategy", rank.MatchStrategySubstring)
	v.SetDefault("sheets.provider", SheetsProviderGoogle)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Serper.APIKey == "" {
		return fmt.Errorf("serper.api_key is required")
	}
	if c.Serper.Results <= 0 || c.Serper.Results > 100 {
		return fmt.Errorf("serper.results must be in 1..100")
	}
	if c.Serper.TimeoutSeconds <= 0 {
		return fmt.Errorf("serper.timeout_seconds must be > 0")
	}
	if c.Serper.RetryAttempts <= 0 {
		return fmt.Errorf("serper.retry_attempts must be > 0")
	}
	if c.Serper.RetryDelaySeconds <= 0 {
		return fmt.Errorf("serper.retry_delay_seconds must be > 0")
	}
	if c.Serper.ThrottleMs < 100 {
		return fmt.Errorf("serper.throttle_ms must be >= 100")
	}
	if c.Sync.Concurrency <= 0 {
		return fmt.Errorf("sync.concurrency must be > 0")
	}
	if c.Cache.TTLMinutes < 0 {
		return fmt.Errorf("cache.ttl_minutes must be >= 0")
	}
	if _, err := rank.MatcherFor(c.Matching.Strategy); err != nil {
		return fmt.Errorf("matching.strategy: %w", err)
	}
	switch c.Sheets.Provider {
	case SheetsProviderGoogle:
		if c.Sheets.CredentialsFile == "" {
			return fmt.Errorf("sheets.credentials_file is required for the google provider")
		}
	case SheetsProviderMemory:
	default:
		return fmt.Errorf("unknown sheets.provider %q", c.Sheets.Provider)
	}
	if c.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("sheets.spreadsheet_id is required")
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("at least one target is required")
	}
	seen := make(map[string]bool, len(c.Targets))
	for i, t := range c.Targets {
		domain := strings.ToLower(strings.TrimSpace(t.Domain))
		if domain == "" {
			return fmt.Errorf("targets[%d].domain is required", i)
		}
		if t.SheetGID < 0 {
			return fmt.Errorf("targets[%d].sheet_gid must be >= 0", i)
		}
		if seen[domain] {
			return fmt.Errorf("targets[%d].domain %q is duplicated", i, t.Domain)
		}
		seen[domain] = true
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// SerperTimeout is the per-request timeout for the ranking API.
func (c Config) SerperTimeout() time.Duration {
	return time.Duration(c.Serper.TimeoutSeconds) * time.Second
}

// RetryDelay is the fixed wait between ranking API attempts.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.Serper.RetryDelaySeconds) * time.Second
}

// ThrottleInterval is the minimum spacing between ranking API calls.
func (c Config) ThrottleInterval() time.Duration {
	return time.Duration(c.Serper.ThrottleMs) * time.Millisecond
}

// CacheTTL is the result cache lifetime; zero disables caching.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

// SyncInterval is the scheduler tick; zero disables the scheduler.
func (c Config) SyncInterval() time.Duration {
	return time.Duration(c.Sync.IntervalMinutes) * time.Minute
}

// RankTargets converts the configured targets for the orchestrator.
func (c Config) RankTargets() []rank.Target {
	out := make([]rank.Target, 0, len(c.Targets))
	for _, t := range c.Targets {
		out = append(out, rank.Target{
			Domain:      strings.TrimSpace(t.Domain),
			SheetID:     t.SheetGID,
			DisplayName: t.DisplayName,
		})
	}
	return out
}

// Domains lists the configured domains in target order.
func (c Config) Domains() []string {
	out := make([]string, 0, len(c.Targets))
	for _, t := range c.Targets {
		out = append(out, strings.TrimSpace(t.Domain))
	}
	return out
}
