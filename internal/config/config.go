package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	PermissionGranted = "granted"
	PermissionDenied  = "denied"
)

// Config struct for environment variables.
type Config struct {
	DownloadsDir       string        `envconfig:"DOWNLOADS_DIR"`
	ChunkSize          int           `envconfig:"CHUNK_SIZE" default:"32768"`
	Foreground         bool          `envconfig:"FOREGROUND" default:"false"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"INFO"`
	DiscordWebhookURL  string        `envconfig:"DISCORD_WEBHOOK_URL"`
	SourceToken        string        `envconfig:"SOURCE_TOKEN"`
	DBPath             string        `envconfig:"DB_PATH" default:"runs.db"`
	KeepDownloadedFor  time.Duration `envconfig:"KEEP_DOWNLOADED_FOR" default:"0"`
	CleanupInterval    time.Duration `envconfig:"CLEANUP_INTERVAL" default:"10m"`
	PermissionOverride string        `envconfig:"PERMISSION_OVERRIDE"`

	Telemetry struct {
		Enabled      bool   `split_words:"true" default:"true"`
		ServiceName  string `split_words:"true" default:"fetchd"`
		OTLPEndpoint string `envconfig:"OTLP_ENDPOINT"`
	}

	Web struct {
		BindAddress     string        `split_words:"true" default:"0.0.0.0:9092"`
		ReadTimeout     time.Duration `split_words:"true" default:"30s"`
		IdleTimeout     time.Duration `split_words:"true" default:"5s"`
		ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
	}
}

// LoadConfig reads environment variables and populates the Config struct.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects values envconfig accepts but the service cannot run with.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("invalid CHUNK_SIZE %d: must be positive", c.ChunkSize)
	}

	switch strings.ToLower(c.PermissionOverride) {
	case "", PermissionGranted, PermissionDenied:
	default:
		return fmt.Errorf("invalid PERMISSION_OVERRIDE %q: want %q or %q", c.PermissionOverride, PermissionGranted, PermissionDenied)
	}

	if c.KeepDownloadedFor < 0 {
		return fmt.Errorf("invalid KEEP_DOWNLOADED_FOR %s: must not be negative", c.KeepDownloadedFor)
	}

	if c.KeepDownloadedFor > 0 && c.CleanupInterval <= 0 {
		return fmt.Errorf("invalid CLEANUP_INTERVAL %s: must be positive when retention is enabled", c.CleanupInterval)
	}

	return nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
