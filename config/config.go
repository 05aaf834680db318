// Package config provides configuration for the engine.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the engine configuration, loaded from the environment.
type Config struct {
	// Server settings
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" default:"file:bioflow.db?cache=shared&mode=rwc"`

	// Session lifecycle
	MaxSessionAge time.Duration `envconfig:"MAX_SESSION_AGE" default:"24h"`
	SweepSchedule string        `envconfig:"SWEEP_SCHEDULE" default:"@every 1h"`
	HistoryWindow int           `envconfig:"HISTORY_WINDOW" default:"20"`

	// Analysis limits
	MaxSequenceLength int `envconfig:"MAX_SEQUENCE_LENGTH" default:"100000"`
	MinORFLength      int `envconfig:"MIN_ORF_LENGTH" default:"0"`
	MaxORFPredictions int `envconfig:"MAX_ORF_PREDICTIONS" default:"5"`

	// Retry policy for external collaborator calls
	RetryMaxAttempts    int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialBackoff time.Duration `envconfig:"RETRY_INITIAL_BACKOFF" default:"500ms"`
	RetryMaxBackoff     time.Duration `envconfig:"RETRY_MAX_BACKOFF" default:"30s"`

	// Text-completion collaborator
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	Model        string `envconfig:"MODEL" default:"gemini-2.5-flash"`
	OfflineMode  bool   `envconfig:"OFFLINE_MODE" default:"false"`

	// Metrics
	MetricsExportPath string `envconfig:"METRICS_EXPORT_PATH" default:"metrics/export.json"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load loads configuration from environment variables prefixed with BIOFLOW.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("BIOFLOW", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
