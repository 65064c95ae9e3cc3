package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	Strava  StravaConfig  `koanf:"strava"`
	Notion  NotionConfig  `koanf:"notion"`
	Weather WeatherConfig `koanf:"weather"`
	Athlete AthleteConfig `koanf:"athlete"`
	Sync    SyncConfig    `koanf:"sync"`
	Stats   StatsConfig   `koanf:"stats"`
	Metrics MetricsConfig `koanf:"metrics"`
	Logging LoggingConfig `koanf:"logging"`
}

// StravaConfig holds Strava API credentials
type StravaConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	RefreshToken string `koanf:"refresh_token"`
	BaseURL      string `koanf:"base_url"`
	TokenURL     string `koanf:"token_url"`
}

// NotionConfig holds the destination token and database ids.
// The daily summary and athlete metrics tables are optional.
type NotionConfig struct {
	Token                    string        `koanf:"token"`
	DatabaseID               string        `koanf:"database_id"`
	DailySummaryDatabaseID   string        `koanf:"daily_summary_database_id"`
	AthleteMetricsDatabaseID string        `koanf:"athlete_metrics_database_id"`
	BaseURL                  string        `koanf:"base_url"`
	WriteInterval            time.Duration `koanf:"write_interval"`
}

// WeatherConfig selects the weather provider. An empty APIKey means Open-Meteo.
type WeatherConfig struct {
	APIKey string `koanf:"api_key"`
}

// AthleteConfig holds athlete-specific settings
type AthleteConfig struct {
	Name string `koanf:"name"`
}

// SyncConfig controls the lookback window, failure gate and schedule
type SyncConfig struct {
	LookbackDays     int     `koanf:"lookback_days"`
	FailureThreshold float64 `koanf:"failure_threshold"`
	Schedule         string  `koanf:"schedule"`
}

// StatsConfig locates the run statistics database
type StatsConfig struct {
	Path          string `koanf:"path"`
	RetentionDays int    `koanf:"retention_days"`
}

// MetricsConfig configures the optional Prometheus Pushgateway
type MetricsConfig struct {
	PushgatewayURL string `koanf:"pushgateway_url"`
	Job            string `koanf:"job"`
}

// LoggingConfig mirrors logging.Config
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ErrMissingConfig is wrapped by validation errors for absent required values
var ErrMissingConfig = errors.New("missing required configuration")

// ValidationError lists every required environment variable that is unset
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingConfig, strings.Join(e.Missing, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrMissingConfig
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Strava: StravaConfig{
			BaseURL:  "https://www.strava.com/api/v3",
			TokenURL: "https://www.strava.com/oauth/token",
		},
		Notion: NotionConfig{
			BaseURL:       "https://api.notion.com/v1",
			WriteInterval: 100 * time.Millisecond,
		},
		Athlete: AthleteConfig{
			Name: "Athlete",
		},
		Sync: SyncConfig{
			LookbackDays:     30,
			FailureThreshold: 0.2,
		},
		Stats: StatsConfig{
			Path:          "sync_stats.db",
			RetentionDays: 30,
		},
		Metrics: MetricsConfig{
			Job: "strava_notion_sync",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DailySummaryEnabled reports whether the daily summary table is configured
func (c *Config) DailySummaryEnabled() bool {
	return c.Notion.DailySummaryDatabaseID != ""
}

// AthleteMetricsEnabled reports whether the athlete metrics table is configured
func (c *Config) AthleteMetricsEnabled() bool {
	return c.Notion.AthleteMetricsDatabaseID != ""
}

// Validate checks that credentials are present and tunables are in range.
// Missing credentials are reported together as a *ValidationError.
func (c *Config) Validate() error {
	required := []struct {
		env   string
		value string
	}{
		{"STRAVA_CLIENT_ID", c.Strava.ClientID},
		{"STRAVA_CLIENT_SECRET", c.Strava.ClientSecret},
		{"STRAVA_REFRESH_TOKEN", c.Strava.RefreshToken},
		{"NOTION_TOKEN", c.Notion.Token},
		{"NOTION_DATABASE_ID", c.Notion.DatabaseID},
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.env)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}

	if c.Sync.LookbackDays <= 0 {
		return fmt.Errorf("sync.lookback_days must be positive, got %d", c.Sync.LookbackDays)
	}
	if c.Sync.FailureThreshold < 0 || c.Sync.FailureThreshold > 1 {
		return fmt.Errorf("sync.failure_threshold must be between 0 and 1, got %v", c.Sync.FailureThreshold)
	}
	if c.Stats.RetentionDays <= 0 {
		return fmt.Errorf("stats.retention_days must be positive, got %d", c.Stats.RetentionDays)
	}
	if c.Notion.WriteInterval < 0 {
		return fmt.Errorf("notion.write_interval must not be negative, got %s", c.Notion.WriteInterval)
	}

	return nil
}
