package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Strava.ClientID = "12345"
	cfg.Strava.ClientSecret = "abc123secret"
	cfg.Strava.RefreshToken = "refresh"
	cfg.Notion.Token = "secret_notion"
	cfg.Notion.DatabaseID = "db-activities"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Sync.LookbackDays != 30 {
		t.Errorf("Sync.LookbackDays = %v, want 30", cfg.Sync.LookbackDays)
	}
	if cfg.Sync.FailureThreshold != 0.2 {
		t.Errorf("Sync.FailureThreshold = %v, want 0.2", cfg.Sync.FailureThreshold)
	}
	if cfg.Athlete.Name != "Athlete" {
		t.Errorf("Athlete.Name = %q, want %q", cfg.Athlete.Name, "Athlete")
	}
	if cfg.Notion.WriteInterval != 100*time.Millisecond {
		t.Errorf("Notion.WriteInterval = %v, want 100ms", cfg.Notion.WriteInterval)
	}
	if cfg.Stats.RetentionDays != 30 {
		t.Errorf("Stats.RetentionDays = %v, want 30", cfg.Stats.RetentionDays)
	}

	// Credentials are never defaulted
	if cfg.Strava.ClientID != "" || cfg.Notion.Token != "" {
		t.Error("credentials should be empty by default")
	}
	if cfg.DailySummaryEnabled() || cfg.AthleteMetricsEnabled() {
		t.Error("optional tables should be disabled by default")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errContains string
	}{
		{
			name:        "valid config",
			mutate:      func(*Config) {},
			expectError: false,
		},
		{
			name:        "missing refresh token",
			mutate:      func(c *Config) { c.Strava.RefreshToken = "" },
			expectError: true,
			errContains: "STRAVA_REFRESH_TOKEN",
		},
		{
			name:        "blank notion token",
			mutate:      func(c *Config) { c.Notion.Token = "   " },
			expectError: true,
			errContains: "NOTION_TOKEN",
		},
		{
			name: "all missing reported together",
			mutate: func(c *Config) {
				c.Strava.ClientID = ""
				c.Notion.DatabaseID = ""
			},
			expectError: true,
			errContains: "STRAVA_CLIENT_ID, NOTION_DATABASE_ID",
		},
		{
			name:        "zero lookback",
			mutate:      func(c *Config) { c.Sync.LookbackDays = 0 },
			expectError: true,
			errContains: "lookback_days",
		},
		{
			name:        "threshold above one",
			mutate:      func(c *Config) { c.Sync.FailureThreshold = 1.5 },
			expectError: true,
			errContains: "failure_threshold",
		},
		{
			name:        "negative write interval",
			mutate:      func(c *Config) { c.Notion.WriteInterval = -time.Second },
			expectError: true,
			errContains: "write_interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				} else if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q should contain %q", err.Error(), tt.errContains)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateMissingIsSentinel(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	if !errors.Is(err, ErrMissingConfig) {
		t.Fatalf("expected ErrMissingConfig, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(verr.Missing) != 5 {
		t.Errorf("Missing = %v, want 5 entries", verr.Missing)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("STRAVA_CLIENT_ID", "42")
	t.Setenv("STRAVA_CLIENT_SECRET", "shh")
	t.Setenv("STRAVA_REFRESH_TOKEN", "rt")
	t.Setenv("NOTION_TOKEN", "nt")
	t.Setenv("NOTION_DATABASE_ID", "db")
	t.Setenv("NOTION_DAILY_SUMMARY_DATABASE_ID", "daily")
	t.Setenv("SYNC_DAYS", "14")
	t.Setenv("FAILURE_THRESHOLD", "0.35")
	t.Setenv("NOTION_WRITE_INTERVAL", "250ms")
	t.Setenv("ATHLETE_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Strava.ClientID != "42" {
		t.Errorf("Strava.ClientID = %q, want %q", cfg.Strava.ClientID, "42")
	}
	if cfg.Sync.LookbackDays != 14 {
		t.Errorf("Sync.LookbackDays = %d, want 14", cfg.Sync.LookbackDays)
	}
	if cfg.Sync.FailureThreshold != 0.35 {
		t.Errorf("Sync.FailureThreshold = %v, want 0.35", cfg.Sync.FailureThreshold)
	}
	if cfg.Notion.WriteInterval != 250*time.Millisecond {
		t.Errorf("Notion.WriteInterval = %v, want 250ms", cfg.Notion.WriteInterval)
	}
	if !cfg.DailySummaryEnabled() {
		t.Error("daily summary should be enabled")
	}
	if cfg.AthleteMetricsEnabled() {
		t.Error("athlete metrics should be disabled")
	}
	// Empty variable keeps the default
	if cfg.Athlete.Name != "Athlete" {
		t.Errorf("Athlete.Name = %q, want default", cfg.Athlete.Name)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadYAMLFileUnderEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yamlPath := filepath.Join(dir, "sync.yaml")
	content := "athlete:\n  name: Jordan\nsync:\n  lookback_days: 7\nlogging:\n  level: debug\n"
	if err := os.WriteFile(yamlPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, yamlPath)
	t.Setenv("SYNC_DAYS", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Athlete.Name != "Jordan" {
		t.Errorf("Athlete.Name = %q, want Jordan", cfg.Athlete.Name)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	// Environment wins over the file
	if cfg.Sync.LookbackDays != 10 {
		t.Errorf("Sync.LookbackDays = %d, want 10", cfg.Sync.LookbackDays)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigPathEnvVar, "")
	// Registered so the test restores the variable godotenv sets
	t.Setenv("PUSHGATEWAY_URL", "")
	os.Unsetenv("PUSHGATEWAY_URL")

	if err := os.WriteFile(".env", []byte("PUSHGATEWAY_URL=http://push:9091\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Metrics.PushgatewayURL != "http://push:9091" {
		t.Errorf("Metrics.PushgatewayURL = %q", cfg.Metrics.PushgatewayURL)
	}
}
