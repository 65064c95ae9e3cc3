package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the optional YAML config file location.
const ConfigPathEnvVar = "CONFIG_FILE"

// DefaultConfigPaths are searched in order when CONFIG_FILE is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

// envMappings maps environment variable names to koanf paths.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	"strava_client_id":                   "strava.client_id",
	"strava_client_secret":               "strava.client_secret",
	"strava_refresh_token":               "strava.refresh_token",
	"strava_base_url":                    "strava.base_url",
	"strava_token_url":                   "strava.token_url",
	"notion_token":                       "notion.token",
	"notion_database_id":                 "notion.database_id",
	"notion_daily_summary_database_id":   "notion.daily_summary_database_id",
	"notion_athlete_metrics_database_id": "notion.athlete_metrics_database_id",
	"notion_base_url":                    "notion.base_url",
	"notion_write_interval":              "notion.write_interval",
	"weather_api_key":                    "weather.api_key",
	"athlete_name":                       "athlete.name",
	"sync_days":                          "sync.lookback_days",
	"failure_threshold":                  "sync.failure_threshold",
	"sync_schedule":                      "sync.schedule",
	"stats_db_path":                      "stats.path",
	"stats_retention_days":               "stats.retention_days",
	"pushgateway_url":                    "metrics.pushgateway_url",
	"pushgateway_job":                    "metrics.job",
	"log_level":                          "logging.level",
	"log_format":                         "logging.format",
}

// Load builds the configuration from defaults, an optional YAML file and
// the environment, in increasing priority. A .env file in the working
// directory is loaded into the environment first if present; variables
// already set are not overridden.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := k.Load(structs.Provider(&defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransformFunc maps STRAVA_CLIENT_ID to strava.client_id. Blank values
// are dropped so an empty variable does not erase a file or default value.
func envTransformFunc(key string) string {
	mapped, ok := envMappings[strings.ToLower(key)]
	if !ok {
		return ""
	}
	if strings.TrimSpace(os.Getenv(key)) == "" {
		return ""
	}
	return mapped
}
