package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"strava-notion-sync/internal/config"
	"strava-notion-sync/internal/logging"
	"strava-notion-sync/internal/notion"
	"strava-notion-sync/internal/service"
	"strava-notion-sync/internal/store"
	"strava-notion-sync/internal/strava"
	"strava-notion-sync/internal/transport"
	"strava-notion-sync/internal/weather"
)

// statusRuns is how many recent runs the status view charts
const statusRuns = 30

func main() {
	schedule := flag.String("schedule", "", "cron expression; run on this schedule instead of once (overrides SYNC_SCHEDULE)")
	status := flag.Bool("status", false, "show recent run statistics and exit")
	flag.Parse()

	os.Exit(run(*schedule, *status))
}

func run(schedule string, status bool) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Loading config failed: %v\n", err)
		return 1
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})

	// Open the run statistics database
	db, err := store.Open(cfg.Stats.Path)
	if err != nil {
		logging.Error().Err(err).Str("path", cfg.Stats.Path).Msg("Opening stats database failed")
		return 1
	}
	defer db.Close()

	if status {
		return showStatus(ctx, db)
	}

	// Validate config
	if err := cfg.Validate(); err != nil {
		logging.Error().Err(err).Msg("Config validation failed")
		return 1
	}

	svc := newSyncService(cfg, db)

	if schedule == "" {
		schedule = cfg.Sync.Schedule
	}
	if schedule != "" {
		return runScheduled(ctx, cfg, svc, schedule)
	}
	return runOnce(ctx, cfg, svc)
}

// newSyncService wires the Strava, Notion and weather clients into a
// SyncService
func newSyncService(cfg *config.Config, db *store.Store) *service.SyncService {
	sourceHTTP := transport.NewHTTPClient(transport.SourcePolicy(), service.RecordHTTPRetry)
	destHTTP := transport.NewHTTPClient(transport.DefaultPolicy(), service.RecordHTTPRetry)

	stravaClient := strava.NewClient(strava.Options{
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: cfg.Strava.ClientSecret,
		RefreshToken: cfg.Strava.RefreshToken,
		BaseURL:      cfg.Strava.BaseURL,
		TokenURL:     cfg.Strava.TokenURL,
		HTTPClient:   sourceHTTP,
	})

	notionClient := notion.NewClient(notion.Options{
		Token:         cfg.Notion.Token,
		BaseURL:       cfg.Notion.BaseURL,
		HTTPClient:    destHTTP,
		WriteInterval: cfg.Notion.WriteInterval,
	})
	schemas := notion.NewSchemaCache(notionClient)

	weatherClient := weather.NewFromKey(cfg.Weather.APIKey, destHTTP)
	logging.Info().Str("provider", weatherClient.Provider()).Msg("Weather enrichment enabled")

	deps := service.Deps{
		Source:     stravaClient,
		Activities: notion.NewActivityTable(notionClient, schemas, cfg.Notion.DatabaseID),
		Weather:    weatherClient,
		Stats:      db,
		Schemas:    schemas,
	}
	if cfg.DailySummaryEnabled() {
		deps.Daily = notion.NewDailySummaryTable(notionClient, schemas, cfg.Notion.DailySummaryDatabaseID)
	}
	if cfg.AthleteMetricsEnabled() {
		deps.Athlete = notion.NewAthleteMetricsTable(notionClient, schemas, cfg.Notion.AthleteMetricsDatabaseID)
	}

	return service.NewSyncService(deps, service.Options{
		LookbackDays:     cfg.Sync.LookbackDays,
		FailureThreshold: cfg.Sync.FailureThreshold,
		AthleteName:      cfg.Athlete.Name,
		StatsRetention:   time.Duration(cfg.Stats.RetentionDays) * 24 * time.Hour,
	})
}

// runOnce performs a single sync and maps its result to an exit code
func runOnce(ctx context.Context, cfg *config.Config, svc *service.SyncService) int {
	rs, err := svc.Run(ctx)
	fmt.Println(service.RenderSummary(rs))
	pushMetrics(cfg)

	if err != nil {
		if errors.Is(err, service.ErrFailureThreshold) {
			logging.Error().Err(err).Msg("Too many activities failed")
		} else {
			logging.Error().Err(err).Msg("Sync failed")
		}
		return 1
	}
	return 0
}

// runScheduled runs the sync on a cron schedule until a signal arrives.
// A run still in progress when the next tick fires is not overlapped.
func runScheduled(ctx context.Context, cfg *config.Config, svc *service.SyncService, expr string) int {
	log := logging.Component("scheduler")
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(expr, func() {
		rs, err := svc.Run(ctx)
		fmt.Println(service.RenderSummary(rs))
		pushMetrics(cfg)
		if err != nil {
			log.Error().Err(err).Msg("Scheduled sync failed")
		}
	})
	if err != nil {
		log.Error().Err(err).Str("schedule", expr).Msg("Invalid schedule")
		return 1
	}

	c.Start()
	log.Info().Str("schedule", expr).Msg("Scheduler started")

	<-ctx.Done()
	log.Info().Msg("Shutting down; waiting for the current run")
	<-c.Stop().Done()
	return 0
}

func pushMetrics(cfg *config.Config) {
	if cfg.Metrics.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := service.PushMetrics(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
		logging.Warn().Err(err).Str("url", cfg.Metrics.PushgatewayURL).Msg("Pushing metrics failed")
	}
}

func showStatus(ctx context.Context, db *store.Store) int {
	runs, err := db.RecentRunStats(ctx, statusRuns)
	if err != nil {
		logging.Error().Err(err).Msg("Reading run stats failed")
		return 1
	}
	lastSuccess, err := db.GetSyncState(ctx, store.KeyLastSuccessfulSync)
	if err != nil {
		logging.Error().Err(err).Msg("Reading sync state failed")
		return 1
	}
	fmt.Println(service.RenderStatus(runs, lastSuccess))
	return 0
}
