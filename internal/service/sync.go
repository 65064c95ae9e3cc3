package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"strava-notion-sync/internal/analysis"
	"strava-notion-sync/internal/logging"
	"strava-notion-sync/internal/model"
	"strava-notion-sync/internal/notion"
	"strava-notion-sync/internal/store"
)

// ErrFailureThreshold is returned when too many activities failed to sync
var ErrFailureThreshold = errors.New("failure rate exceeded threshold")

// Source is the activity platform
type Source interface {
	Authenticate(ctx context.Context) error
	ListRecentActivities(ctx context.Context, lookbackDays int) ([]model.Activity, error)
	GetHeartRateStream(ctx context.Context, activityID int64) (*model.Stream, error)
	GetPrimaryPhotoURL(ctx context.Context, activityID int64) string
	GetAthleteHeartRateZones(ctx context.Context) ([]model.Zone, error)
}

// ActivityStore is the destination table for activities
type ActivityStore interface {
	ExistingPages(ctx context.Context, since time.Time) (map[int64]string, error)
	FindPage(ctx context.Context, activityID int64) (string, error)
	Write(ctx context.Context, a model.Activity, e model.Enrichment, pageID string) (notion.Outcome, error)
}

type DailyStore interface {
	Upsert(ctx context.Context, d model.DailySummary) (notion.Outcome, error)
}

type AthleteStore interface {
	Upsert(ctx context.Context, athlete string, m model.AthleteMetrics, now time.Time) (notion.Outcome, error)
}

// WeatherLookup returns nil when no weather is available
type WeatherLookup interface {
	Lookup(ctx context.Context, lat, lon float64, localStart time.Time) *model.Weather
}

// RateLimited is implemented by sources that track their API quota
type RateLimited interface {
	RateLimitStatus() (shortRemaining, dailyRemaining int)
}

// StatsSink persists run statistics
type StatsSink interface {
	AppendRunStats(ctx context.Context, rs *store.RunStats, retention time.Duration) (int64, error)
	SetSyncState(ctx context.Context, key, value string) error
}

// RunScoped is state that lives for one run, such as a schema cache
type RunScoped interface {
	Reset()
}

// Options tune a SyncService
type Options struct {
	LookbackDays     int
	FailureThreshold float64
	AthleteName      string
	StatsRetention   time.Duration
}

// Deps are the collaborators of a SyncService. Daily, Athlete, Weather
// and Stats are optional; a nil value disables that step. Schemas is
// reset at the start of every run.
type Deps struct {
	Source     Source
	Activities ActivityStore
	Daily      DailyStore
	Athlete    AthleteStore
	Weather    WeatherLookup
	Stats      StatsSink
	Schemas    RunScoped
}

// SyncService orchestrates one sync run from Strava into Notion
type SyncService struct {
	deps Deps
	opts Options
	log  zerolog.Logger
	now  func() time.Time
}

// NewSyncService creates a new sync service
func NewSyncService(deps Deps, opts Options) *SyncService {
	return &SyncService{
		deps: deps,
		opts: opts,
		log:  logging.Component("sync"),
		now:  time.Now,
	}
}

// Run performs a full sync: authenticate -> list -> enrich and upsert ->
// daily summary -> athlete metrics -> persist stats.
//
// Authentication and listing failures abort the run before any write.
// Per-activity failures are counted; when they exceed the failure
// threshold the run still completes its sub-syncs and persists stats, then
// returns ErrFailureThreshold.
func (s *SyncService) Run(ctx context.Context) (*store.RunStats, error) {
	if s.deps.Schemas != nil {
		s.deps.Schemas.Reset()
	}

	stats := store.NewRunStats(s.now())
	stats.DailySummary.Enabled = s.deps.Daily != nil
	stats.AthleteMetrics.Enabled = s.deps.Athlete != nil

	s.log.Info().
		Str("run_id", stats.RunID.String()).
		Int("lookback_days", s.opts.LookbackDays).
		Bool("daily_summary", stats.DailySummary.Enabled).
		Bool("athlete_metrics", stats.AthleteMetrics.Enabled).
		Msg("Starting sync")

	// Phase 1: Authenticate
	if err := s.deps.Source.Authenticate(ctx); err != nil {
		return stats, s.abort(ctx, stats, fmt.Errorf("authenticating: %w", err))
	}

	// Phase 2: Fetch activities
	activities, err := s.deps.Source.ListRecentActivities(ctx, s.opts.LookbackDays)
	if err != nil {
		return stats, s.abort(ctx, stats, fmt.Errorf("listing activities: %w", err))
	}
	stats.Workouts.Fetched = len(activities)

	if len(activities) == 0 {
		s.log.Info().Int("lookback_days", s.opts.LookbackDays).Msg("No activities in the lookback window")
		s.finish(ctx, stats)
		return stats, nil
	}

	// Phase 3: Enrich and upsert each activity
	enriched, err := s.syncActivities(ctx, activities, stats)
	if err != nil {
		return stats, s.abort(ctx, stats, err)
	}

	// Phase 4: Optional summary tables
	daily := analysis.DailyAggregate(enriched)
	s.syncDailySummaries(ctx, daily, stats)
	s.syncAthleteMetrics(ctx, daily, stats)

	// Phase 5: Failure gate
	if rate := stats.FailureRate(); rate > s.opts.FailureThreshold {
		stats.Status = store.StatusFailed
		stats.AddError(fmt.Sprintf("failure rate %.1f%% exceeds threshold %.1f%%", rate*100, s.opts.FailureThreshold*100))
		s.finish(ctx, stats)
		return stats, fmt.Errorf("%w: %d of %d activities failed", ErrFailureThreshold, stats.Workouts.Failed, stats.Workouts.Fetched)
	}

	s.finish(ctx, stats)
	return stats, nil
}

// syncActivities processes each activity in listing order and returns the
// enriched set used by the summary tables. It only returns an error when
// ctx is cancelled.
func (s *SyncService) syncActivities(ctx context.Context, activities []model.Activity, stats *store.RunStats) ([]model.EnrichedActivity, error) {
	zones := s.loadZones(ctx, stats)
	existing := s.prefetchPages(ctx, stats)

	enriched := make([]model.EnrichedActivity, 0, len(activities))
	seen := make(map[int64]bool, len(activities))

	for i, a := range activities {
		select {
		case <-ctx.Done():
			return enriched, fmt.Errorf("sync interrupted after %d of %d activities: %w", i, len(activities), ctx.Err())
		default:
		}

		if seen[a.ID] {
			stats.Workouts.Skipped++
			recordActivity(outcomeSkipped)
			s.log.Debug().Int64("activity_id", a.ID).Msg("Skipping duplicate activity")
			continue
		}
		seen[a.ID] = true

		ea, outcome, err := s.syncActivity(ctx, a, zones, existing)
		enriched = append(enriched, ea)

		switch {
		case err != nil:
			stats.Workouts.Failed++
			stats.AddError(fmt.Sprintf("activity %d: %v", a.ID, err))
			recordActivity(outcomeFailed)
			s.log.WithLevel(failureLevel(err)).Err(err).Int64("activity_id", a.ID).Str("type", a.Type).Msg("Activity sync failed")
		case outcome == notion.Created:
			stats.Workouts.Created++
			recordActivity(outcomeCreated)
		default:
			stats.Workouts.Updated++
			recordActivity(outcomeUpdated)
		}
	}

	return enriched, nil
}

// syncActivity enriches and writes one activity. A panic anywhere in the
// pipeline is returned as an error so the run continues.
func (s *SyncService) syncActivity(ctx context.Context, a model.Activity, zones []model.Zone, existing map[int64]string) (ea model.EnrichedActivity, outcome notion.Outcome, err error) {
	ea.Activity = a
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	pageID, ok := existing[a.ID]
	if !ok {
		pageID, err = s.deps.Activities.FindPage(ctx, a.ID)
		if err != nil {
			return ea, "", fmt.Errorf("looking up page: %w", err)
		}
	}

	var stream *model.Stream
	if analysis.NeedsStream(a, len(zones) > 0) {
		stream, err = s.deps.Source.GetHeartRateStream(ctx, a.ID)
		if err != nil {
			s.log.Warn().Err(err).Int64("activity_id", a.ID).Msg("HR stream unavailable")
			stream, err = nil, nil
		}
	}

	ea.Enrichment = analysis.Analyze(a, stream, zones)

	// Weather and photo are fetched once, when the page is created
	if pageID == "" {
		if s.deps.Weather != nil && wantsWeather(a) {
			ea.Enrichment.Weather = s.deps.Weather.Lookup(ctx, a.Start.Lat, a.Start.Lng, a.LocalStart())
		}
		ea.Enrichment.PhotoURL = s.deps.Source.GetPrimaryPhotoURL(ctx, a.ID)
	}

	outcome, err = s.deps.Activities.Write(ctx, a, ea.Enrichment, pageID)
	return ea, outcome, err
}

// failureLevel logs missing pages and properties as warnings; anything
// else is an error
func failureLevel(err error) zerolog.Level {
	if notion.IsSoftFailure(err) {
		return zerolog.WarnLevel
	}
	return zerolog.ErrorLevel
}

// wantsWeather reports whether an activity is outdoors with a start position
func wantsWeather(a model.Activity) bool {
	if analysis.IndoorSports[a.Type] || a.Start == nil {
		return false
	}
	return a.Start.Lat != 0 || a.Start.Lng != 0
}

// loadZones fetches the athlete's HR zones once per run. Failure leaves
// zone-derived metrics unset.
func (s *SyncService) loadZones(ctx context.Context, stats *store.RunStats) []model.Zone {
	zones, err := s.deps.Source.GetAthleteHeartRateZones(ctx)
	if err != nil {
		stats.AddWarning(fmt.Sprintf("hr zones unavailable: %v", err))
		s.log.Warn().Err(err).Msg("HR zones unavailable; zone minutes and load disabled")
		return nil
	}
	if len(zones) == 0 {
		s.log.Warn().Msg("Athlete has no HR zones configured")
	}
	return zones
}

// prefetchPages loads existing pages for the lookback window. On failure
// each activity falls back to its own lookup.
func (s *SyncService) prefetchPages(ctx context.Context, stats *store.RunStats) map[int64]string {
	since := s.now().AddDate(0, 0, -s.opts.LookbackDays)
	existing, err := s.deps.Activities.ExistingPages(ctx, since)
	if err != nil {
		stats.AddWarning(fmt.Sprintf("prefetching existing pages: %v", err))
		s.log.Warn().Err(err).Msg("Could not prefetch existing pages; looking up per activity")
		return map[int64]string{}
	}
	s.log.Debug().Int("pages", len(existing)).Msg("Prefetched existing pages")
	return existing
}

func (s *SyncService) syncDailySummaries(ctx context.Context, daily map[string]model.DailySummary, stats *store.RunStats) {
	if s.deps.Daily == nil {
		return
	}

	dates := make([]string, 0, len(daily))
	for date := range daily {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	for _, date := range dates {
		outcome, err := s.deps.Daily.Upsert(ctx, daily[date])
		if err != nil {
			stats.DailySummary.Failed++
			stats.AddWarning(fmt.Sprintf("daily summary %s: %v", date, err))
			recordSubsyncFailure(tableDailySummary)
			s.log.Warn().Err(err).Str("date", date).Msg("Daily summary upsert failed")
			continue
		}
		stats.DailySummary.DaysProcessed++
		if outcome == notion.Created {
			stats.DailySummary.Created++
		} else {
			stats.DailySummary.Updated++
		}
	}
}

func (s *SyncService) syncAthleteMetrics(ctx context.Context, daily map[string]model.DailySummary, stats *store.RunStats) {
	if s.deps.Athlete == nil {
		return
	}

	now := s.now().UTC()
	metrics := analysis.AthleteMetrics(daily, now)
	if _, err := s.deps.Athlete.Upsert(ctx, s.opts.AthleteName, metrics, now); err != nil {
		stats.AthleteMetrics.Failed++
		stats.AddWarning(fmt.Sprintf("athlete metrics: %v", err))
		recordSubsyncFailure(tableAthleteMetrics)
		s.log.Warn().Err(err).Str("athlete", s.opts.AthleteName).Msg("Athlete metrics upsert failed")
		return
	}
	stats.AthleteMetrics.Upserted++
	s.log.Info().
		Float64("load_7d", metrics.Load7d).
		Float64("load_28d", metrics.Load28d).
		Msg("Updated athlete metrics")
}

// abort marks the run failed, records err and persists the stats
func (s *SyncService) abort(ctx context.Context, stats *store.RunStats, err error) error {
	stats.Status = store.StatusFailed
	stats.AddError(err.Error())
	s.log.Error().Err(err).Msg("Sync aborted")
	s.finish(ctx, stats)
	return err
}

// finish stamps, logs and persists the run. Persistence failures are
// logged only.
func (s *SyncService) finish(ctx context.Context, stats *store.RunStats) {
	stats.FinishedAt = s.now().UTC()
	success := stats.Status == store.StatusOK
	recordRun(stats.Duration(), success, stats.FinishedAt)

	level := zerolog.InfoLevel
	if !success {
		level = zerolog.ErrorLevel
	}
	s.log.WithLevel(level).
		Str("run_id", stats.RunID.String()).
		Str("status", string(stats.Status)).
		Int("fetched", stats.Workouts.Fetched).
		Int("created", stats.Workouts.Created).
		Int("updated", stats.Workouts.Updated).
		Int("skipped", stats.Workouts.Skipped).
		Int("failed", stats.Workouts.Failed).
		Int("warnings", len(stats.Warnings)).
		Dur("duration", stats.Duration()).
		Msg("Sync finished")

	if rl, ok := s.deps.Source.(RateLimited); ok {
		short, daily := rl.RateLimitStatus()
		s.log.Debug().Int("short_remaining", short).Int("daily_remaining", daily).Msg("Strava rate limit")
	}

	if s.deps.Stats == nil {
		return
	}

	// Stats are written even when the run was cancelled
	ctx = context.WithoutCancel(ctx)
	pruned, err := s.deps.Stats.AppendRunStats(ctx, stats, s.opts.StatsRetention)
	if err != nil {
		s.log.Warn().Err(err).Msg("Could not persist run stats")
		return
	}
	if pruned > 0 {
		s.log.Debug().Int64("pruned", pruned).Msg("Pruned old run stats")
	}

	if success {
		if err := s.deps.Stats.SetSyncState(ctx, store.KeyLastSuccessfulSync, stats.FinishedAt.Format(time.RFC3339)); err != nil {
			s.log.Warn().Err(err).Msg("Could not record last successful sync")
		}
	}
}
