package store

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the overall result of one sync run
type RunStatus string

const (
	StatusOK     RunStatus = "ok"
	StatusFailed RunStatus = "failed"
)

// RunStats is the statistics record appended after every run
type RunStats struct {
	RunID          uuid.UUID           `json:"run_id"`
	Timestamp      time.Time           `json:"timestamp"`
	FinishedAt     time.Time           `json:"finished_at"`
	Status         RunStatus           `json:"status"`
	Workouts       WorkoutStats        `json:"workouts"`
	DailySummary   DailySummaryStats   `json:"daily_summary"`
	AthleteMetrics AthleteMetricsStats `json:"athlete_metrics"`
	Warnings       []string            `json:"warnings"`
	Errors         []string            `json:"errors"`
}

// WorkoutStats counts per-activity outcomes
type WorkoutStats struct {
	Fetched int `json:"fetched"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type DailySummaryStats struct {
	Enabled       bool `json:"enabled"`
	DaysProcessed int  `json:"days_processed"`
	Created       int  `json:"created"`
	Updated       int  `json:"updated"`
	Failed        int  `json:"failed"`
}

type AthleteMetricsStats struct {
	Enabled  bool `json:"enabled"`
	Upserted int  `json:"upserted"`
	Failed   int  `json:"failed"`
}

// NewRunStats starts a record for a run beginning at start
func NewRunStats(start time.Time) *RunStats {
	return &RunStats{
		RunID:     uuid.New(),
		Timestamp: start.UTC(),
		Status:    StatusOK,
		Warnings:  []string{},
		Errors:    []string{},
	}
}

// FailureRate is failed over fetched, zero when nothing was fetched
func (r *RunStats) FailureRate() float64 {
	if r.Workouts.Fetched == 0 {
		return 0
	}
	return float64(r.Workouts.Failed) / float64(r.Workouts.Fetched)
}

// Duration is the wall time of the run, zero while it is still running
func (r *RunStats) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.Timestamp)
}

func (r *RunStats) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

func (r *RunStats) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}
