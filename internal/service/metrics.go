package service

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Registry holds the sync metrics. It is separate from the default
// registry so a push carries only what a run produced.
var Registry = prometheus.NewRegistry()

var (
	// activitiesTotal counts per-activity outcomes
	activitiesTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "sync_activities_total",
		Help: "Activities processed, by outcome",
	}, []string{"outcome"})

	// subsyncFailuresTotal counts failed daily summary and athlete metrics upserts
	subsyncFailuresTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "sync_subsync_failures_total",
		Help: "Failed summary table upserts, by table",
	}, []string{"table"})

	httpRetriesTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "sync_http_retries_total",
		Help: "HTTP requests retried, by host and status",
	}, []string{"host", "status"})

	runDuration = promauto.With(Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_run_duration_seconds",
		Help:    "Wall time of a sync run",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
	})

	lastSuccess = promauto.With(Registry).NewGauge(prometheus.GaugeOpts{
		Name: "sync_last_success_timestamp_seconds",
		Help: "Unix time of the last run that passed the failure gate",
	})
)

const (
	outcomeCreated = "created"
	outcomeUpdated = "updated"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"

	tableDailySummary   = "daily_summary"
	tableAthleteMetrics = "athlete_metrics"
)

// RecordHTTPRetry counts one retried request. Status is 0 for transport
// errors. It matches the transport retry hook signature.
func RecordHTTPRetry(host string, status int) {
	httpRetriesTotal.WithLabelValues(host, strconv.Itoa(status)).Inc()
}

func recordActivity(outcome string) {
	activitiesTotal.WithLabelValues(outcome).Inc()
}

func recordSubsyncFailure(table string) {
	subsyncFailuresTotal.WithLabelValues(table).Inc()
}

func recordRun(d time.Duration, success bool, finished time.Time) {
	runDuration.Observe(d.Seconds())
	if success {
		lastSuccess.Set(float64(finished.Unix()))
	}
}

// PushMetrics sends Registry to the Pushgateway at url under job
func PushMetrics(ctx context.Context, url, job string) error {
	return push.New(url, job).Gatherer(Registry).PushContext(ctx)
}
