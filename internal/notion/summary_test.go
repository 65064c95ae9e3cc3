package notion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strava-notion-sync/internal/model"
)

func TestDailySummaryUpsert(t *testing.T) {
	f, srv := newFakeNotion(t)
	f.schemas["daily"] = []string{
		"Date", "Total Duration (min)", "Total Moving Time (min)", "Total Distance (mi)",
		"Total Elevation (ft)", "Session Count", "Load (pts)", "Load Confidence",
	}
	c := newTestClient(srv)
	table := NewDailySummaryTable(c, NewSchemaCache(c), "daily")

	day := model.DailySummary{
		Date:                "2024-06-01",
		TotalDurationMin:    130,
		TotalMovingMin:      80,
		TotalDistanceMi:     7.46,
		TotalElevationFt:    328.1,
		SessionCount:        3,
		EligibleCardioCount: 2,
		LoadCount:           1,
		LoadPoints:          80,
	}

	ctx := context.Background()
	outcome, err := table.Upsert(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)

	props := f.last()
	assert.Equal(t, map[string]any{"date": map[string]any{"start": "2024-06-01"}}, props["Date"])
	assert.Equal(t, map[string]any{"number": 3.0}, props["Session Count"])
	assert.Equal(t, map[string]any{"number": 80.0}, props["Load (pts)"])
	assert.Equal(t, map[string]any{"select": map[string]any{"name": "Medium"}}, props["Load Confidence"])

	day.LoadCount = 2
	outcome, err = table.Upsert(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, Updated, outcome)
	assert.Equal(t, map[string]any{"select": map[string]any{"name": "High"}}, f.last()["Load Confidence"])
	assert.Len(t, f.pagesIn("daily"), 1)
}

func TestDailySummaryUpsertKeysByDate(t *testing.T) {
	f, srv := newFakeNotion(t)
	f.schemas["daily"] = []string{"Date", "Session Count"}
	c := newTestClient(srv)
	table := NewDailySummaryTable(c, NewSchemaCache(c), "daily")

	for _, date := range []string{"2024-06-01", "2024-06-02", "2024-06-01"} {
		_, err := table.Upsert(context.Background(), model.DailySummary{Date: date, SessionCount: 1})
		require.NoError(t, err)
	}
	assert.Len(t, f.pagesIn("daily"), 2)
	assert.Len(t, f.last(), 2)
}

func TestAthleteMetricsUpsert(t *testing.T) {
	f, srv := newFakeNotion(t)
	f.schemas["athlete"] = []string{"Name", "Updated At", "Load 7d", "Load 28d", "Load Balance"}
	c := newTestClient(srv)
	table := NewAthleteMetricsTable(c, NewSchemaCache(c), "athlete")
	now := time.Date(2024, 6, 30, 8, 0, 0, 0, time.UTC)

	balance := 0.5
	outcome, err := table.Upsert(context.Background(), "Sam", model.AthleteMetrics{
		Load7d: 10, Load28d: 20, LoadBalance: &balance,
	}, now)
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)

	props := f.last()
	assert.Equal(t, map[string]any{"date": map[string]any{"start": "2024-06-30T08:00:00Z"}}, props["Updated At"])
	assert.Equal(t, map[string]any{"number": 10.0}, props["Load 7d"])
	assert.Equal(t, map[string]any{"number": 20.0}, props["Load 28d"])
	assert.Equal(t, map[string]any{"number": 0.5}, props["Load Balance"])

	// Zero loads are left unset
	outcome, err = table.Upsert(context.Background(), "Sam", model.AthleteMetrics{}, now)
	require.NoError(t, err)
	assert.Equal(t, Updated, outcome)
	props = f.last()
	assert.NotContains(t, props, "Load 7d")
	assert.NotContains(t, props, "Load 28d")
	assert.NotContains(t, props, "Load Balance")
	assert.Contains(t, props, "Name")

	assert.Len(t, f.pagesIn("athlete"), 1)
}

func TestAthleteMetricsUpsertPropagatesErrors(t *testing.T) {
	f, srv := newFakeNotion(t)
	f.schemas["athlete"] = []string{"Name"}
	f.failWrite = &apiErrorBody{Status: 500, Code: "internal_server_error", Message: "unavailable"}
	c := newTestClient(srv)
	table := NewAthleteMetricsTable(c, NewSchemaCache(c), "athlete")

	_, err := table.Upsert(context.Background(), "Sam", model.AthleteMetrics{}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "athlete metrics for Sam")
	assert.False(t, IsSoftFailure(err))
}
