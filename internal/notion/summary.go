package notion

import (
	"context"
	"fmt"
	"time"

	"strava-notion-sync/internal/model"
)

// DailySummaryTable holds one row per local calendar date
type DailySummaryTable struct {
	client     *Client
	schemas    *SchemaCache
	databaseID string
}

// NewDailySummaryTable binds the daily summary database
func NewDailySummaryTable(client *Client, schemas *SchemaCache, databaseID string) *DailySummaryTable {
	return &DailySummaryTable{client: client, schemas: schemas, databaseID: databaseID}
}

// Upsert writes the row for d.Date
func (t *DailySummaryTable) Upsert(ctx context.Context, d model.DailySummary) (Outcome, error) {
	props := Properties{
		FieldDailyDate:       Date(d.Date),
		FieldSessionCount:    Number(float64(d.SessionCount)),
		FieldTotalDuration:   Number(d.TotalDurationMin),
		FieldTotalMovingTime: Number(d.TotalMovingMin),
		FieldTotalDistance:   Number(d.TotalDistanceMi),
		FieldTotalElevation:  Number(d.TotalElevationFt),
		FieldDailyLoad:       Number(d.LoadPoints),
		FieldLoadConfidence:  Select(string(d.Confidence())),
	}

	outcome, err := upsert(ctx, t.client, t.schemas, t.databaseID, map[string]any{
		"property": FieldDailyDate.Name(),
		"date":     map[string]string{"equals": d.Date},
	}, props)
	if err != nil {
		return "", fmt.Errorf("upserting daily summary %s: %w", d.Date, err)
	}
	return outcome, nil
}

// AthleteMetricsTable holds one row per athlete, keyed by name
type AthleteMetricsTable struct {
	client     *Client
	schemas    *SchemaCache
	databaseID string
}

// NewAthleteMetricsTable binds the athlete metrics database
func NewAthleteMetricsTable(client *Client, schemas *SchemaCache, databaseID string) *AthleteMetricsTable {
	return &AthleteMetricsTable{client: client, schemas: schemas, databaseID: databaseID}
}

// Upsert writes the athlete's row. Zero loads and a missing balance are
// left unset rather than written as zero.
func (t *AthleteMetricsTable) Upsert(ctx context.Context, athlete string, m model.AthleteMetrics, now time.Time) (Outcome, error) {
	props := Properties{
		FieldAthleteName: Title(athlete),
		FieldUpdatedAt:   Date(now.UTC().Format(time.RFC3339)),
	}
	if m.Load7d > 0 {
		props[FieldLoad7d] = Number(m.Load7d)
	}
	if m.Load28d > 0 {
		props[FieldLoad28d] = Number(m.Load28d)
	}
	if m.LoadBalance != nil {
		props[FieldLoadBalance] = Number(*m.LoadBalance)
	}

	outcome, err := upsert(ctx, t.client, t.schemas, t.databaseID, map[string]any{
		"property": FieldAthleteName.Name(),
		"title":    map[string]string{"equals": athlete},
	}, props)
	if err != nil {
		return "", fmt.Errorf("upserting athlete metrics for %s: %w", athlete, err)
	}
	return outcome, nil
}

// upsert finds the first page matching filter and updates it, or creates
// a new page when none matches
func upsert(ctx context.Context, c *Client, schemas *SchemaCache, databaseID string, filter map[string]any, props Properties) (Outcome, error) {
	payload, _ := props.Payload(schemas.Get(ctx, databaseID))

	pageID, err := c.QueryFirst(ctx, databaseID, filter)
	if err != nil {
		return "", err
	}
	if pageID != "" {
		if _, err := c.UpdatePage(ctx, pageID, payload); err != nil {
			return "", err
		}
		return Updated, nil
	}
	if _, err := c.CreatePage(ctx, databaseID, payload); err != nil {
		return "", err
	}
	return Created, nil
}
