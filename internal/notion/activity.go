package notion

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"strava-notion-sync/internal/analysis"
	"strava-notion-sync/internal/logging"
	"strava-notion-sync/internal/model"
	"strava-notion-sync/internal/weather"
)

const stravaActivityURL = "https://www.strava.com/activities/"

// Outcome is the result of a successful write
type Outcome string

const (
	Created Outcome = "created"
	Updated Outcome = "updated"
)

// ActivityTable is the primary activities database, keyed by Activity ID
type ActivityTable struct {
	client     *Client
	schemas    *SchemaCache
	databaseID string
	now        func() time.Time
	log        zerolog.Logger
}

// NewActivityTable binds the activities database
func NewActivityTable(client *Client, schemas *SchemaCache, databaseID string) *ActivityTable {
	return &ActivityTable{
		client:     client,
		schemas:    schemas,
		databaseID: databaseID,
		now:        time.Now,
		log:        logging.Component("notion"),
	}
}

// ExistingPages maps activity id to page id for every page dated on or
// after since
func (t *ActivityTable) ExistingPages(ctx context.Context, since time.Time) (map[int64]string, error) {
	filter := map[string]any{
		"property": FieldDate.Name(),
		"date":     map[string]string{"on_or_after": since.UTC().Format("2006-01-02")},
	}

	existing := make(map[int64]string)
	cursor := ""
	for {
		res, err := t.client.QueryDatabase(ctx, t.databaseID, Query{Filter: filter, StartCursor: cursor})
		if err != nil {
			return nil, err
		}
		for _, page := range res.Results {
			prop, ok := page.Properties[FieldActivityID.Name()]
			if !ok {
				continue
			}
			id, err := strconv.ParseInt(strings.TrimSpace(prop.PlainText()), 10, 64)
			if err != nil {
				continue
			}
			existing[id] = page.ID
		}
		if !res.HasMore || res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}

	t.log.Info().Int("count", len(existing)).Msg("Found existing activities in Notion")
	return existing, nil
}

// FindPage returns the page id for activityID, or "" if there is none
func (t *ActivityTable) FindPage(ctx context.Context, activityID int64) (string, error) {
	return t.client.QueryFirst(ctx, t.databaseID, map[string]any{
		"property":  FieldActivityID.Name(),
		"rich_text": map[string]string{"equals": strconv.FormatInt(activityID, 10)},
	})
}

// Write creates the activity's page, or updates pageID when it is set
func (t *ActivityTable) Write(ctx context.Context, a model.Activity, e model.Enrichment, pageID string) (Outcome, error) {
	outcome := Created
	if pageID != "" {
		outcome = Updated
	}

	schema := t.schemas.Get(ctx, t.databaseID)
	props := ActivityProperties(a, e, t.now())
	if schema.Has(FieldSyncStatus.Name()) {
		props[FieldSyncStatus] = Select(string(outcome))
	}

	payload, dropped := props.Payload(schema)
	if len(dropped) > 0 {
		t.log.Debug().Int64("activity_id", a.ID).Strs("dropped", dropped).Msg("Properties not in schema")
	}

	var err error
	if pageID != "" {
		_, err = t.client.UpdatePage(ctx, pageID, payload)
	} else {
		_, err = t.client.CreatePage(ctx, t.databaseID, payload)
	}
	if err != nil {
		return "", fmt.Errorf("writing activity %d: %w", a.ID, err)
	}
	return outcome, nil
}

// Upsert looks up the activity's page and writes it. Repeating the call
// updates the same page.
func (t *ActivityTable) Upsert(ctx context.Context, a model.Activity, e model.Enrichment) (Outcome, error) {
	pageID, err := t.FindPage(ctx, a.ID)
	if err != nil {
		return "", fmt.Errorf("finding page for activity %d: %w", a.ID, err)
	}
	return t.Write(ctx, a, e, pageID)
}

// ActivityProperties maps an activity and its enrichment to page values
func ActivityProperties(a model.Activity, e model.Enrichment, now time.Time) Properties {
	sport := a.Type
	if sport == "" {
		sport = "Workout"
	}
	name := strings.TrimSpace(a.Name)
	if name == "" {
		name = fmt.Sprintf("%s – %s", sport, a.StartDate.UTC().Format("2006-01-02"))
	}
	id := strconv.FormatInt(a.ID, 10)
	distanceMi := a.Distance * analysis.MetersToMiles

	p := Properties{
		FieldName:          Title(name),
		FieldActivityID:    Text(id),
		FieldDate:          Date(a.StartDate.UTC().Format(time.RFC3339)),
		FieldSport:         Select(sport),
		FieldDurationMin:   Number(analysis.Round(float64(a.ElapsedTime)/60, 2)),
		FieldDistanceMi:    Number(analysis.Round(distanceMi, 2)),
		FieldElevationFt:   Number(analysis.Round(a.ElevationGain*analysis.MetersToFeet, 1)),
		FieldStravaURL:     URL(stravaActivityURL + id),
		FieldLastSynced:    Date(now.UTC().Format(time.RFC3339)),
		FieldDriftEligible: Checkbox(e.DriftEligible),
	}

	if a.AverageHeartrate != nil && *a.AverageHeartrate > 0 {
		p[FieldAvgHR] = Number(*a.AverageHeartrate)
	}
	if a.MaxHeartrate != nil && *a.MaxHeartrate > 0 {
		p[FieldMaxHR] = Number(*a.MaxHeartrate)
	}
	if analysis.PaceDisplaySports[a.Type] && distanceMi > 0 && a.MovingTime > 0 {
		pace := float64(a.MovingTime) / distanceMi / 60
		p[FieldAvgPace] = Number(analysis.Round(pace, 2))
	}
	if a.MovingTime > 0 {
		p[FieldMovingTimeMin] = Number(analysis.Round(float64(a.MovingTime)/60, 2))
	}

	for zone, minutes := range e.ZoneMinutes {
		if f, ok := ZoneField(zone); ok {
			p[f] = Number(minutes)
		}
	}

	if d := e.Drift; d != nil {
		p[FieldHRDrift] = Number(analysis.Round(d.DriftPct, 2))
		p[FieldHR1stHalf] = Number(analysis.Round(d.AvgHR1, 1))
		p[FieldHR2ndHalf] = Number(analysis.Round(d.AvgHR2, 1))
		p[FieldSpeed1stHalf] = Number(analysis.Round(d.AvgVel1*analysis.MPSToMPH, 2))
		p[FieldSpeed2ndHalf] = Number(analysis.Round(d.AvgVel2*analysis.MPSToMPH, 2))
	}

	if e.Quality != "" {
		p[FieldHRDataQuality] = Select(string(e.Quality))
	}
	if e.LoadPoints != nil && *e.LoadPoints > 0 {
		p[FieldLoadPoints] = Number(analysis.Round(*e.LoadPoints, 2))
	}
	if e.PhotoURL != "" {
		p[FieldPhotoURL] = URL(e.PhotoURL)
	}
	if w := e.Weather; w != nil {
		p[FieldTemperature] = Number(analysis.Round(w.TempF, 1))
		p[FieldWeatherConditions] = Text(weather.Summarize(w))
	}

	return p
}
