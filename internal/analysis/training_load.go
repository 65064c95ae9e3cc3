package analysis

import (
	"time"

	"strava-notion-sync/internal/model"
)

// maxWeightedZone is the highest zone index that carries load weight
const maxWeightedZone = 5

// LoadPoints calculates zone-weighted load: sum of minutes in zone i times i,
// for zones 1..5. Returns nil when the histogram is absent or sums to zero.
func LoadPoints(zm model.ZoneMinutes) *float64 {
	if zm == nil {
		return nil
	}
	var total float64
	for zone := 1; zone <= maxWeightedZone; zone++ {
		total += zm[zone] * float64(zone)
	}
	if total <= 0 {
		return nil
	}
	total = Round(total, 2)
	return &total
}

// DailyAggregate groups activities by local calendar date.
// Load only counts for cardio sessions with Good HR quality and positive load.
func DailyAggregate(activities []model.EnrichedActivity) map[string]model.DailySummary {
	daily := make(map[string]model.DailySummary)

	for _, ea := range activities {
		a := ea.Activity
		date := a.LocalDate()

		d := daily[date]
		d.Date = date
		d.SessionCount++
		d.TotalDurationMin += float64(a.ElapsedTime) / 60
		d.TotalMovingMin += float64(a.MovingTime) / 60
		d.TotalDistanceMi += a.Distance * MetersToMiles
		d.TotalElevationFt += a.ElevationGain * MetersToFeet

		if CardioSports[a.Type] {
			d.EligibleCardioCount++
			e := ea.Enrichment
			if e.Quality == model.QualityGood && e.LoadPoints != nil && *e.LoadPoints > 0 {
				d.LoadPoints += *e.LoadPoints
				d.LoadCount++
			}
		}
		daily[date] = d
	}

	for date, d := range daily {
		d.TotalDurationMin = Round(d.TotalDurationMin, 2)
		d.TotalMovingMin = Round(d.TotalMovingMin, 2)
		d.TotalDistanceMi = Round(d.TotalDistanceMi, 2)
		d.TotalElevationFt = Round(d.TotalElevationFt, 1)
		d.LoadPoints = Round(d.LoadPoints, 2)
		daily[date] = d
	}

	return daily
}

// RollingLoad sums daily load over the trailing 7 and 28 days, both
// including asOf. Days without a summary contribute zero.
func RollingLoad(daily map[string]model.DailySummary, asOf time.Time) (load7d, load28d float64) {
	today := civilDate(asOf)

	for date, d := range daily {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		daysAgo := int(today.Sub(day).Hours() / 24)
		if daysAgo >= 0 && daysAgo <= 6 {
			load7d += d.LoadPoints
		}
		if daysAgo >= 0 && daysAgo <= 27 {
			load28d += d.LoadPoints
		}
	}

	return Round(load7d, 2), Round(load28d, 2)
}

// LoadBalance returns load7d / load28d rounded to 3 decimals, or nil when
// there is no 28-day load
func LoadBalance(load7d, load28d float64) *float64 {
	if load28d <= 0 {
		return nil
	}
	b := Round(load7d/load28d, 3)
	return &b
}

// AthleteMetrics computes the rolling metrics row from daily summaries
func AthleteMetrics(daily map[string]model.DailySummary, asOf time.Time) model.AthleteMetrics {
	l7, l28 := RollingLoad(daily, asOf)
	return model.AthleteMetrics{
		Load7d:      l7,
		Load28d:     l28,
		LoadBalance: LoadBalance(l7, l28),
	}
}

// civilDate truncates t to midnight UTC of its own calendar date
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
