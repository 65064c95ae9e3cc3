// Package model holds the typed records that flow through a sync run:
// source activities, heart-rate streams, derived enrichment and aggregates.
package model

import "time"

// Activity is one session from the source platform, converted from the
// API payload immediately after it is fetched.
type Activity struct {
	ID               int64
	Name             string
	Type             string
	StartDate        time.Time // UTC
	StartDateLocal   time.Time // wall clock at the activity location; zero when absent
	ElapsedTime      int       // seconds
	MovingTime       int       // seconds
	Distance         float64   // meters
	ElevationGain    float64   // meters
	AverageHeartrate *float64  // bpm
	MaxHeartrate     *float64  // bpm
	HasHeartrate     bool
	Start            *LatLng
}

// LatLng is a start coordinate
type LatLng struct {
	Lat float64
	Lng float64
}

// LocalStart returns the local start time, falling back to UTC
func (a Activity) LocalStart() time.Time {
	if !a.StartDateLocal.IsZero() {
		return a.StartDateLocal
	}
	return a.StartDate
}

// LocalDate returns the calendar date (YYYY-MM-DD) the activity started on.
// Activities without a local timestamp are bucketed by their UTC date.
func (a Activity) LocalDate() string {
	return a.LocalStart().Format("2006-01-02")
}

// Stream is the heart-rate time series of one activity. HR and Time are
// parallel; Velocity is nil when the source did not provide it.
type Stream struct {
	HR       []int     // bpm
	Time     []int     // seconds since start
	Velocity []float64 // m/s
}

// Zone is one heart-rate band [Min, Max). A nil Max is unbounded above.
type Zone struct {
	Min int
	Max *int
}

// Contains reports whether hr falls inside the band
func (z Zone) Contains(hr int) bool {
	if hr < z.Min {
		return false
	}
	return z.Max == nil || hr < *z.Max
}

// ZoneMinutes maps a 1-based zone index to minutes spent in that zone
type ZoneMinutes map[int]float64

// Drift holds first/second half efficiency figures for one activity
type Drift struct {
	DriftPct float64
	AvgHR1   float64
	AvgHR2   float64
	AvgVel1  float64 // m/s
	AvgVel2  float64 // m/s
}

// Quality classifies how well the HR stream covers the activity
type Quality string

const (
	QualityNone    Quality = "None"
	QualityPartial Quality = "Partial"
	QualityGood    Quality = "Good"
)

// Weather is an hourly observation near the activity start
type Weather struct {
	TempF      float64
	Conditions string
	WindMph    float64
	Humidity   float64
}

// Enrichment is everything derived for one activity during a run.
// Each part is independently present or absent.
type Enrichment struct {
	ZoneMinutes   ZoneMinutes
	Drift         *Drift
	DriftEligible bool
	Quality       Quality
	LoadPoints    *float64
	Weather       *Weather
	PhotoURL      string
}

// EnrichedActivity pairs an activity with its enrichment
type EnrichedActivity struct {
	Activity   Activity
	Enrichment Enrichment
}

// Confidence labels how much of a day's cardio produced load
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// DailySummary aggregates every activity on one local calendar date
type DailySummary struct {
	Date                string // YYYY-MM-DD
	TotalDurationMin    float64
	TotalMovingMin      float64
	TotalDistanceMi     float64
	TotalElevationFt    float64
	SessionCount        int
	EligibleCardioCount int
	LoadCount           int
	LoadPoints          float64
}

// Confidence returns High when every eligible cardio session produced load,
// Medium when some did and Low otherwise.
func (d DailySummary) Confidence() Confidence {
	switch {
	case d.EligibleCardioCount > 0 && d.LoadCount == d.EligibleCardioCount:
		return ConfidenceHigh
	case d.LoadCount > 0:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// AthleteMetrics holds rolling training load for the athlete row
type AthleteMetrics struct {
	Load7d      float64
	Load28d     float64
	LoadBalance *float64
}
