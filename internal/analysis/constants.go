package analysis

import "math"

// Unit conversions
const (
	MetersToMiles = 0.000621371
	MetersToFeet  = 3.28084
	MPSToMPH      = 2.236936
)

// Drift eligibility and HR coverage thresholds
const (
	DriftMinMovingTimeSeconds = 20 * 60
	DriftMinDistanceMiles     = 3.0
	MinHRSamples              = 120
	MinCoverageFraction       = 0.8
	MinCoverageSeconds        = 600 // floor for the coverage fraction on short sessions

	// velocityFloor guards the efficiency ratio against near-zero speeds (m/s)
	velocityFloor = 0.1
)

// PaceSports can produce drift metrics
var PaceSports = map[string]bool{
	"Run":        true,
	"TrailRun":   true,
	"Walk":       true,
	"Hike":       true,
	"VirtualRun": true,
}

// IndoorSports never get weather enrichment
var IndoorSports = map[string]bool{
	"WeightTraining": true,
	"Workout":        true,
	"Crossfit":       true,
}

// CardioSports are eligible for load points
var CardioSports = map[string]bool{
	"Run":          true,
	"Hike":         true,
	"StairStepper": true,
	"TrailRun":     true,
	"Walk":         true,
	"VirtualRun":   true,
}

// PaceDisplaySports get an average pace property
var PaceDisplaySports = map[string]bool{
	"Run":      true,
	"TrailRun": true,
	"Walk":     true,
	"Hike":     true,
}

// Round rounds v to the given number of decimal places
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
