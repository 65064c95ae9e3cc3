package analysis

import (
	"math"

	"strava-notion-sync/internal/model"
)

// ClassifyHRQuality reports how well the stream covers the activity.
//
// Coverage is adequate with at least MinHRSamples samples, or when the
// stream spans max(80% of moving time, 10 minutes). Adequate coverage is
// "Good"; any other stream is "Partial"; no stream is "None".
func ClassifyHRQuality(hasHR bool, s *model.Stream, movingTimeS int) (q model.Quality, coverageOK bool) {
	if !hasHR || s == nil {
		return model.QualityNone, false
	}
	n := min(len(s.HR), len(s.Time))
	if n == 0 {
		return model.QualityNone, false
	}

	duration := 0
	if n >= 2 {
		duration = s.Time[n-1] - s.Time[0]
	}
	required := math.Max(float64(movingTimeS)*MinCoverageFraction, MinCoverageSeconds)

	coverageOK = n >= MinHRSamples || float64(duration) >= required
	if coverageOK {
		return model.QualityGood, true
	}
	return model.QualityPartial, false
}

// DriftCandidate reports whether the activity qualifies for drift analysis
// by sport and length, before looking at the stream
func DriftCandidate(a model.Activity) bool {
	return a.HasHeartrate &&
		PaceSports[a.Type] &&
		a.MovingTime >= DriftMinMovingTimeSeconds &&
		a.Distance >= DriftMinDistanceMiles/MetersToMiles
}

// NeedsStream reports whether fetching the HR stream can yield any metric
func NeedsStream(a model.Activity, zonesAvailable bool) bool {
	return a.HasHeartrate && (zonesAvailable || DriftCandidate(a))
}

// Analyze computes the stream-derived enrichment for one activity.
// Weather and photo are left for the caller.
func Analyze(a model.Activity, s *model.Stream, zones []model.Zone) model.Enrichment {
	e := model.Enrichment{Quality: model.QualityNone}
	if s == nil {
		return e
	}

	quality, coverageOK := ClassifyHRQuality(a.HasHeartrate, s, a.MovingTime)
	e.Quality = quality

	// Zone minutes are kept even with partial coverage; load is not
	if len(zones) > 0 {
		if zm := ZoneMinutes(s, zones); zm != nil {
			e.ZoneMinutes = zm
			if CardioSports[a.Type] && quality == model.QualityGood {
				e.LoadPoints = LoadPoints(zm)
			}
		}
	}

	if DriftCandidate(a) && coverageOK {
		if d := HRDrift(s, a.MovingTime, a.Distance); d != nil {
			e.Drift = d
			e.DriftEligible = true
		}
	}

	return e
}
