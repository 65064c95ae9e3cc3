package analysis

import "strava-notion-sync/internal/model"

// ZoneMinutes builds a histogram of minutes per heart-rate zone.
//
// Each interval between consecutive samples is attributed to the zone of its
// leading sample, so irregular sampling is weighted by real elapsed time.
// The result has an entry for every zone (1-based) rounded to 2 decimals,
// or is nil when there are no zones or fewer than 2 aligned samples.
func ZoneMinutes(s *model.Stream, zones []model.Zone) model.ZoneMinutes {
	if s == nil || len(zones) == 0 {
		return nil
	}
	n := min(len(s.HR), len(s.Time))
	if n < 2 {
		return nil
	}

	seconds := make([]float64, len(zones))
	for i := 0; i < n-1; i++ {
		dt := s.Time[i+1] - s.Time[i]
		if dt <= 0 {
			continue
		}
		for z, zone := range zones {
			if zone.Contains(s.HR[i]) {
				seconds[z] += float64(dt)
				break
			}
		}
	}

	out := make(model.ZoneMinutes, len(zones))
	for z, sec := range seconds {
		out[z+1] = Round(sec/60, 2)
	}
	return out
}
