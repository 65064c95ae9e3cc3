package analysis

import "strava-notion-sync/internal/model"

// HRDrift calculates aerobic decoupling between the first and second half
// of the stream, split at its time midpoint.
//
// Averages are time-weighted; an interval straddling the midpoint is split
// proportionally. Efficiency is avgHR / avgVelocity per half and
// drift = (eff2 - eff1) / eff1 * 100, so positive means the second half
// cost more heartbeats per unit of speed.
//
// Returns nil when velocity is missing, either half has no covered time,
// either half averages at or below 0.1 m/s, or the session has no moving
// time or distance.
func HRDrift(s *model.Stream, movingTimeS int, distanceM float64) *model.Drift {
	if s == nil || len(s.Velocity) == 0 || movingTimeS <= 0 || distanceM <= 0 {
		return nil
	}
	n := min(len(s.HR), len(s.Time), len(s.Velocity))
	if n < 2 {
		return nil
	}

	start, end := s.Time[0], s.Time[n-1]
	if end-start <= 0 {
		return nil
	}
	mid := float64(start) + float64(end-start)/2

	var first, second half
	for i := 0; i < n-1; i++ {
		t0, t1 := float64(s.Time[i]), float64(s.Time[i+1])
		if t1 <= t0 {
			continue
		}
		hr, vel := float64(s.HR[i]), s.Velocity[i]

		switch {
		case t1 <= mid:
			first.add(hr, vel, t1-t0)
		case t0 >= mid:
			second.add(hr, vel, t1-t0)
		default:
			first.add(hr, vel, mid-t0)
			second.add(hr, vel, t1-mid)
		}
	}

	if first.dt <= 0 || second.dt <= 0 {
		return nil
	}

	hr1, vel1 := first.averages()
	hr2, vel2 := second.averages()
	if vel1 <= velocityFloor || vel2 <= velocityFloor {
		return nil
	}

	eff1 := hr1 / vel1
	eff2 := hr2 / vel2
	if eff1 <= 0 {
		return nil
	}

	return &model.Drift{
		DriftPct: (eff2 - eff1) / eff1 * 100,
		AvgHR1:   hr1,
		AvgHR2:   hr2,
		AvgVel1:  vel1,
		AvgVel2:  vel2,
	}
}

// half accumulates time-weighted sums for one side of the midpoint
type half struct {
	hr, vel, dt float64
}

func (h *half) add(hr, vel, dt float64) {
	h.hr += hr * dt
	h.vel += vel * dt
	h.dt += dt
}

func (h half) averages() (hr, vel float64) {
	return h.hr / h.dt, h.vel / h.dt
}
