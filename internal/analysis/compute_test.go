package analysis

import (
	"math"
	"testing"

	"strava-notion-sync/internal/model"
)

func TestClassifyHRQuality(t *testing.T) {
	tests := []struct {
		name         string
		hasHR        bool
		stream       *model.Stream
		moving       int
		wantQuality  model.Quality
		wantCoverage bool
	}{
		{
			name:        "no hr flag",
			hasHR:       false,
			stream:      makeStream(3000, 150, 150, 3, 3),
			moving:      3000,
			wantQuality: model.QualityNone,
		},
		{
			name:        "nil stream",
			hasHR:       true,
			stream:      nil,
			moving:      3000,
			wantQuality: model.QualityNone,
		},
		{
			name:        "empty stream",
			hasHR:       true,
			stream:      &model.Stream{},
			moving:      3000,
			wantQuality: model.QualityNone,
		},
		{
			name:         "enough samples",
			hasHR:        true,
			stream:       makeStream(200, 150, 150, 3, 3),
			moving:       3000,
			wantQuality:  model.QualityGood,
			wantCoverage: true,
		},
		{
			name:  "few samples spanning the session",
			hasHR: true,
			stream: &model.Stream{
				HR:   []int{150, 150, 150},
				Time: []int{0, 1200, 2400},
			},
			moving:       3000,
			wantQuality:  model.QualityGood,
			wantCoverage: true,
		},
		{
			name:  "few samples short of coverage",
			hasHR: true,
			stream: &model.Stream{
				HR:   []int{150, 150, 150},
				Time: []int{0, 600, 1200},
			},
			moving:      3000,
			wantQuality: model.QualityPartial,
		},
		{
			name:  "short session uses ten minute floor",
			hasHR: true,
			stream: &model.Stream{
				HR:   []int{150, 150},
				Time: []int{0, 500},
			},
			moving:      300,
			wantQuality: model.QualityPartial,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, ok := ClassifyHRQuality(tt.hasHR, tt.stream, tt.moving)
			if q != tt.wantQuality {
				t.Errorf("quality = %v, want %v", q, tt.wantQuality)
			}
			if ok != tt.wantCoverage {
				t.Errorf("coverageOK = %v, want %v", ok, tt.wantCoverage)
			}
		})
	}
}

func TestDriftCandidate(t *testing.T) {
	base := model.Activity{
		Type:         "Run",
		HasHeartrate: true,
		MovingTime:   30 * 60,
		Distance:     8000,
	}

	tests := []struct {
		name     string
		modify   func(a *model.Activity)
		expected bool
	}{
		{"eligible run", func(a *model.Activity) {}, true},
		{"virtual run", func(a *model.Activity) { a.Type = "VirtualRun" }, true},
		{"ride", func(a *model.Activity) { a.Type = "Ride" }, false},
		{"no hr", func(a *model.Activity) { a.HasHeartrate = false }, false},
		{"too short", func(a *model.Activity) { a.MovingTime = 19 * 60 }, false},
		{"too close", func(a *model.Activity) { a.Distance = 4000 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := base
			tt.modify(&a)
			if got := DriftCandidate(a); got != tt.expected {
				t.Errorf("DriftCandidate() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNeedsStream(t *testing.T) {
	ride := model.Activity{Type: "Ride", HasHeartrate: true, MovingTime: 3600, Distance: 30000}
	run := model.Activity{Type: "Run", HasHeartrate: true, MovingTime: 3600, Distance: 10000}

	if !NeedsStream(ride, true) {
		t.Error("ride with zones should need stream")
	}
	if NeedsStream(ride, false) {
		t.Error("ride without zones should not need stream")
	}
	if !NeedsStream(run, false) {
		t.Error("drift-eligible run should need stream without zones")
	}
	run.HasHeartrate = false
	if NeedsStream(run, true) {
		t.Error("activity without hr should never need stream")
	}
}

func TestAnalyze(t *testing.T) {
	run := model.Activity{
		ID:           1,
		Type:         "Run",
		HasHeartrate: true,
		MovingTime:   3000,
		Distance:     9000,
	}

	t.Run("full enrichment", func(t *testing.T) {
		e := Analyze(run, makeStream(3000, 120, 160, 3, 3), threeZones())

		if e.Quality != model.QualityGood {
			t.Errorf("Quality = %v, want Good", e.Quality)
		}
		if e.ZoneMinutes[2] != 25 || e.ZoneMinutes[3] != 25 {
			t.Errorf("ZoneMinutes = %v, want 25 min in zones 2 and 3", e.ZoneMinutes)
		}
		// 25*2 + 25*3
		if e.LoadPoints == nil || *e.LoadPoints != 125 {
			t.Errorf("LoadPoints = %v, want 125", e.LoadPoints)
		}
		if e.Drift == nil || !e.DriftEligible {
			t.Fatal("expected drift result")
		}
		if math.Abs(e.Drift.DriftPct-33.33) > 0.01 {
			t.Errorf("DriftPct = %v, want 33.33", e.Drift.DriftPct)
		}
	})

	t.Run("no stream", func(t *testing.T) {
		e := Analyze(run, nil, threeZones())
		if e.Quality != model.QualityNone {
			t.Errorf("Quality = %v, want None", e.Quality)
		}
		if e.ZoneMinutes != nil || e.LoadPoints != nil || e.Drift != nil || e.DriftEligible {
			t.Errorf("expected empty enrichment, got %+v", e)
		}
	})

	t.Run("partial coverage keeps zones but not load or drift", func(t *testing.T) {
		s := &model.Stream{
			HR:       []int{120, 120, 160},
			Time:     []int{0, 300, 600},
			Velocity: []float64{3, 3, 3},
		}
		e := Analyze(run, s, threeZones())
		if e.Quality != model.QualityPartial {
			t.Errorf("Quality = %v, want Partial", e.Quality)
		}
		if e.ZoneMinutes == nil {
			t.Error("ZoneMinutes should be kept for partial coverage")
		}
		if e.LoadPoints != nil {
			t.Errorf("LoadPoints = %v, want nil", *e.LoadPoints)
		}
		if e.Drift != nil || e.DriftEligible {
			t.Error("drift should not be computed for partial coverage")
		}
	})

	t.Run("non-cardio sport has no load", func(t *testing.T) {
		ride := run
		ride.Type = "Ride"
		e := Analyze(ride, makeStream(3000, 120, 160, 3, 3), threeZones())
		if e.ZoneMinutes == nil {
			t.Error("ZoneMinutes should be computed for any sport")
		}
		if e.LoadPoints != nil {
			t.Error("LoadPoints should be nil for non-cardio sport")
		}
		if e.Drift != nil {
			t.Error("Drift should be nil for non-pace sport")
		}
	})

	t.Run("no zones still yields drift", func(t *testing.T) {
		e := Analyze(run, makeStream(3000, 150, 150, 3, 3), nil)
		if e.ZoneMinutes != nil || e.LoadPoints != nil {
			t.Error("expected no zone metrics without zones")
		}
		if e.Drift == nil {
			t.Error("expected drift without zones")
		}
	})
}
