package strava

import (
	"time"

	"strava-notion-sync/internal/model"
)

// Activity represents a Strava activity from the API
type Activity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type"`
	StartDate          string    `json:"start_date"`
	StartDateLocal     string    `json:"start_date_local"`
	Distance           float64   `json:"distance"`             // meters
	MovingTime         int       `json:"moving_time"`          // seconds
	ElapsedTime        int       `json:"elapsed_time"`         // seconds
	TotalElevationGain float64   `json:"total_elevation_gain"` // meters
	AverageHeartrate   *float64  `json:"average_heartrate"`    // bpm
	MaxHeartrate       *float64  `json:"max_heartrate"`        // bpm
	HasHeartrate       bool      `json:"has_heartrate"`
	StartLatLng        []float64 `json:"start_latlng"`
	StartLatitude      *float64  `json:"start_latitude"`
	StartLongitude     *float64  `json:"start_longitude"`
}

// Streams represents activity stream data from the API
// Strava returns streams keyed by type when key_by_type=true
type Streams struct {
	Time           *StreamData[int]     `json:"time"`
	Heartrate      *StreamData[int]     `json:"heartrate"`
	VelocitySmooth *StreamData[float64] `json:"velocity_smooth"`
}

// StreamData represents a single stream type
type StreamData[T any] struct {
	Data         []T    `json:"data"`
	SeriesType   string `json:"series_type"`
	OriginalSize int    `json:"original_size"`
	Resolution   string `json:"resolution"`
}

// ActivityDetail is the subset of GET /activities/{id} used for photos
type ActivityDetail struct {
	Photos struct {
		Primary *struct {
			URLs map[string]string `json:"urls"`
		} `json:"primary"`
	} `json:"photos"`
}

// AthleteZones is the response of GET /athlete/zones
type AthleteZones struct {
	HeartRate *struct {
		CustomZones bool      `json:"custom_zones"`
		Zones       []ZoneDef `json:"zones"`
	} `json:"heart_rate"`
}

// ZoneDef is one heart-rate band; the top band has max -1 or null
type ZoneDef struct {
	Min int  `json:"min"`
	Max *int `json:"max"`
}

// ToModel converts the API payload into the typed record used by the sync
func (a Activity) ToModel() model.Activity {
	m := model.Activity{
		ID:               a.ID,
		Name:             a.Name,
		Type:             a.Type,
		StartDate:        parseTime(a.StartDate),
		StartDateLocal:   parseTime(a.StartDateLocal),
		ElapsedTime:      a.ElapsedTime,
		MovingTime:       a.MovingTime,
		Distance:         a.Distance,
		ElevationGain:    a.TotalElevationGain,
		AverageHeartrate: a.AverageHeartrate,
		MaxHeartrate:     a.MaxHeartrate,
		HasHeartrate:     a.HasHeartrate,
	}

	switch {
	case len(a.StartLatLng) >= 2:
		m.Start = &model.LatLng{Lat: a.StartLatLng[0], Lng: a.StartLatLng[1]}
	case a.StartLatitude != nil && a.StartLongitude != nil:
		m.Start = &model.LatLng{Lat: *a.StartLatitude, Lng: *a.StartLongitude}
	}
	// (0, 0) is how Strava reports a missing location
	if m.Start != nil && m.Start.Lat == 0 && m.Start.Lng == 0 {
		m.Start = nil
	}

	return m
}

// ToModel returns nil unless both heart rate and time are present
func (s *Streams) ToModel() *model.Stream {
	if s == nil || s.Heartrate == nil || s.Time == nil {
		return nil
	}
	if len(s.Heartrate.Data) == 0 || len(s.Time.Data) == 0 {
		return nil
	}
	out := &model.Stream{
		HR:   s.Heartrate.Data,
		Time: s.Time.Data,
	}
	if s.VelocitySmooth != nil && len(s.VelocitySmooth.Data) > 0 {
		out.Velocity = s.VelocitySmooth.Data
	}
	return out
}

// ToModel converts zone definitions, mapping a negative max to unbounded
func (z AthleteZones) ToModel() []model.Zone {
	if z.HeartRate == nil {
		return nil
	}
	zones := make([]model.Zone, 0, len(z.HeartRate.Zones))
	for _, d := range z.HeartRate.Zones {
		zone := model.Zone{Min: d.Min}
		if d.Max != nil && *d.Max >= 0 {
			hi := *d.Max
			zone.Max = &hi
		}
		zones = append(zones, zone)
	}
	return zones
}

// PrimaryPhotoURL prefers the largest of the standard sizes
func (d ActivityDetail) PrimaryPhotoURL() string {
	if d.Photos.Primary == nil {
		return ""
	}
	urls := d.Photos.Primary.URLs
	for _, size := range []string{"1200", "600", "300"} {
		if u := urls[size]; u != "" {
			return u
		}
	}
	for _, u := range urls {
		if u != "" {
			return u
		}
	}
	return ""
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
