package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"strava-notion-sync/internal/logging"
	"strava-notion-sync/internal/model"
	"strava-notion-sync/internal/transport"
)

const OpenMeteoURL = "https://archive-api.open-meteo.com/v1"

// OpenMeteo fetches hourly reanalysis from the Open-Meteo archive. It needs
// no key but trails real time by about two days.
type OpenMeteo struct {
	http *resty.Client
	log  zerolog.Logger
}

// NewOpenMeteo creates an Open-Meteo provider. baseURL defaults to
// OpenMeteoURL.
func NewOpenMeteo(baseURL string, hc *http.Client) *OpenMeteo {
	if baseURL == "" {
		baseURL = OpenMeteoURL
	}
	return &OpenMeteo{
		http: transport.NewResty(hc, baseURL),
		log:  logging.Component("openmeteo"),
	}
}

type openMeteoResponse struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
	Hourly struct {
		Time        []string   `json:"time"` // "2024-01-01T14:00", local to the coordinate
		Temperature []*float64 `json:"temperature_2m"`
		WeatherCode []*int     `json:"weathercode"`
		WindSpeed   []*float64 `json:"windspeed_10m"`
		Humidity    []*float64 `json:"relativehumidity_2m"`
	} `json:"hourly"`
}

// Name identifies the provider in logs
func (o *OpenMeteo) Name() string { return "open-meteo" }

// Fetch returns the observation closest to the hour of localStart
func (o *OpenMeteo) Fetch(ctx context.Context, lat, lon float64, localStart time.Time) (*model.Weather, error) {
	date := localStart.Format("2006-01-02")
	o.log.Debug().Str("date", date).Float64("lat", lat).Float64("lon", lon).Msg("Requesting weather archive")

	resp, err := o.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latitude":         strconv.FormatFloat(lat, 'f', -1, 64),
			"longitude":        strconv.FormatFloat(lon, 'f', -1, 64),
			"start_date":       date,
			"end_date":         date,
			"hourly":           "temperature_2m,weathercode,windspeed_10m,relativehumidity_2m",
			"temperature_unit": "fahrenheit",
			"windspeed_unit":   "mph",
			"timezone":         "auto",
		}).
		Get("/archive")

	var body openMeteoResponse
	if resp != nil && len(resp.Body()) > 0 {
		if derr := transport.Decode(resp, &body); derr == nil && body.Error {
			return nil, fmt.Errorf("open-meteo error: %s", body.Reason)
		}
	}
	if err := transport.Check(resp, err); err != nil {
		return nil, err
	}
	if err := transport.Decode(resp, &body); err != nil {
		return nil, err
	}

	hourly := body.Hourly
	if len(hourly.Temperature) == 0 || len(hourly.WeatherCode) == 0 {
		return nil, fmt.Errorf("open-meteo: no hourly data for %s", date)
	}

	i := closestIndex(hourly.Time, len(hourly.Temperature), localStart.Hour())
	temp := at(hourly.Temperature, i)
	code := at(hourly.WeatherCode, i)
	if temp == nil || code == nil {
		return nil, errors.New("open-meteo: missing temperature or weather code")
	}

	w := &model.Weather{
		TempF:      *temp,
		Conditions: ConditionText(*code),
	}
	if v := at(hourly.WindSpeed, i); v != nil {
		w.WindMph = *v
	}
	if v := at(hourly.Humidity, i); v != nil {
		w.Humidity = *v
	}
	return w, nil
}

// closestIndex finds the series index whose timestamp hour is nearest to
// target. Without timestamps the series is assumed to start at midnight,
// and the index is clamped to the last sample.
func closestIndex(times []string, n, target int) int {
	best, bestDiff := -1, 25
	for i, ts := range times {
		if i >= n {
			break
		}
		t, err := time.Parse("2006-01-02T15:04", ts)
		if err != nil {
			continue
		}
		if diff := abs(t.Hour() - target); diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	if best >= 0 {
		return best
	}
	return min(target, n-1)
}

func at[T any](s []*T, i int) *T {
	if i < 0 || i >= len(s) {
		return nil
	}
	return s[i]
}

// ConditionText maps a WMO weather interpretation code to a short label
func ConditionText(code int) string {
	switch code {
	case 0:
		return "Clear"
	case 1:
		return "Partly cloudy"
	case 2, 3:
		return "Cloudy"
	case 45, 48:
		return "Fog"
	case 51, 53, 55:
		return "Drizzle"
	case 61, 63, 65:
		return "Rain"
	case 71, 73, 75:
		return "Snow"
	case 80, 81, 82:
		return "Rain showers"
	case 85, 86:
		return "Snow showers"
	case 95, 96, 99:
		return "Thunderstorm"
	default:
		return "Unknown"
	}
}
