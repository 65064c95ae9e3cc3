package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"strava-notion-sync/internal/logging"
	"strava-notion-sync/internal/model"
	"strava-notion-sync/internal/transport"
)

const WeatherAPIURL = "https://api.weatherapi.com/v1"

// WeatherAPI fetches hourly history from WeatherAPI.com. Data lags by
// roughly 15 minutes, so recent activities can be enriched immediately.
type WeatherAPI struct {
	http   *resty.Client
	apiKey string
	log    zerolog.Logger
}

// NewWeatherAPI creates a WeatherAPI.com provider. baseURL defaults to
// WeatherAPIURL.
func NewWeatherAPI(apiKey, baseURL string, hc *http.Client) *WeatherAPI {
	if baseURL == "" {
		baseURL = WeatherAPIURL
	}
	return &WeatherAPI{
		http:   transport.NewResty(hc, baseURL),
		apiKey: apiKey,
		log:    logging.Component("weatherapi"),
	}
}

type weatherAPIResponse struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Forecast struct {
		ForecastDay []struct {
			Hour []weatherAPIHour `json:"hour"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

type weatherAPIHour struct {
	Time      string   `json:"time"` // "2024-01-01 14:00"
	TempF     *float64 `json:"temp_f"`
	WindMph   float64  `json:"wind_mph"`
	Humidity  float64  `json:"humidity"`
	Condition struct {
		Text string `json:"text"`
	} `json:"condition"`
}

// Name identifies the provider in logs
func (w *WeatherAPI) Name() string { return "weatherapi" }

// Fetch returns the observation for the hour of localStart
func (w *WeatherAPI) Fetch(ctx context.Context, lat, lon float64, localStart time.Time) (*model.Weather, error) {
	date := localStart.Format("2006-01-02")
	w.log.Debug().
		Str("key", logging.Mask(w.apiKey)).
		Str("date", date).
		Float64("lat", lat).
		Float64("lon", lon).
		Msg("Requesting weather history")

	resp, err := w.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key": w.apiKey,
			"q":   fmt.Sprintf("%g,%g", lat, lon),
			"dt":  date,
		}).
		Get("/history.json")

	var body weatherAPIResponse
	// Error payloads arrive with 4xx statuses; prefer their message
	if resp != nil && len(resp.Body()) > 0 {
		if derr := transport.Decode(resp, &body); derr == nil && body.Error != nil {
			return nil, fmt.Errorf("weatherapi error %d: %s", body.Error.Code, body.Error.Message)
		}
	}
	if err := transport.Check(resp, err); err != nil {
		return nil, err
	}
	if err := transport.Decode(resp, &body); err != nil {
		return nil, err
	}

	if len(body.Forecast.ForecastDay) == 0 {
		return nil, errors.New("weatherapi: no forecast day in response")
	}
	hours := body.Forecast.ForecastDay[0].Hour
	h, ok := closestWeatherAPIHour(hours, localStart.Hour())
	if !ok {
		return nil, fmt.Errorf("weatherapi: no usable hour for %s", date)
	}
	if h.TempF == nil {
		return nil, errors.New("weatherapi: missing temperature")
	}

	conditions := h.Condition.Text
	if conditions == "" {
		conditions = "Unknown"
	}
	return &model.Weather{
		TempF:      *h.TempF,
		Conditions: conditions,
		WindMph:    h.WindMph,
		Humidity:   h.Humidity,
	}, nil
}

// closestWeatherAPIHour picks the entry whose hour equals target, else the
// nearest one. Entries with unparseable times are ignored.
func closestWeatherAPIHour(hours []weatherAPIHour, target int) (weatherAPIHour, bool) {
	best, bestDiff := -1, 25
	for i, h := range hours {
		t, err := time.Parse("2006-01-02 15:04", h.Time)
		if err != nil {
			continue
		}
		diff := abs(t.Hour() - target)
		if diff < bestDiff {
			best, bestDiff = i, diff
		}
		if diff == 0 {
			break
		}
	}
	if best < 0 {
		return weatherAPIHour{}, false
	}
	return hours[best], true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
