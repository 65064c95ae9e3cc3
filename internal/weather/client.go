// Package weather looks up historical conditions at an activity's start
// location and hour.
package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"strava-notion-sync/internal/logging"
	"strava-notion-sync/internal/model"
)

// Breaker settings
const (
	breakerFailures = 3
	breakerTimeout  = 60 * time.Second
)

// Provider fetches the observation nearest to a local start time
type Provider interface {
	Name() string
	Fetch(ctx context.Context, lat, lon float64, localStart time.Time) (*model.Weather, error)
}

// Client wraps a Provider with a circuit breaker so a failing provider
// stops being called for the rest of the run
type Client struct {
	provider Provider
	cb       *gobreaker.CircuitBreaker[*model.Weather]
	log      zerolog.Logger
}

// NewClient creates a weather client around provider
func NewClient(provider Provider) *Client {
	log := logging.Component("weather")
	cb := gobreaker.NewCircuitBreaker[*model.Weather](gobreaker.Settings{
		Name:        provider.Name(),
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Weather circuit breaker state change")
		},
	})
	return &Client{provider: provider, cb: cb, log: log}
}

// NewFromKey selects WeatherAPI.com when apiKey is set, else Open-Meteo
func NewFromKey(apiKey string, hc *http.Client) *Client {
	if apiKey != "" {
		return NewClient(NewWeatherAPI(apiKey, "", hc))
	}
	return NewClient(NewOpenMeteo("", hc))
}

// Provider returns the name of the wrapped provider
func (c *Client) Provider() string {
	return c.provider.Name()
}

// Lookup returns the weather at lat/lon for the hour of localStart, or nil
// when the provider fails or the breaker is open. Failures are logged.
func (c *Client) Lookup(ctx context.Context, lat, lon float64, localStart time.Time) *model.Weather {
	w, err := c.cb.Execute(func() (*model.Weather, error) {
		return c.provider.Fetch(ctx, lat, lon, localStart)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.log.Debug().Err(err).Msg("Weather lookup skipped")
		} else {
			c.log.Warn().
				Err(err).
				Str("provider", c.provider.Name()).
				Time("local_start", localStart).
				Msg("Weather lookup failed")
		}
		return nil
	}
	return w
}

// Summarize formats w as "72°F, clear, 5 mph wind, 65% humidity"
func Summarize(w *model.Weather) string {
	if w == nil {
		return ""
	}
	conditions := w.Conditions
	if conditions == "" {
		conditions = "Unknown"
	}
	return fmt.Sprintf("%.0f°F, %s, %.0f mph wind, %.0f%% humidity",
		w.TempF, strings.ToLower(conditions), w.WindMph, w.Humidity)
}
