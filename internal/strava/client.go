package strava

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"strava-notion-sync/internal/auth"
	"strava-notion-sync/internal/logging"
	"strava-notion-sync/internal/model"
	"strava-notion-sync/internal/transport"
)

const BaseURL = "https://www.strava.com/api/v3"

// ActivitiesPerPage is the page size for activity listings; a shorter
// page marks the end of the data.
const ActivitiesPerPage = 200

// ErrNotAuthenticated is returned by API calls made before Authenticate
var ErrNotAuthenticated = errors.New("strava client is not authenticated")

// Options configure a Client
type Options struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	BaseURL      string // defaults to BaseURL
	TokenURL     string // defaults to auth.TokenURL

	// HTTPClient carries the retry policy; it is shared with the token exchange
	HTTPClient *http.Client

	// MinInterval spaces consecutive API requests
	MinInterval time.Duration
}

// Client is a Strava API client
type Client struct {
	http        *resty.Client
	tokens      *auth.RefreshSource
	rateLimiter *RateLimiter
	log         zerolog.Logger
	now         func() time.Time

	mu          sync.RWMutex
	accessToken string
}

// NewClient creates a new Strava API client. Call Authenticate before use.
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = transport.NewHTTPClient(transport.SourcePolicy(), nil)
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = BaseURL
	}

	log := logging.Component("strava")
	oauthCfg := auth.NewOAuthConfig(auth.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     opts.TokenURL,
	})

	return &Client{
		http: transport.NewResty(hc, baseURL),
		tokens: auth.NewRefreshSource(oauthCfg, opts.RefreshToken, hc, func(fp string) {
			log.Info().Str("refresh_token_fp", fp).Msg("Strava rotated the refresh token")
		}),
		rateLimiter: NewRateLimiter(opts.MinInterval, log),
		log:         log,
		now:         time.Now,
	}
}

// Authenticate exchanges the refresh token for a new access token
func (c *Client) Authenticate(ctx context.Context) error {
	fp := c.tokens.Fingerprint()
	tok, err := c.tokens.Refresh(ctx)
	if err != nil {
		c.log.Error().Err(err).Str("refresh_token_fp", fp).Msg("Strava authentication failed")
		return fmt.Errorf("authenticating with strava: %w", err)
	}

	c.mu.Lock()
	c.accessToken = tok.AccessToken
	c.mu.Unlock()

	c.log.Info().
		Str("refresh_token_fp", fp).
		Int64("athlete_id", auth.ExtractAthleteID(tok)).
		Time("expires_at", tok.Expiry).
		Msg("Authenticated with Strava")
	return nil
}

// ListRecentActivities fetches every activity that started within the last
// lookbackDays. A 401 on a page triggers one re-authentication and a retry
// of that page only.
func (c *Client) ListRecentActivities(ctx context.Context, lookbackDays int) ([]model.Activity, error) {
	after := c.now().AddDate(0, 0, -lookbackDays)
	var activities []model.Activity

	for page := 1; ; page++ {
		batch, err := c.activitiesPage(ctx, after, page)
		if transport.StatusCode(err) == http.StatusUnauthorized {
			c.log.Warn().Int("page", page).Msg("Access token rejected, re-authenticating")
			if aerr := c.Authenticate(ctx); aerr != nil {
				return nil, fmt.Errorf("re-authenticating for page %d: %w", page, aerr)
			}
			batch, err = c.activitiesPage(ctx, after, page)
		}
		if err != nil {
			return nil, fmt.Errorf("fetching activities page %d: %w", page, err)
		}

		for _, a := range batch {
			activities = append(activities, a.ToModel())
		}

		c.log.Debug().Int("page", page).Int("count", len(batch)).Msg("Fetched activities page")

		if len(batch) < ActivitiesPerPage {
			break // Last page
		}
	}

	c.log.Info().Int("count", len(activities)).Int("lookback_days", lookbackDays).Msg("Fetched activities from Strava")
	return activities, nil
}

func (c *Client) activitiesPage(ctx context.Context, after time.Time, page int) ([]Activity, error) {
	var batch []Activity
	err := c.get(ctx, "/athlete/activities", map[string]string{
		"after":    strconv.FormatInt(after.Unix(), 10),
		"per_page": strconv.Itoa(ActivitiesPerPage),
		"page":     strconv.Itoa(page),
	}, &batch)
	return batch, err
}

// GetHeartRateStream fetches heart rate, time and velocity series.
// It returns nil without error when heart rate or time is absent.
func (c *Client) GetHeartRateStream(ctx context.Context, activityID int64) (*model.Stream, error) {
	var streams Streams
	path := fmt.Sprintf("/activities/%d/streams", activityID)
	err := c.get(ctx, path, map[string]string{
		"keys":        "heartrate,time,velocity_smooth",
		"key_by_type": "true",
	}, &streams)
	if err != nil {
		return nil, fmt.Errorf("fetching streams for activity %d: %w", activityID, err)
	}
	return streams.ToModel(), nil
}

// GetPrimaryPhotoURL returns the primary photo URL or "" on any failure
func (c *Client) GetPrimaryPhotoURL(ctx context.Context, activityID int64) string {
	var detail ActivityDetail
	path := fmt.Sprintf("/activities/%d", activityID)
	err := c.get(ctx, path, map[string]string{
		"include_all_efforts": "false",
		"photo_sources":       "true",
	}, &detail)
	if err != nil {
		c.log.Debug().Err(err).Int64("activity_id", activityID).Msg("Photo lookup failed")
		return ""
	}
	return detail.PrimaryPhotoURL()
}

// GetAthleteHeartRateZones fetches the athlete's heart-rate zones
func (c *Client) GetAthleteHeartRateZones(ctx context.Context) ([]model.Zone, error) {
	var zones AthleteZones
	if err := c.get(ctx, "/athlete/zones", nil, &zones); err != nil {
		return nil, fmt.Errorf("fetching athlete zones: %w", err)
	}
	return zones.ToModel(), nil
}

// RateLimitStatus returns the current rate limit status
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	c.mu.RLock()
	token := c.accessToken
	c.mu.RUnlock()
	if token == "" {
		return ErrNotAuthenticated
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(params).
		Get(path)

	// Update rate limiter from response headers
	if resp != nil && resp.RawResponse != nil {
		c.rateLimiter.UpdateFromHeaders(resp.Header())
	}

	if err := transport.Check(resp, err); err != nil {
		return err
	}
	return transport.Decode(resp, out)
}
