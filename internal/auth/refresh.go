package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNoAccessToken is returned when the token endpoint answers without an access token
var ErrNoAccessToken = errors.New("token response missing access_token")

// RefreshSource exchanges a long-lived refresh token for short-lived access
// tokens. Strava may rotate the refresh token on every exchange; the newest
// one is kept for the next call and reported through onRotate.
type RefreshSource struct {
	config     *oauth2.Config
	httpClient *http.Client
	onRotate   func(fingerprint string)

	mu           sync.Mutex
	refreshToken string
}

// NewRefreshSource creates a RefreshSource. Token requests go through hc so
// they share the retry policy of the API client; hc may be nil.
func NewRefreshSource(cfg *oauth2.Config, refreshToken string, hc *http.Client, onRotate func(fingerprint string)) *RefreshSource {
	return &RefreshSource{
		config:       cfg,
		httpClient:   hc,
		onRotate:     onRotate,
		refreshToken: refreshToken,
	}
}

// Refresh performs the refresh-token grant
func (s *RefreshSource) Refresh(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}

	// An expired token with only a refresh token forces the grant
	src := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: s.refreshToken})
	tok, err := src.Token()
	if err != nil {
		if strings.Contains(err.Error(), "missing access_token") {
			return nil, fmt.Errorf("%w: %v", ErrNoAccessToken, err)
		}
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, ErrNoAccessToken
	}

	if tok.RefreshToken != "" && tok.RefreshToken != s.refreshToken {
		s.refreshToken = tok.RefreshToken
		if s.onRotate != nil {
			s.onRotate(Fingerprint(tok.RefreshToken))
		}
	}

	return tok, nil
}

// Fingerprint returns the fingerprint of the refresh token currently held
func (s *RefreshSource) Fingerprint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Fingerprint(s.refreshToken)
}
