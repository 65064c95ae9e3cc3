package auth

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/oauth2"
)

// TokenURL is Strava's OAuth token endpoint
const TokenURL = "https://www.strava.com/oauth/token"

// Config holds the OAuth client credentials
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string // defaults to TokenURL
}

// NewOAuthConfig creates an oauth2.Config from our Config.
// Strava expects client credentials in the form body.
func NewOAuthConfig(cfg Config) *oauth2.Config {
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = TokenURL
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// ExtractAthleteID extracts the athlete ID from the token extras
// Strava includes athlete info in the token response
func ExtractAthleteID(token *oauth2.Token) int64 {
	if athlete, ok := token.Extra("athlete").(map[string]interface{}); ok {
		if id, ok := athlete["id"].(float64); ok {
			return int64(id)
		}
	}
	return 0
}

// Fingerprint identifies a credential in logs without revealing it
func Fingerprint(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])[:10]
}
