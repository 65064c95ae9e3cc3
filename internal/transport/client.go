package transport

import (
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

// NewHTTPClient returns an http.Client that retries according to p.
// onRetry may be nil.
func NewHTTPClient(p Policy, onRetry func(host string, status int)) *http.Client {
	rt := NewRetryTransport(http.DefaultTransport, p)
	rt.OnRetry = onRetry
	return &http.Client{Transport: rt}
}

// NewResty builds a resty client on top of hc. Retries happen in hc's
// transport, so resty's own retry stays disabled.
func NewResty(hc *http.Client, baseURL string) *resty.Client {
	return resty.NewWithClient(hc).
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
}

// Check turns a resty result into an error: transport failures pass
// through, responses of 400 and above become a *StatusError.
func Check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.StatusCode() < 400 {
		return nil
	}
	se := &StatusError{
		StatusCode: resp.StatusCode(),
		Snippet:    Snippet(resp.Body()),
	}
	if resp.Request != nil {
		se.Method = resp.Request.Method
		if resp.Request.RawRequest != nil {
			se.URL = redactURL(resp.Request.RawRequest.URL)
		}
	}
	return se
}

// Decode unmarshals a JSON response body into v
func Decode(resp *resty.Response, v any) error {
	if err := json.Unmarshal(resp.Body(), v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
