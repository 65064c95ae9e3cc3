// Package notion writes activities, daily summaries and athlete metrics to
// Notion databases.
package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"strava-notion-sync/internal/logging"
	"strava-notion-sync/internal/transport"
)

const (
	BaseURL = "https://api.notion.com/v1"
	Version = "2022-06-28"

	// queryPageSize is the maximum page size Notion accepts
	queryPageSize = 100
)

// APIError is the error object Notion returns for failed requests
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion API error %d (%s): %s", e.Status, e.Code, e.Message)
}

// IsSoftFailure reports whether err means a page or property does not
// exist. Such errors fail a single write without aborting the run.
func IsSoftFailure(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Status {
	case http.StatusNotFound:
		return apiErr.Code == "object_not_found"
	case http.StatusBadRequest:
		msg := strings.ToLower(apiErr.Message)
		return strings.Contains(msg, "property") &&
			(strings.Contains(msg, "doesn't exist") || strings.Contains(msg, "is not a property"))
	}
	return false
}

// Options configure a Client
type Options struct {
	Token   string
	BaseURL string // defaults to BaseURL

	// HTTPClient carries the retry policy
	HTTPClient *http.Client

	// WriteInterval is the minimum spacing between page writes.
	// Zero disables pacing.
	WriteInterval time.Duration
}

// Client is a minimal Notion REST client
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient creates a Notion client
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = transport.NewHTTPClient(transport.DefaultPolicy(), nil)
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = BaseURL
	}

	limit := rate.Inf
	if opts.WriteInterval > 0 {
		limit = rate.Every(opts.WriteInterval)
	}

	return &Client{
		http: transport.NewResty(hc, baseURL).
			SetAuthToken(opts.Token).
			SetHeader("Notion-Version", Version),
		limiter: rate.NewLimiter(limit, 1),
		log:     logging.Component("notion"),
	}
}

// Database is the subset of a database object used here
type Database struct {
	ID         string                      `json:"id"`
	Properties map[string]DatabaseProperty `json:"properties"`
}

// DatabaseProperty describes one column
type DatabaseProperty struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Page is the subset of a page object used here
type Page struct {
	ID         string                  `json:"id"`
	Properties map[string]PageProperty `json:"properties"`
}

// PageProperty holds the text-bearing parts of a page property
type PageProperty struct {
	Type     string     `json:"type"`
	Title    []RichText `json:"title"`
	RichText []RichText `json:"rich_text"`
}

// PlainText concatenates the property's title or rich text
func (p PageProperty) PlainText() string {
	parts := p.RichText
	if len(p.Title) > 0 {
		parts = p.Title
	}
	var sb strings.Builder
	for _, rt := range parts {
		sb.WriteString(rt.PlainText)
	}
	return sb.String()
}

// RichText is one rich text segment
type RichText struct {
	PlainText string `json:"plain_text"`
}

// Query is a database query body
type Query struct {
	Filter      map[string]any `json:"filter,omitempty"`
	StartCursor string         `json:"start_cursor,omitempty"`
	PageSize    int            `json:"page_size,omitempty"`
}

// QueryResult is one page of query results
type QueryResult struct {
	Results    []Page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// RetrieveDatabase fetches a database and its property schema
func (c *Client) RetrieveDatabase(ctx context.Context, databaseID string) (*Database, error) {
	var db Database
	if err := c.do(ctx, http.MethodGet, "/databases/"+databaseID, nil, &db); err != nil {
		return nil, fmt.Errorf("retrieving database %s: %w", shortID(databaseID), err)
	}
	return &db, nil
}

// QueryDatabase runs one page of a database query
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, q Query) (*QueryResult, error) {
	if q.PageSize == 0 {
		q.PageSize = queryPageSize
	}
	var res QueryResult
	if err := c.do(ctx, http.MethodPost, "/databases/"+databaseID+"/query", q, &res); err != nil {
		return nil, fmt.Errorf("querying database %s: %w", shortID(databaseID), err)
	}
	return &res, nil
}

// QueryFirst returns the id of the first page matching filter, or ""
func (c *Client) QueryFirst(ctx context.Context, databaseID string, filter map[string]any) (string, error) {
	res, err := c.QueryDatabase(ctx, databaseID, Query{Filter: filter, PageSize: 1})
	if err != nil {
		return "", err
	}
	if len(res.Results) == 0 {
		return "", nil
	}
	return res.Results[0].ID, nil
}

// CreatePage creates a page in databaseID
func (c *Client) CreatePage(ctx context.Context, databaseID string, properties map[string]any) (*Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	body := map[string]any{
		"parent":     map[string]string{"database_id": databaseID},
		"properties": properties,
	}
	var page Page
	if err := c.do(ctx, http.MethodPost, "/pages", body, &page); err != nil {
		return nil, fmt.Errorf("creating page: %w", err)
	}
	return &page, nil
}

// UpdatePage overwrites the given properties of pageID
func (c *Client) UpdatePage(ctx context.Context, pageID string, properties map[string]any) (*Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	body := map[string]any{"properties": properties}
	var page Page
	if err := c.do(ctx, http.MethodPatch, "/pages/"+pageID, body, &page); err != nil {
		return nil, fmt.Errorf("updating page %s: %w", shortID(pageID), err)
	}
	return &page, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode()).Msg("Notion request")
	if resp.StatusCode() >= 400 {
		var apiErr APIError
		if derr := transport.Decode(resp, &apiErr); derr == nil && apiErr.Message != "" {
			if apiErr.Status == 0 {
				apiErr.Status = resp.StatusCode()
			}
			return &apiErr
		}
		return transport.Check(resp, nil)
	}
	if out == nil {
		return nil
	}
	return transport.Decode(resp, out)
}

// shortID trims an id for log output
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
