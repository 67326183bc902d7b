// Package notion reads the feasibility question registry from a Notion
// database.
package notion

import (
	"context"
	"errors"
	"net/http"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Failure kinds callers can branch on with errors.Is.
var (
	// ErrAccessDenied means the token is invalid or the database is not
	// shared with the integration.
	ErrAccessDenied = eris.New("notion access denied")
	// ErrDatabaseNotFound means no database with that ID is visible.
	ErrDatabaseNotFound = eris.New("notion database not found")
	// ErrRateLimited means Notion kept answering 429 after retries.
	ErrRateLimited = eris.New("notion rate limited")
)

// Client is the read-only subset of the Notion API the question registry
// uses.
type Client interface {
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// ClientOption configures the Notion client.
type ClientOption func(*notionClient)

// WithRateLimit sets the client-side throttle in requests per second.
// Zero or less disables it.
func WithRateLimit(rps float64) ClientOption {
	return func(c *notionClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
	}
}

// WithHTTPClient sends API calls through hc.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *notionClient) {
		c.apiOpts = append(c.apiOpts, notionapi.WithHTTPClient(hc))
	}
}

// WithRetries sets how many 429 responses the API client absorbs before
// giving up with ErrRateLimited. Values below 1 keep the library default.
func WithRetries(n int) ClientOption {
	return func(c *notionClient) {
		if n > 0 {
			c.apiOpts = append(c.apiOpts, notionapi.WithRetry(n))
		}
	}
}

type notionClient struct {
	inner   *notionapi.Client
	limiter *rate.Limiter
	apiOpts []notionapi.ClientOption
}

// NewClient creates a client for the given integration token, throttled to
// Notion's published 3 req/s unless overridden.
func NewClient(token string, opts ...ClientOption) Client {
	c := &notionClient{limiter: rate.NewLimiter(3, 1)}
	for _, opt := range opts {
		opt(c)
	}
	c.inner = notionapi.NewClient(notionapi.Token(token), c.apiOpts...)
	return c
}

func (c *notionClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "notion: rate limit")
		}
	}
	resp, err := c.inner.Database.Query(ctx, notionapi.DatabaseID(dbID), req)
	if err != nil {
		return nil, queryError(err, dbID)
	}
	return resp, nil
}

// queryError maps a Notion API failure onto the package's error kinds.
func queryError(err error, dbID string) error {
	var rl *notionapi.RateLimitedError
	if errors.As(err, &rl) {
		return eris.Wrapf(ErrRateLimited, "notion: query database %s: %s", dbID, rl.Message)
	}

	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return eris.Wrapf(ErrAccessDenied, "notion: query database %s: %s", dbID, apiErr.Message)
		case http.StatusNotFound:
			return eris.Wrapf(ErrDatabaseNotFound, "notion: query database %s: %s", dbID, apiErr.Message)
		case http.StatusTooManyRequests:
			return eris.Wrapf(ErrRateLimited, "notion: query database %s: %s", dbID, apiErr.Message)
		}
	}
	return eris.Wrapf(err, "notion: query database %s", dbID)
}
