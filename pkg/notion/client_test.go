package notion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redirectTransport sends every request to the test server.
type redirectTransport struct {
	target *url.URL
}

func (rt redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = rt.target.Scheme
	req.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func testClient(t *testing.T, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return NewClient("secret",
		WithRateLimit(0),
		WithRetries(1),
		WithHTTPClient(&http.Client{Transport: redirectTransport{target: u}}),
	)
}

func TestQueryDatabase_Success(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/databases/db-1/query", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","results":[{"object":"page","id":"p1"}],"has_more":false}`))
	})

	resp, err := c.QueryDatabase(context.Background(), "db-1", &notionapi.DatabaseQueryRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "p1", string(resp.Results[0].ID))
}

func TestQueryDatabase_ErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"object":"error","status":401,"code":"unauthorized","message":"API token is invalid."}`, ErrAccessDenied},
		{"restricted", http.StatusForbidden, `{"object":"error","status":403,"code":"restricted_resource","message":"no access"}`, ErrAccessDenied},
		{"not found", http.StatusNotFound, `{"object":"error","status":404,"code":"object_not_found","message":"Could not find database"}`, ErrDatabaseNotFound},
		{"rate limited", http.StatusTooManyRequests, `{}`, ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.QueryDatabase(context.Background(), "db-1", &notionapi.DatabaseQueryRequest{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Contains(t, err.Error(), "notion: query database db-1")
		})
	}
}

func TestQueryDatabase_OtherErrorsPassThrough(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"object":"error","status":400,"code":"validation_error","message":"bad filter"}`))
	})

	_, err := c.QueryDatabase(context.Background(), "db-1", &notionapi.DatabaseQueryRequest{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAccessDenied))
	assert.False(t, errors.Is(err, ErrDatabaseNotFound))
	assert.Contains(t, err.Error(), "bad filter")
}
