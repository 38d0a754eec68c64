package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestClient builds a Client for a test and closes it on cleanup.
// A nil cfg means DefaultConfig.
func newTestClient(t *testing.T, cfg *Config) *Client {
	t.Helper()
	client := New(cfg)
	t.Cleanup(func() { client.Close() })
	return client
}

// newTestServer starts an httptest server wired to handler and shuts it
// down on cleanup.
func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(func() { server.Close() })
	return server
}

// closeResponseBody drains nothing and closes resp.Body, tolerating nil
// responses from failed requests. Defer it right after checking the
// request error.
func closeResponseBody(t *testing.T, resp *http.Response) {
	t.Helper()
	if resp == nil || resp.Body == nil {
		return
	}
	if err := resp.Body.Close(); err != nil {
		t.Logf("closing response body: %v", err)
	}
}
