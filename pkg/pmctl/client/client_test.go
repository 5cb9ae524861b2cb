package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := New(
		WithServer(server.URL),
		WithBuildVersion("build-abc"),
		WithLogger(zaptest.NewLogger(t).Sugar()),
	)
	require.NoError(t, err)
	return c
}

func TestNew_RequiresServer(t *testing.T) {
	_, err := New()
	require.Error(t, err)

	_, err = New(WithServer(""))
	require.Error(t, err)
}

func TestGet_SendsBrowserHeaders(t *testing.T) {
	var seen http.Header
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	c.SetSession("id-token", "key-1")

	var out any
	require.NoError(t, c.get(context.Background(), "/teams", nil, &out))

	assert.Equal(t, "id-token", seen.Get("firebase-token"))
	assert.Equal(t, "build-abc", seen.Get("build-version"))
	assert.Equal(t, "key-1", seen.Get("pm-access-key"))
	assert.Equal(t, UserAgent, seen.Get("User-Agent"))
	assert.Equal(t, WebOrigin, seen.Get("Origin"))
	assert.Equal(t, WebOrigin+"/", seen.Get("Referer"))
}

func TestGet_OmitsAccessKeyHeaderWhenUnset(t *testing.T) {
	var seen http.Header
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	c.SetSession("id-token", "")

	var out any
	require.NoError(t, c.get(context.Background(), "/teams", nil, &out))

	_, present := seen["Pm-Access-Key"]
	assert.False(t, present)
}

func TestGet_NonSuccessStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"access key expired"}`))
	}))

	var out any
	err := c.get(context.Background(), "/teams", nil, &out)
	require.Error(t, err)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.Contains(t, httpErr.Message, "access key expired")
}

func TestProbe_UsesGivenCredentialsWithoutMutatingClient(t *testing.T) {
	var seen http.Header
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		require.Equal(t, "/teams", r.URL.Path)
		require.Equal(t, "num_players", r.URL.Query().Get("populate"))
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	c.SetSession("id-installed", "key-installed")

	require.NoError(t, c.Probe(context.Background(), "id-probe", "key-probe"))

	assert.Equal(t, "id-probe", seen.Get("firebase-token"))
	assert.Equal(t, "key-probe", seen.Get("pm-access-key"))
	// The probe must not overwrite the installed session.
	assert.Equal(t, "id-installed", c.identityToken)
	assert.Equal(t, "key-installed", c.accessKey)
}

func TestProbe_InvalidKey(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	err := c.Probe(context.Background(), "id-token", "key-stale")
	require.Error(t, err)
}

func TestWithTimeout(t *testing.T) {
	c, err := New(WithServer("https://api.example.com"), WithTimeout(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
}
