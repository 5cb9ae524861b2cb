package client

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchFirst_FirstCandidateWins(t *testing.T) {
	var paths []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{map[string]any{"id": 1}}})
	}))

	res := Resource{
		Kind: KindGames,
		Candidates: []Endpoint{
			{Path: "/games"},
			{Path: "/matches"},
		},
	}
	result, err := c.FetchFirst(context.Background(), res)
	require.NoError(t, err)
	assert.Equal(t, "/games", result.Endpoint)
	assert.Equal(t, []string{"/games"}, paths, "later candidates must not be tried after a success")
}

func TestFetchFirst_TriesCandidatesInOrderExactlyOnce(t *testing.T) {
	var paths []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path != "/program_admin/games" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))

	res := Resource{
		Kind: KindGames,
		Candidates: []Endpoint{
			{Path: "/games"},
			{Path: "/matches"},
			{Path: "/program_admin/games"},
			{Path: "/program_admin/schedule"},
		},
	}
	result, err := c.FetchFirst(context.Background(), res)
	require.NoError(t, err)
	assert.Equal(t, "/program_admin/games", result.Endpoint)
	assert.Equal(t, []string{"/games", "/matches", "/program_admin/games"}, paths)
}

func TestFetchFirst_AllCandidatesFail(t *testing.T) {
	var calls int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))

	res := Resource{
		Kind:       KindTournaments,
		Candidates: []Endpoint{{Path: "/tournaments"}, {Path: "/events"}},
	}
	_, err := c.FetchFirst(context.Background(), res)
	require.ErrorIs(t, err, ErrNoEndpoint)
	assert.Equal(t, 2, calls)
}

func TestFetchFirst_MalformedBodyIsSkipped(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/games" {
			_, _ = w.Write([]byte("<html>not json</html>"))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))

	res := Resource{
		Kind:       KindGames,
		Candidates: []Endpoint{{Path: "/games"}, {Path: "/matches"}},
	}
	result, err := c.FetchFirst(context.Background(), res)
	require.NoError(t, err)
	assert.Equal(t, "/matches", result.Endpoint)
}

func TestFetchFirst_SendsCandidateQuery(t *testing.T) {
	var seen string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Query().Get("data")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))

	_, err := c.FetchFirst(context.Background(), Resources()[KindPlayers])
	require.NoError(t, err)
	assert.JSONEq(t, `{"include_archived":false}`, seen)
}

func TestResources_CoversAllKinds(t *testing.T) {
	resources := Resources()
	for _, kind := range []ResourceKind{KindPlayers, KindTeams, KindPrograms, KindTournaments, KindGames} {
		res, ok := resources[kind]
		require.True(t, ok, "missing resource %q", kind)
		assert.NotEmpty(t, res.Candidates)
	}
	// Route drift is expected for these two, hence multiple candidates.
	assert.Greater(t, len(resources[KindTournaments].Candidates), 1)
	assert.Greater(t, len(resources[KindGames].Candidates), 1)
}
