package client

import (
	"context"
	"errors"
	"net/url"
)

// ResourceKind names one logical resource the backend serves.
type ResourceKind string

const (
	KindPlayers     ResourceKind = "players"
	KindTeams       ResourceKind = "teams"
	KindPrograms    ResourceKind = "programs"
	KindTournaments ResourceKind = "tournaments"
	KindGames       ResourceKind = "games"
)

// Endpoint is one candidate path for a resource whose exact route is not
// guaranteed stable.
type Endpoint struct {
	Path  string
	Query url.Values
}

// Resource declares the ordered candidate endpoints for one kind. Order
// matters: candidates are tried strictly first to last.
type Resource struct {
	Kind       ResourceKind
	Candidates []Endpoint
}

// FetchResult is a successful fetch: the decoded payload and the endpoint
// that served it.
type FetchResult struct {
	Payload  any
	Endpoint string
}

// ErrNoEndpoint means every candidate for a resource was exhausted. It
// reflects an unknown or moved URL, not a session failure, and must not abort
// fetching of other resources.
var ErrNoEndpoint = errors.New("no endpoint found")

// FetchFirst tries the resource's candidates in order and returns the first
// well-formed successful response. A candidate that errors in any way is
// skipped and the next one tried.
func (c *Client) FetchFirst(ctx context.Context, res Resource) (*FetchResult, error) {
	for _, candidate := range res.Candidates {
		var payload any
		if err := c.get(ctx, candidate.Path, candidate.Query, &payload); err != nil {
			c.log.Debugw("candidate endpoint failed",
				"kind", res.Kind, "endpoint", candidate.Path, "error", err)
			continue
		}
		c.log.Debugw("candidate endpoint succeeded", "kind", res.Kind, "endpoint", candidate.Path)
		return &FetchResult{Payload: payload, Endpoint: candidate.Path}, nil
	}
	return nil, ErrNoEndpoint
}

// Resources returns the known resource kinds with their candidate endpoint
// lists. Players, teams and programs have stable routes; tournaments and
// games have moved between releases, so several plausible paths are tried.
func Resources() map[ResourceKind]Resource {
	return map[ResourceKind]Resource{
		KindPlayers: {
			Kind: KindPlayers,
			Candidates: []Endpoint{{
				Path: "/players",
				Query: url.Values{
					"data":     []string{`{"include_archived":false}`},
					"populate": []string{"team_players,users,program_ids"},
				},
			}},
		},
		KindTeams: {
			Kind: KindTeams,
			Candidates: []Endpoint{{
				Path:  "/teams",
				Query: url.Values{"populate": []string{"num_players"}},
			}},
		},
		KindPrograms: {
			Kind: KindPrograms,
			Candidates: []Endpoint{{
				Path:  "/program_admin/programs",
				Query: url.Values{"populate": []string{"prune"}},
			}},
		},
		KindTournaments: {
			Kind: KindTournaments,
			Candidates: []Endpoint{
				{Path: "/tournaments"},
				{Path: "/events"},
				{Path: "/program_admin/events"},
				{Path: "/program_admin/tournaments"},
			},
		},
		KindGames: {
			Kind: KindGames,
			Candidates: []Endpoint{
				{Path: "/games"},
				{Path: "/matches"},
				{Path: "/schedule"},
				{Path: "/program_admin/games"},
				{Path: "/program_admin/schedule"},
			},
		},
	}
}
