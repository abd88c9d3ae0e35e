package nfldata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/touchdown-picks/internal/platform/logging"
	"github.com/riskibarqy/touchdown-picks/internal/platform/resilience"
	"github.com/riskibarqy/touchdown-picks/internal/usecase"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate func(*ClientConfig)) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := ClientConfig{
		HTTPClient:   server.Client(),
		BaseURL:      server.URL + "/v1/",
		APIKey:       "secret-key",
		RetryBackoff: time.Millisecond,
		Logger:       logging.NewNop(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestClient_FetchGames(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/seasons/2025/weeks/1/games" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get(apiKeyHeader); got != "secret-key" {
			t.Errorf("unexpected api key header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"id":"g-1","kickoff_at":"2025-09-07T17:00:00Z","status":"Final",
			 "home_team":{"id":"KC","name":"Chiefs","abbreviation":"kc","city":"Kansas City"},
			 "away_team":{"id":"BAL","name":"Ravens","abbreviation":"BAL","city":"Baltimore"},
			 "players":[{"id":"p-15","team_id":"KC","name":"Patrick Mahomes","position":"qb","jersey_number":15},{"id":""}]},
			{"id":"","status":"scheduled"}
		]}`))
	}, nil)

	games, err := client.FetchGames(context.Background(), 2025, 1)
	if err != nil {
		t.Fatalf("fetch games: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("unexpected game count: got=%d want=1", len(games))
	}

	got := games[0]
	if got.ExternalID != "g-1" || got.Season != 2025 || got.Week != 1 || got.Status != "COMPLETED" {
		t.Fatalf("unexpected game: %+v", got)
	}
	if !got.KickoffAt.Equal(time.Date(2025, 9, 7, 17, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected kickoff: %s", got.KickoffAt)
	}
	if got.HomeTeam.Abbreviation != "KC" || got.AwayTeam.ExternalID != "BAL" {
		t.Fatalf("unexpected teams: home=%+v away=%+v", got.HomeTeam, got.AwayTeam)
	}
	if len(got.Players) != 1 || got.Players[0].Position != "QB" || got.Players[0].TeamExternalID != "KC" {
		t.Fatalf("unexpected players: %+v", got.Players)
	}
}

func TestClient_FetchGameResult(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/games/g-1/result":
			_, _ = w.Write([]byte(`{"data":{"home_score":27,"away_score":20,"status":"FINAL"}}`))
		case "/v1/games/g-2/result":
			_, _ = w.Write([]byte(`{"data":{"home_score":null,"away_score":null,"status":"SCHEDULED"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, nil)
	ctx := context.Background()

	result, found, err := client.FetchGameResult(ctx, "g-1")
	if err != nil || !found {
		t.Fatalf("unexpected result lookup: found=%v err=%v", found, err)
	}
	if result.HomeScore != 27 || result.AwayScore != 20 || !result.Final {
		t.Fatalf("unexpected result: %+v", result)
	}

	if _, found, err := client.FetchGameResult(ctx, "g-2"); found || err != nil {
		t.Fatalf("game without scores should be not found: found=%v err=%v", found, err)
	}
	if _, found, err := client.FetchGameResult(ctx, "g-404"); found || err != nil {
		t.Fatalf("404 should be not found: found=%v err=%v", found, err)
	}
}

func TestClient_FetchTouchdownScorers(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/games/g-1/touchdowns":
			_, _ = w.Write([]byte(`{"data":{"first_scorer_id":"p-87","scorer_ids":["p-87"," p-15 ",""]}}`))
		case "/v1/games/g-2/touchdowns":
			_, _ = w.Write([]byte(`{"data":{"first_scorer_id":"","scorer_ids":[]}}`))
		case "/v1/games/g-3/touchdowns":
			_, _ = w.Write([]byte(`{"data":{}}`))
		}
	}, nil)
	ctx := context.Background()

	scorers, found, err := client.FetchTouchdownScorers(ctx, "g-1")
	if err != nil || !found {
		t.Fatalf("unexpected lookup: found=%v err=%v", found, err)
	}
	if scorers.FirstScorerID != "p-87" || len(scorers.AllScorerIDs) != 2 || scorers.AllScorerIDs[1] != "p-15" {
		t.Fatalf("unexpected scorers: %+v", scorers)
	}

	zero, _, _ := client.FetchTouchdownScorers(ctx, "g-2")
	if zero.AllScorerIDs == nil || len(zero.AllScorerIDs) != 0 {
		t.Fatalf("zero touchdown game must keep an empty non-nil list: %#v", zero.AllScorerIDs)
	}

	missing, _, _ := client.FetchTouchdownScorers(ctx, "g-3")
	if missing.AllScorerIDs != nil {
		t.Fatalf("missing scorer list must stay nil: %#v", missing.AllScorerIDs)
	}
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}, func(cfg *ClientConfig) {
		cfg.MaxRetries = 2
	})

	games, err := client.FetchGames(context.Background(), 2025, 2)
	if err != nil {
		t.Fatalf("fetch games: %v", err)
	}
	if len(games) != 0 || calls.Load() != 3 {
		t.Fatalf("unexpected outcome: games=%d calls=%d", len(games), calls.Load())
	}
}

func TestClient_TransientFailureIsDependencyUnavailable(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, func(cfg *ClientConfig) {
		cfg.MaxRetries = 1
		cfg.CircuitBreaker = resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		}
	})
	ctx := context.Background()

	_, err := client.FetchGames(ctx, 2025, 3)
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("unexpected call count: got=%d want=2", calls.Load())
	}

	_, err = client.FetchGames(ctx, 2025, 3)
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected open breaker to report dependency unavailable, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("open breaker must not reach the provider: calls=%d", calls.Load())
	}
}

func TestClient_PermanentFailureIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}, func(cfg *ClientConfig) {
		cfg.MaxRetries = 3
	})

	_, err := client.FetchGames(context.Background(), 2025, 1)
	if err == nil || errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("unexpected call count: got=%d want=1", calls.Load())
	}
}

func TestNewClient_RejectsInvalidBaseURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "ftp://nfl.example.com", "http://"} {
		if _, err := NewClient(ClientConfig{BaseURL: raw}); err == nil {
			t.Fatalf("expected error for base url %q", raw)
		}
	}
}

func TestMapStatus(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Final":        "COMPLETED",
		"final_ot":     "COMPLETED",
		"LIVE":         "IN_PROGRESS",
		"postponed":    "SUSPENDED",
		"":             "SCHEDULED",
		"pre-game":     "SCHEDULED",
		"STATUS_FINAL": "COMPLETED",
	}
	for raw, want := range cases {
		if got := mapStatus(raw); got != want {
			t.Fatalf("unexpected status for %q: got=%s want=%s", raw, got, want)
		}
	}
}
