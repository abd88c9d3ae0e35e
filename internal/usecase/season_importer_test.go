package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/touchdown-picks/internal/domain/pick"
	"github.com/riskibarqy/touchdown-picks/internal/domain/user"
	"github.com/riskibarqy/touchdown-picks/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/touchdown-picks/internal/platform/id"
	"github.com/riskibarqy/touchdown-picks/internal/platform/logging"
)

func providerGame(externalID, status string) ExternalGame {
	return ExternalGame{
		ExternalID: externalID,
		Season:     2025,
		Week:       1,
		KickoffAt:  time.Date(2025, 9, 7, 17, 0, 0, 0, time.UTC),
		Status:     status,
		HomeTeam:   ExternalTeam{ExternalID: "KC", Name: "Chiefs", Abbreviation: "KC", City: "Kansas City"},
		AwayTeam:   ExternalTeam{ExternalID: "BUF", Name: "Bills", Abbreviation: "BUF", City: "Buffalo"},
		Players: []ExternalPlayer{
			{ExternalID: "pl-kelce", TeamExternalID: "KC", Name: "Travis Kelce", Position: "TE", JerseyNumber: 87},
			{ExternalID: "pl-cook", TeamExternalID: "BUF", Name: "James Cook", Position: "RB", JerseyNumber: 4},
		},
	}
}

func newImporterFixture(t *testing.T, provider *fakeProvider) (*SeasonImporter, *memory.Store, *fakeProgress) {
	t.Helper()

	store := memory.NewStore(memory.Seed{
		Users: []user.User{{ID: "u1", Username: "alice"}},
	}, memory.WithIDGenerator(&id.SequenceGenerator{Prefix: "id"}))
	scoring := NewScoringService(store.Grading(), store.Users(), nil, logging.NewNop())
	progress := newFakeProgress()
	importer := NewSeasonImporter(provider, store.Ingest(), scoring, progress, 2, logging.NewNop())
	return importer, store, progress
}

func TestSeasonImporter_ImportThenGrade(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		games: map[int][]ExternalGame{1: {providerGame("ext-1", "SCHEDULED")}},
	}
	importer, store, progress := newImporterFixture(t, provider)
	ctx := context.Background()

	first, err := importer.Import(ctx, ImportRequest{JobID: "job-1", Season: 2025, Weeks: []int{1}})
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	if first.Stats.GamesCreated != 1 || first.Stats.TeamsCreated != 2 || first.Stats.PlayersCreated != 2 {
		t.Fatalf("unexpected first stats: %+v", first.Stats)
	}

	g, found, _ := store.Games().GetByExternalID(ctx, "ext-1")
	if !found {
		t.Fatalf("expected game ext-1 to be stored")
	}
	ids, _ := store.Ingest().ResolvePlayerIDs(ctx, []string{"pl-kelce"})
	if err := store.Picks().Create(ctx, pick.Pick{ID: "k1", UserID: "u1", GameID: g.ID, PlayerID: ids["pl-kelce"], Status: pick.StatusPending}); err != nil {
		t.Fatalf("create pick: %v", err)
	}

	provider.games[1] = []ExternalGame{providerGame("ext-1", "FINAL"), providerGame("ext-3", "FINAL")}
	provider.results = map[string]ExternalGameResult{
		"ext-1": {HomeScore: 31, AwayScore: 24, Final: true},
		"ext-3": {HomeScore: 10, AwayScore: 3, Final: true},
	}
	provider.scorers = map[string]ExternalTouchdownScorers{
		"ext-1": {FirstScorerID: "pl-kelce", AllScorerIDs: []string{"pl-kelce", "pl-cook", "pl-unknown"}},
	}

	second, err := importer.Import(ctx, ImportRequest{JobID: "job-2", Season: 2025, GradeGames: true})
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if provider.calls != 3 {
		t.Fatalf("expected weeks 1..2 to be fetched on the second run, calls=%d", provider.calls)
	}
	if second.Stats.GamesGraded != 1 || second.Stats.PicksGraded != 1 {
		t.Fatalf("unexpected grading stats: %+v", second.Stats)
	}
	if second.Stats.GamesUpdated != 1 || second.Stats.GamesCreated != 1 || second.Stats.GamesProcessed != 2 {
		t.Fatalf("unexpected game stats: %+v", second.Stats)
	}
	if len(second.Errors) != 1 || !strings.Contains(second.Errors[0], "ext-3") {
		t.Fatalf("unexpected errors: %v", second.Errors)
	}

	graded, _, _ := store.Picks().GetByID(ctx, "k1")
	if graded.Status != pick.StatusWin || graded.TotalPoints != 4 {
		t.Fatalf("unexpected graded pick: %+v", graded)
	}
	alice, _, _ := store.Users().GetByID(ctx, "u1")
	if alice.TotalScore != 4 {
		t.Fatalf("unexpected user score: got=%d want=4", alice.TotalScore)
	}
	g, _, _ = store.Games().GetByExternalID(ctx, "ext-1")
	if len(g.AllTDScorerIDs) != 2 {
		t.Fatalf("unknown scorers must be dropped: %v", g.AllTDScorerIDs)
	}
	unresolved, _, _ := store.Games().GetByExternalID(ctx, "ext-3")
	if unresolved.IsCompleted() {
		t.Fatalf("game with invalid result data must not be completed")
	}

	snapshot, ok, _ := progress.GetProgress(ctx, "job-2")
	if !ok || snapshot.Stats.GamesProcessed != 2 {
		t.Fatalf("unexpected progress snapshot: ok=%v %+v", ok, snapshot)
	}
}

func TestSeasonImporter_ProviderFailureAborts(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{gameErr: fmt.Errorf("%w: connection refused", ErrDependencyUnavailable)}
	importer, _, _ := newImporterFixture(t, provider)

	_, err := importer.Import(context.Background(), ImportRequest{JobID: "job-1", Season: 2025})
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("import must stop at the first failed week, calls=%d", provider.calls)
	}
}

func TestSeasonImporter_StopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{games: map[int][]ExternalGame{1: {providerGame("ext-1", "SCHEDULED")}}}
	importer, _, _ := newImporterFixture(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := importer.Import(ctx, ImportRequest{JobID: "job-1", Season: 2025})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if provider.calls != 0 {
		t.Fatalf("no week should be fetched, calls=%d", provider.calls)
	}
}
