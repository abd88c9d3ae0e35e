package memory

import (
	"context"
	"sort"
	"time"

	"github.com/riskibarqy/touchdown-picks/internal/domain/game"
)

type GameRepository struct {
	store *Store
}

func (r *GameRepository) GetByID(_ context.Context, gameID string) (game.Game, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	g, ok := r.store.games[gameID]
	if !ok {
		return game.Game{}, false, nil
	}
	return cloneGame(g), true, nil
}

func (r *GameRepository) GetByExternalID(_ context.Context, externalID string) (game.Game, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	gameID, ok := r.store.gameByExternal[externalID]
	if !ok {
		return game.Game{}, false, nil
	}
	return cloneGame(r.store.games[gameID]), true, nil
}

func (r *GameRepository) ListUngradedCompleted(_ context.Context) ([]game.Game, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]game.Game, 0)
	for _, g := range r.store.games {
		if g.IsCompleted() && !g.IsGraded() {
			out = append(out, cloneGame(g))
		}
	}
	sortGames(out)
	return out, nil
}

func (r *GameRepository) ListBySeasonWeek(_ context.Context, season, week int) ([]game.Game, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]game.Game, 0)
	for _, g := range r.store.games {
		if g.Season == season && g.Week == week {
			out = append(out, cloneGame(g))
		}
	}
	sortGames(out)
	return out, nil
}

func sortGames(items []game.Game) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].KickoffAt.Equal(items[j].KickoffAt) {
			return items[i].KickoffAt.Before(items[j].KickoffAt)
		}
		return items[i].ID < items[j].ID
	})
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
