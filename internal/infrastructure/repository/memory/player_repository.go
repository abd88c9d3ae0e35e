package memory

import (
	"context"

	"github.com/riskibarqy/touchdown-picks/internal/domain/player"
)

type PlayerRepository struct {
	store *Store
}

func (r *PlayerRepository) GetByID(_ context.Context, playerID string) (player.Player, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, ok := r.store.players[playerID]
	if !ok {
		return player.Player{}, false, nil
	}
	return p, true, nil
}
