package memory

import (
	"context"
	"fmt"

	"github.com/riskibarqy/touchdown-picks/internal/domain/pick"
)

type PickRepository struct {
	store *Store
}

func (r *PickRepository) GetByID(_ context.Context, pickID string) (pick.Pick, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, ok := r.store.picks[pickID]
	if !ok {
		return pick.Pick{}, false, nil
	}
	return clonePick(p), true, nil
}

func (r *PickRepository) GetByUserAndGame(_ context.Context, userID, gameID string) (pick.Pick, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, pickID := range r.store.pickOrder {
		p := r.store.picks[pickID]
		if p.UserID == userID && p.GameID == gameID {
			return clonePick(p), true, nil
		}
	}
	return pick.Pick{}, false, nil
}

func (r *PickRepository) ListPendingByGame(_ context.Context, gameID string) ([]pick.Pick, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.store.pendingByGameLocked(gameID), nil
}

func (r *PickRepository) ListByUser(_ context.Context, userID string, scope pick.Scope) ([]pick.Scored, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]pick.Scored, 0)
	for _, pickID := range r.store.pickOrder {
		p := r.store.picks[pickID]
		if p.UserID != userID {
			continue
		}
		if item, ok := r.store.scopedLocked(p, scope); ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *PickRepository) ListSettled(_ context.Context, scope pick.Scope) ([]pick.Scored, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]pick.Scored, 0)
	for _, pickID := range r.store.pickOrder {
		p := r.store.picks[pickID]
		if !p.Status.IsSettled() {
			continue
		}
		if item, ok := r.store.scopedLocked(p, scope); ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *PickRepository) ListSettledAll(_ context.Context) ([]pick.Pick, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]pick.Pick, 0)
	for _, pickID := range r.store.pickOrder {
		p := r.store.picks[pickID]
		if p.Status.IsSettled() {
			out = append(out, clonePick(p))
		}
	}
	return out, nil
}

func (r *PickRepository) Create(_ context.Context, item pick.Pick) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.picks[item.ID]; ok {
		return fmt.Errorf("pick id %s already exists", item.ID)
	}
	for _, p := range r.store.picks {
		if p.UserID == item.UserID && p.GameID == item.GameID {
			return pick.ErrDuplicate
		}
	}
	r.store.picks[item.ID] = clonePick(item)
	r.store.pickOrder = append(r.store.pickOrder, item.ID)
	return nil
}

func (r *PickRepository) UpdatePlayer(_ context.Context, pickID, playerID string) (pick.Pick, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.store.picks[pickID]
	if !ok {
		return pick.Pick{}, fmt.Errorf("%w: %s", pick.ErrNotFound, pickID)
	}
	p.PlayerID = playerID
	p.UpdatedAt = r.store.clock.Now().UTC()
	r.store.picks[pickID] = p
	return clonePick(p), nil
}

func (r *PickRepository) Delete(_ context.Context, pickID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.picks[pickID]; !ok {
		return fmt.Errorf("%w: %s", pick.ErrNotFound, pickID)
	}
	delete(r.store.picks, pickID)
	for i, existing := range r.store.pickOrder {
		if existing == pickID {
			r.store.pickOrder = append(r.store.pickOrder[:i], r.store.pickOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) pendingByGameLocked(gameID string) []pick.Pick {
	out := make([]pick.Pick, 0)
	for _, pickID := range s.pickOrder {
		p := s.picks[pickID]
		if p.GameID == gameID && p.Status == pick.StatusPending {
			out = append(out, clonePick(p))
		}
	}
	return out
}

func (s *Store) scopedLocked(p pick.Pick, scope pick.Scope) (pick.Scored, bool) {
	g, ok := s.games[p.GameID]
	if !ok {
		return pick.Scored{}, false
	}
	if scope.Season > 0 && g.Season != scope.Season {
		return pick.Scored{}, false
	}
	if scope.Week != nil && g.Week != *scope.Week {
		return pick.Scored{}, false
	}
	return pick.Scored{Pick: clonePick(p), Season: g.Season, Week: g.Week}, true
}
