package memory

import (
	"context"
	"fmt"

	"github.com/riskibarqy/touchdown-picks/internal/domain/grading"
	"github.com/riskibarqy/touchdown-picks/internal/domain/pick"
	"github.com/riskibarqy/touchdown-picks/internal/domain/user"
)

// GradingRepository runs grade and override units under the store write lock.
// Nothing is written unless every step of the unit succeeds.
type GradingRepository struct {
	store *Store
}

func (r *GradingRepository) GradeGame(_ context.Context, gameID string, fn grading.GradeFunc) (grading.Result, bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.games[gameID]
	if !ok {
		return grading.Result{}, false, nil
	}

	pending := s.pendingByGameLocked(gameID)
	decision, err := fn(cloneGame(current), pending)
	if err != nil {
		return grading.Result{}, true, err
	}
	if decision.Skip {
		return grading.Result{Game: cloneGame(current), Skipped: true}, true, nil
	}
	if decision.Game.ID != gameID {
		return grading.Result{}, true, fmt.Errorf("grade decision changed game id %s to %s", gameID, decision.Game.ID)
	}

	before := make(map[string]pick.Pick, len(decision.Picks))
	for _, p := range decision.Picks {
		prev, ok := s.picks[p.ID]
		if !ok || prev.GameID != gameID {
			return grading.Result{}, true, fmt.Errorf("pick %s does not belong to game %s", p.ID, gameID)
		}
		before[p.ID] = prev
	}
	deltas := grading.DeltasFor(before, decision.Picks)
	if err := s.checkUsersLocked(deltas); err != nil {
		return grading.Result{}, true, err
	}

	s.games[gameID] = cloneGame(decision.Game)
	graded := make([]pick.Pick, 0, len(decision.Picks))
	for _, p := range decision.Picks {
		s.picks[p.ID] = clonePick(p)
		graded = append(graded, clonePick(p))
	}
	s.applyDeltasLocked(deltas)

	return grading.Result{
		Game:       cloneGame(decision.Game),
		Picks:      graded,
		UserDeltas: deltas,
	}, true, nil
}

func (r *GradingRepository) OverridePick(_ context.Context, pickID string, fn grading.OverrideFunc) (grading.Result, bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.picks[pickID]
	if !ok {
		return grading.Result{}, false, nil
	}

	updated, err := fn(clonePick(current))
	if err != nil {
		return grading.Result{}, true, err
	}
	if updated.ID != current.ID || updated.UserID != current.UserID || updated.GameID != current.GameID {
		return grading.Result{}, true, fmt.Errorf("override of pick %s changed its identity", pickID)
	}

	deltas := grading.DeltasFor(map[string]pick.Pick{current.ID: current}, []pick.Pick{updated})
	if err := s.checkUsersLocked(deltas); err != nil {
		return grading.Result{}, true, err
	}

	s.picks[pickID] = clonePick(updated)
	s.applyDeltasLocked(deltas)

	return grading.Result{
		Game:       cloneGame(s.games[current.GameID]),
		Picks:      []pick.Pick{clonePick(updated)},
		UserDeltas: deltas,
	}, true, nil
}

func (s *Store) checkUsersLocked(deltas map[string]user.TotalsDelta) error {
	for userID := range deltas {
		if _, ok := s.users[userID]; !ok {
			return fmt.Errorf("user %s not found", userID)
		}
	}
	return nil
}

func (s *Store) applyDeltasLocked(deltas map[string]user.TotalsDelta) {
	now := s.clock.Now().UTC()
	for userID, delta := range deltas {
		u := s.users[userID].Apply(delta)
		u.UpdatedAt = now
		s.users[userID] = u
	}
}
