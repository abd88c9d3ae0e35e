package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/touchdown-picks/internal/domain/game"
	"github.com/riskibarqy/touchdown-picks/internal/domain/grading"
	"github.com/riskibarqy/touchdown-picks/internal/domain/pick"
	"github.com/riskibarqy/touchdown-picks/internal/domain/user"
	qb "github.com/riskibarqy/touchdown-picks/internal/platform/querybuilder"
)

// GradingRepository runs grade and override units in one transaction each,
// holding row locks on the game and its pending picks (or on the pick).
type GradingRepository struct {
	db *sqlx.DB
}

func NewGradingRepository(db *sqlx.DB) *GradingRepository {
	return &GradingRepository{db: db}
}

func (r *GradingRepository) GradeGame(ctx context.Context, gameID string, fn grading.GradeFunc) (grading.Result, bool, error) {
	var (
		result grading.Result
		found  bool
	)
	err := withTx(ctx, r.db, "grade game", func(tx *sqlx.Tx) error {
		current, ok, err := lockGame(ctx, tx, gameID)
		if err != nil || !ok {
			return err
		}
		found = true

		pending, err := lockPendingPicks(ctx, tx, gameID)
		if err != nil {
			return err
		}
		decision, err := fn(current, pending)
		if err != nil {
			return err
		}
		if decision.Skip {
			result = grading.Result{Game: current, Skipped: true}
			return nil
		}
		if decision.Game.ID != gameID {
			return fmt.Errorf("grade decision changed game id %s to %s", gameID, decision.Game.ID)
		}

		before := make(map[string]pick.Pick, len(pending))
		for _, p := range pending {
			before[p.ID] = p
		}
		for _, p := range decision.Picks {
			if _, ok := before[p.ID]; !ok {
				return fmt.Errorf("pick %s is not a pending pick of game %s", p.ID, gameID)
			}
		}

		if err := updateGame(ctx, tx, decision.Game); err != nil {
			return err
		}
		for _, p := range decision.Picks {
			if err := updatePickResult(ctx, tx, p); err != nil {
				return err
			}
		}
		deltas := grading.DeltasFor(before, decision.Picks)
		if err := applyDeltas(ctx, tx, deltas); err != nil {
			return err
		}

		result = grading.Result{Game: decision.Game, Picks: decision.Picks, UserDeltas: deltas}
		return nil
	})
	if err != nil {
		return grading.Result{}, found, err
	}
	return result, found, nil
}

func (r *GradingRepository) OverridePick(ctx context.Context, pickID string, fn grading.OverrideFunc) (grading.Result, bool, error) {
	var (
		result grading.Result
		found  bool
	)
	err := withTx(ctx, r.db, "override pick", func(tx *sqlx.Tx) error {
		current, ok, err := lockPick(ctx, tx, pickID)
		if err != nil || !ok {
			return err
		}
		found = true

		updated, err := fn(current)
		if err != nil {
			return err
		}
		if updated.ID != current.ID || updated.UserID != current.UserID || updated.GameID != current.GameID {
			return fmt.Errorf("override of pick %s changed its identity", pickID)
		}

		if err := updatePickResult(ctx, tx, updated); err != nil {
			return err
		}
		deltas := grading.DeltasFor(map[string]pick.Pick{current.ID: current}, []pick.Pick{updated})
		if err := applyDeltas(ctx, tx, deltas); err != nil {
			return err
		}

		g, _, err := getGameTx(ctx, tx, current.GameID)
		if err != nil {
			return err
		}
		result = grading.Result{Game: g, Picks: []pick.Pick{updated}, UserDeltas: deltas}
		return nil
	})
	if err != nil {
		return grading.Result{}, found, err
	}
	return result, found, nil
}

func lockPick(ctx context.Context, tx *sqlx.Tx, pickID string) (pick.Pick, bool, error) {
	query, args, err := qb.Select(pickColumns...).From("picks p").
		Where(qb.Eq("p.id", pickID)).
		ForUpdate().
		ToSQL()
	if err != nil {
		return pick.Pick{}, false, fmt.Errorf("build lock pick query: %w", err)
	}

	var row pickTableModel
	if err := tx.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return pick.Pick{}, false, nil
		}
		return pick.Pick{}, false, fmt.Errorf("lock pick %s: %w", pickID, err)
	}
	return row.toDomain(), true, nil
}

func getGameTx(ctx context.Context, tx *sqlx.Tx, gameID string) (game.Game, bool, error) {
	query, args, err := qb.Select(gameColumns...).From("games").
		Where(qb.Eq("id", gameID)).
		ToSQL()
	if err != nil {
		return game.Game{}, false, fmt.Errorf("build get game query: %w", err)
	}

	var row gameTableModel
	if err := tx.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return game.Game{}, false, nil
		}
		return game.Game{}, false, fmt.Errorf("get game %s: %w", gameID, err)
	}
	return row.toDomain(), true, nil
}

// applyDeltas updates users in id order so concurrent units lock rows in the
// same sequence.
func applyDeltas(ctx context.Context, tx *sqlx.Tx, deltas map[string]user.TotalsDelta) error {
	for _, userID := range sortedKeys(deltas) {
		if err := applyTotals(ctx, tx, userID, deltas[userID]); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(deltas map[string]user.TotalsDelta) []string {
	out := make([]string, 0, len(deltas))
	for key := range deltas {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
