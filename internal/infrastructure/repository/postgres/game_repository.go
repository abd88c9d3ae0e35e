package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/touchdown-picks/internal/domain/game"
	qb "github.com/riskibarqy/touchdown-picks/internal/platform/querybuilder"
)

type GameRepository struct {
	db *sqlx.DB
}

func NewGameRepository(db *sqlx.DB) *GameRepository {
	return &GameRepository{db: db}
}

func (r *GameRepository) GetByID(ctx context.Context, id string) (game.Game, bool, error) {
	return r.getOne(ctx, "id", id)
}

func (r *GameRepository) GetByExternalID(ctx context.Context, externalID string) (game.Game, bool, error) {
	return r.getOne(ctx, "external_id", externalID)
}

func (r *GameRepository) getOne(ctx context.Context, column, value string) (game.Game, bool, error) {
	query, args, err := qb.Select(gameColumns...).From("games").
		Where(qb.Eq(column, value)).
		ToSQL()
	if err != nil {
		return game.Game{}, false, fmt.Errorf("build get game by %s query: %w", column, err)
	}

	var row gameTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return game.Game{}, false, nil
		}
		return game.Game{}, false, fmt.Errorf("get game by %s: %w", column, err)
	}
	return row.toDomain(), true, nil
}

func (r *GameRepository) ListUngradedCompleted(ctx context.Context) ([]game.Game, error) {
	return r.list(ctx, "list ungraded completed games",
		qb.Eq("status", string(game.StatusCompleted)),
		qb.IsNull("scored_at"),
	)
}

func (r *GameRepository) ListBySeasonWeek(ctx context.Context, season, week int) ([]game.Game, error) {
	return r.list(ctx, "list games by season week",
		qb.Eq("season", season),
		qb.Eq("week", week),
	)
}

func (r *GameRepository) list(ctx context.Context, name string, conditions ...qb.Condition) ([]game.Game, error) {
	query, args, err := qb.Select(gameColumns...).From("games").
		Where(conditions...).
		OrderBy("kickoff_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", name, err)
	}

	var rows []gameTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	out := make([]game.Game, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// lockGame selects the game row FOR UPDATE inside tx.
func lockGame(ctx context.Context, tx *sqlx.Tx, gameID string) (game.Game, bool, error) {
	query, args, err := qb.Select(gameColumns...).From("games").
		Where(qb.Eq("id", gameID)).
		ForUpdate().
		ToSQL()
	if err != nil {
		return game.Game{}, false, fmt.Errorf("build lock game query: %w", err)
	}

	var row gameTableModel
	if err := tx.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return game.Game{}, false, nil
		}
		return game.Game{}, false, fmt.Errorf("lock game %s: %w", gameID, err)
	}
	return row.toDomain(), true, nil
}

func updateGame(ctx context.Context, tx *sqlx.Tx, item game.Game) error {
	row := gameRow(item)
	query, args, err := qb.Update("games").
		Set("status", row.Status).
		Set("home_score", row.HomeScore).
		Set("away_score", row.AwayScore).
		Set("first_td_scorer_id", row.FirstTDScorerID).
		Set("all_td_scorer_ids", row.AllTDScorerIDs).
		Set("scored_at", row.ScoredAt).
		Set("is_manually_scored", row.IsManuallyScored).
		Set("updated_at", row.UpdatedAt).
		Where(qb.Eq("id", item.ID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update game query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update game %s: %w", item.ID, err)
	}
	return nil
}
