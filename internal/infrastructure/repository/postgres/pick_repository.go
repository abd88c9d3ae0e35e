package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/touchdown-picks/internal/domain/pick"
	qb "github.com/riskibarqy/touchdown-picks/internal/platform/querybuilder"
)

type PickRepository struct {
	db *sqlx.DB
}

func NewPickRepository(db *sqlx.DB) *PickRepository {
	return &PickRepository{db: db}
}

func (r *PickRepository) GetByID(ctx context.Context, id string) (pick.Pick, bool, error) {
	return r.getOne(ctx, qb.Eq("p.id", id))
}

func (r *PickRepository) GetByUserAndGame(ctx context.Context, userID, gameID string) (pick.Pick, bool, error) {
	return r.getOne(ctx, qb.Eq("p.user_id", userID), qb.Eq("p.game_id", gameID))
}

func (r *PickRepository) getOne(ctx context.Context, conditions ...qb.Condition) (pick.Pick, bool, error) {
	query, args, err := qb.Select(pickColumns...).From("picks p").
		Where(conditions...).
		ToSQL()
	if err != nil {
		return pick.Pick{}, false, fmt.Errorf("build get pick query: %w", err)
	}

	var row pickTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return pick.Pick{}, false, nil
		}
		return pick.Pick{}, false, fmt.Errorf("get pick: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *PickRepository) ListPendingByGame(ctx context.Context, gameID string) ([]pick.Pick, error) {
	query, args, err := qb.Select(pickColumns...).From("picks p").
		Where(qb.Eq("p.game_id", gameID), qb.Eq("p.status", string(pick.StatusPending))).
		OrderBy("p.created_at", "p.id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list pending picks query: %w", err)
	}
	return selectPicks(ctx, r.db, query, args)
}

func (r *PickRepository) ListByUser(ctx context.Context, userID string, scope pick.Scope) ([]pick.Scored, error) {
	conditions := append([]qb.Condition{qb.Eq("p.user_id", userID)}, scopeConditions(scope)...)
	return r.listScored(ctx, "list picks by user", conditions...)
}

func (r *PickRepository) ListSettled(ctx context.Context, scope pick.Scope) ([]pick.Scored, error) {
	conditions := append([]qb.Condition{settledCondition()}, scopeConditions(scope)...)
	return r.listScored(ctx, "list settled picks", conditions...)
}

func (r *PickRepository) ListSettledAll(ctx context.Context) ([]pick.Pick, error) {
	query, args, err := qb.Select(pickColumns...).From("picks p").
		Where(settledCondition()).
		OrderBy("p.created_at", "p.id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list all settled picks query: %w", err)
	}
	return selectPicks(ctx, r.db, query, args)
}

func (r *PickRepository) listScored(ctx context.Context, name string, conditions ...qb.Condition) ([]pick.Scored, error) {
	columns := append(append([]string(nil), pickColumns...), "g.season", "g.week")
	query, args, err := qb.Select(columns...).From("picks p").
		Join("JOIN games g ON g.id = p.game_id").
		Where(conditions...).
		OrderBy("g.kickoff_at", "p.created_at", "p.id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", name, err)
	}

	var rows []scoredPickTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	out := make([]pick.Scored, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *PickRepository) Create(ctx context.Context, item pick.Pick) error {
	query, args, err := qb.InsertModel("picks", pickRow(item), "")
	if err != nil {
		return fmt.Errorf("build insert pick query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err, constraintPickUserGame) {
			return fmt.Errorf("%w: user=%s game=%s", pick.ErrDuplicate, item.UserID, item.GameID)
		}
		return fmt.Errorf("insert pick: %w", err)
	}
	return nil
}

func (r *PickRepository) UpdatePlayer(ctx context.Context, id, playerID string) (pick.Pick, error) {
	query, args, err := qb.Update("picks").
		Set("player_id", playerID).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", id)).
		Suffix("RETURNING *").
		ToSQL()
	if err != nil {
		return pick.Pick{}, fmt.Errorf("build update pick player query: %w", err)
	}

	var row pickTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return pick.Pick{}, fmt.Errorf("%w: %s", pick.ErrNotFound, id)
		}
		return pick.Pick{}, fmt.Errorf("update pick player: %w", err)
	}
	return row.toDomain(), nil
}

func (r *PickRepository) Delete(ctx context.Context, id string) error {
	query, args, err := qb.DeleteFrom("picks").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete pick query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete pick: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete pick: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", pick.ErrNotFound, id)
	}
	return nil
}

func settledCondition() qb.Condition {
	return qb.InStrings("p.status", []string{string(pick.StatusWin), string(pick.StatusLoss)})
}

func scopeConditions(scope pick.Scope) []qb.Condition {
	var out []qb.Condition
	if scope.Season > 0 {
		out = append(out, qb.Eq("g.season", scope.Season))
	}
	if scope.Week != nil {
		out = append(out, qb.Eq("g.week", *scope.Week))
	}
	return out
}

type queryer interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

func selectPicks(ctx context.Context, db queryer, query string, args []any) ([]pick.Pick, error) {
	var rows []pickTableModel
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select picks: %w", err)
	}
	out := make([]pick.Pick, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// lockPendingPicks selects a game's pending picks FOR UPDATE inside tx.
func lockPendingPicks(ctx context.Context, tx *sqlx.Tx, gameID string) ([]pick.Pick, error) {
	query, args, err := qb.Select(pickColumns...).From("picks p").
		Where(qb.Eq("p.game_id", gameID), qb.Eq("p.status", string(pick.StatusPending))).
		OrderBy("p.id").
		ForUpdate().
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build lock pending picks query: %w", err)
	}
	return selectPicks(ctx, tx, query, args)
}

func updatePickResult(ctx context.Context, tx *sqlx.Tx, item pick.Pick) error {
	row := pickRow(item)
	query, args, err := qb.Update("picks").
		Set("status", row.Status).
		Set("ftd_points", row.FTDPoints).
		Set("attd_points", row.ATTDPoints).
		Set("total_points", row.TotalPoints).
		Set("scored_at", row.ScoredAt).
		Set("is_manual_override", row.IsManualOverride).
		Set("override_by_user_id", row.OverrideByUserID).
		Set("override_at", row.OverrideAt).
		Set("updated_at", row.UpdatedAt).
		Where(qb.Eq("id", item.ID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update pick query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update pick %s: %w", item.ID, err)
	}
	return nil
}
