package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/touchdown-picks/internal/domain/user"
	qb "github.com/riskibarqy/touchdown-picks/internal/platform/querybuilder"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (user.User, bool, error) {
	query, args, err := qb.Select("*").From("users").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return user.User{}, false, fmt.Errorf("build get user query: %w", err)
	}

	var row userTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return user.User{}, false, nil
		}
		return user.User{}, false, fmt.Errorf("get user: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *UserRepository) ListByIDs(ctx context.Context, ids []string) ([]user.User, error) {
	if len(ids) == 0 {
		return []user.User{}, nil
	}
	return r.list(ctx, qb.InStrings("id", ids))
}

func (r *UserRepository) ListAll(ctx context.Context) ([]user.User, error) {
	return r.list(ctx)
}

func (r *UserRepository) list(ctx context.Context, conditions ...qb.Condition) ([]user.User, error) {
	query, args, err := qb.Select("*").From("users").
		Where(conditions...).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list users query: %w", err)
	}

	var rows []userTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]user.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// applyTotals adds delta to a user's totals inside tx.
func applyTotals(ctx context.Context, tx *sqlx.Tx, userID string, delta user.TotalsDelta) error {
	query, args, err := qb.Update("users").
		SetExpr("total_score", "total_score + ?", delta.Points).
		SetExpr("total_wins", "total_wins + ?", delta.Wins).
		SetExpr("total_losses", "total_losses + ?", delta.Losses).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", userID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build apply totals query: %w", err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("apply totals to user %s: %w", userID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply totals to user %s: %w", userID, err)
	}
	if affected == 0 {
		return fmt.Errorf("user %s not found", userID)
	}
	return nil
}
