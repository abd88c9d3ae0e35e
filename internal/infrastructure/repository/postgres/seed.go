package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/touchdown-picks/internal/infrastructure/repository/memory"
)

// BootstrapSeed inserts the dev users into an empty database. Existing rows
// are left untouched.
func BootstrapSeed(ctx context.Context, db *sqlx.DB) error {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(1) FROM users`); err != nil {
		return fmt.Errorf("count users for bootstrap seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	return withTx(ctx, db, "bootstrap seed", func(tx *sqlx.Tx) error {
		for _, u := range memory.SeedDev().Users {
			sqlQuery, args, err := sqlx.Named(`
INSERT INTO users (id, username, is_admin)
VALUES (:id, :username, :is_admin)
ON CONFLICT (id) DO NOTHING`, map[string]any{
				"id":       u.ID,
				"username": u.Username,
				"is_admin": u.IsAdmin,
			})
			if err != nil {
				return fmt.Errorf("bind seed user %s query: %w", u.ID, err)
			}
			sqlQuery = tx.Rebind(sqlQuery)
			if _, err := tx.ExecContext(ctx, sqlQuery, args...); err != nil {
				return fmt.Errorf("seed user %s: %w", u.ID, err)
			}
		}
		return nil
	})
}
