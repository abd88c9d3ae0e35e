package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/riskibarqy/touchdown-picks/internal/domain/game"
	"github.com/riskibarqy/touchdown-picks/internal/domain/ingest"
	"github.com/riskibarqy/touchdown-picks/internal/domain/player"
	"github.com/riskibarqy/touchdown-picks/internal/domain/team"
	"github.com/riskibarqy/touchdown-picks/internal/platform/id"
	qb "github.com/riskibarqy/touchdown-picks/internal/platform/querybuilder"
)

// IngestRepository writes provider data. Upserts are keyed by external_id and
// `xmax = 0` on the returned row tells an insert from an update.
type IngestRepository struct {
	db  *sqlx.DB
	ids id.Generator
}

func NewIngestRepository(db *sqlx.DB, ids id.Generator) *IngestRepository {
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	return &IngestRepository{db: db, ids: ids}
}

type upsertedRow struct {
	ID       string `db:"id"`
	Inserted bool   `db:"inserted"`
}

type upsertedGameRow struct {
	gameTableModel
	Inserted bool `db:"inserted"`
}

func (r *IngestRepository) SaveBundle(ctx context.Context, bundle ingest.GameBundle) (ingest.SaveResult, error) {
	if bundle.Game.ExternalID == "" {
		return ingest.SaveResult{}, fmt.Errorf("game external id is required")
	}
	if bundle.HomeTeam.ExternalID == "" || bundle.AwayTeam.ExternalID == "" {
		return ingest.SaveResult{}, fmt.Errorf("team external id is required for game %s", bundle.Game.ExternalID)
	}
	if bundle.HomeTeam.ExternalID == bundle.AwayTeam.ExternalID {
		return ingest.SaveResult{}, fmt.Errorf("game %s has the same home and away team", bundle.Game.ExternalID)
	}

	now := time.Now().UTC()
	var result ingest.SaveResult
	err := withTx(ctx, r.db, "save game bundle", func(tx *sqlx.Tx) error {
		teamIDs := make(map[string]string, 2)
		for _, item := range []team.Team{bundle.HomeTeam, bundle.AwayTeam} {
			saved, err := r.upsertTeam(ctx, tx, item, now)
			if err != nil {
				return err
			}
			if saved.Inserted {
				result.TeamsCreated++
			}
			teamIDs[item.ExternalID] = saved.ID
		}

		for _, item := range bundle.Players {
			if item.ExternalID == "" {
				continue
			}
			teamID, ok := teamIDs[item.TeamID]
			if !ok {
				return fmt.Errorf("player %s references unknown team %s", item.ExternalID, item.TeamID)
			}
			item.TeamID = teamID
			saved, err := r.upsertPlayer(ctx, tx, item, now)
			if err != nil {
				return err
			}
			if saved.Inserted {
				result.PlayersCreated++
			}
		}

		incoming := bundle.Game
		incoming.HomeTeamID = teamIDs[bundle.HomeTeam.ExternalID]
		incoming.AwayTeamID = teamIDs[bundle.AwayTeam.ExternalID]
		saved, err := r.upsertGame(ctx, tx, incoming, now)
		if err != nil {
			return err
		}
		result.Game = saved.toDomain()
		result.GameCreated = saved.Inserted
		result.GameUpdated = !saved.Inserted
		return nil
	})
	if err != nil {
		return ingest.SaveResult{}, err
	}
	return result, nil
}

func (r *IngestRepository) upsertTeam(ctx context.Context, tx *sqlx.Tx, item team.Team, now time.Time) (upsertedRow, error) {
	newID, err := r.ids.NewID()
	if err != nil {
		return upsertedRow{}, fmt.Errorf("generate team id: %w", err)
	}
	item.ID = newID
	item.CreatedAt = now
	item.UpdatedAt = now

	row := teamRow(item)
	query, args, err := qb.InsertInto("teams").
		Columns("id", "external_id", "name", "abbreviation", "city", "created_at", "updated_at").
		Values(row.ID, row.ExternalID, row.Name, row.Abbreviation, row.City, row.CreatedAt, row.UpdatedAt).
		Suffix(`ON CONFLICT (external_id) DO UPDATE SET
    name = EXCLUDED.name,
    abbreviation = EXCLUDED.abbreviation,
    city = EXCLUDED.city,
    updated_at = EXCLUDED.updated_at
RETURNING id, (xmax = 0) AS inserted`).
		ToSQL()
	if err != nil {
		return upsertedRow{}, fmt.Errorf("build upsert team query: %w", err)
	}

	var saved upsertedRow
	if err := tx.GetContext(ctx, &saved, query, args...); err != nil {
		return upsertedRow{}, fmt.Errorf("upsert team %s: %w", item.ExternalID, err)
	}
	return saved, nil
}

func (r *IngestRepository) upsertPlayer(ctx context.Context, tx *sqlx.Tx, item player.Player, now time.Time) (upsertedRow, error) {
	newID, err := r.ids.NewID()
	if err != nil {
		return upsertedRow{}, fmt.Errorf("generate player id: %w", err)
	}
	item.ID = newID
	item.CreatedAt = now
	item.UpdatedAt = now

	row := playerRow(item)
	query, args, err := qb.InsertInto("players").
		Columns("id", "external_id", "team_id", "name", "position", "jersey_number", "is_active", "created_at", "updated_at").
		Values(row.ID, row.ExternalID, row.TeamID, row.Name, row.Position, row.JerseyNumber, row.IsActive, row.CreatedAt, row.UpdatedAt).
		Suffix(`ON CONFLICT (external_id) DO UPDATE SET
    team_id = EXCLUDED.team_id,
    name = EXCLUDED.name,
    position = EXCLUDED.position,
    jersey_number = EXCLUDED.jersey_number,
    is_active = EXCLUDED.is_active,
    updated_at = EXCLUDED.updated_at
RETURNING id, (xmax = 0) AS inserted`).
		ToSQL()
	if err != nil {
		return upsertedRow{}, fmt.Errorf("build upsert player query: %w", err)
	}

	var saved upsertedRow
	if err := tx.GetContext(ctx, &saved, query, args...); err != nil {
		return upsertedRow{}, fmt.Errorf("upsert player %s: %w", item.ExternalID, err)
	}
	return saved, nil
}

// upsertGame never touches results; a COMPLETED or graded game keeps its status.
func (r *IngestRepository) upsertGame(ctx context.Context, tx *sqlx.Tx, item game.Game, now time.Time) (upsertedGameRow, error) {
	newID, err := r.ids.NewID()
	if err != nil {
		return upsertedGameRow{}, fmt.Errorf("generate game id: %w", err)
	}
	item.ID = newID
	item.CreatedAt = now
	item.UpdatedAt = now
	row := gameRow(item)

	query, args, err := qb.InsertInto("games").
		Columns("id", "external_id", "season", "week", "home_team_id", "away_team_id", "kickoff_at", "status", "created_at", "updated_at").
		Values(row.ID, row.ExternalID, row.Season, row.Week, row.HomeTeamID, row.AwayTeamID, row.KickoffAt, row.Status, row.CreatedAt, row.UpdatedAt).
		Suffix(`ON CONFLICT (external_id) DO UPDATE SET
    season = EXCLUDED.season,
    week = EXCLUDED.week,
    home_team_id = EXCLUDED.home_team_id,
    away_team_id = EXCLUDED.away_team_id,
    kickoff_at = EXCLUDED.kickoff_at,
    status = CASE
        WHEN games.scored_at IS NULL AND games.status <> 'COMPLETED' THEN EXCLUDED.status
        ELSE games.status
    END,
    updated_at = EXCLUDED.updated_at
RETURNING *, (xmax = 0) AS inserted`).
		ToSQL()
	if err != nil {
		return upsertedGameRow{}, fmt.Errorf("build upsert game query: %w", err)
	}

	var saved upsertedGameRow
	if err := tx.GetContext(ctx, &saved, query, args...); err != nil {
		return upsertedGameRow{}, fmt.Errorf("upsert game %s: %w", item.ExternalID, err)
	}
	return saved, nil
}

func (r *IngestRepository) ResolvePlayerIDs(ctx context.Context, externalIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(externalIDs))
	if len(externalIDs) == 0 {
		return out, nil
	}

	query, args, err := qb.Select("id", "external_id").From("players").
		Where(qb.Expr("external_id = ANY(?)", pq.StringArray(externalIDs))).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build resolve players query: %w", err)
	}

	var rows []struct {
		ID         string `db:"id"`
		ExternalID string `db:"external_id"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("resolve players: %w", err)
	}
	for _, row := range rows {
		out[row.ExternalID] = row.ID
	}
	return out, nil
}

func (r *IngestRepository) RecordFinal(ctx context.Context, gameID string, final ingest.FinalResult) (bool, error) {
	home, away := final.HomeScore, final.AwayScore
	scorers := pq.StringArray(game.NormalizeScorers(final.FirstTDScorerID, final.AllTDScorerIDs))

	query, args, err := qb.Update("games").
		Set("status", string(game.StatusCompleted)).
		Set("home_score", nullInt(&home)).
		Set("away_score", nullInt(&away)).
		Set("first_td_scorer_id", nullString(final.FirstTDScorerID)).
		Set("all_td_scorer_ids", scorers).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", gameID), qb.IsNull("scored_at")).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build record final query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("record final for game %s: %w", gameID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record final for game %s: %w", gameID, err)
	}
	if affected > 0 {
		return true, nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM games WHERE id = $1)`, gameID); err != nil {
		return false, fmt.Errorf("check game %s: %w", gameID, err)
	}
	if !exists {
		return false, fmt.Errorf("game %s not found", gameID)
	}
	return false, nil
}
