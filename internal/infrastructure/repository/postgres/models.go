package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/lib/pq"
	"github.com/riskibarqy/touchdown-picks/internal/domain/game"
	"github.com/riskibarqy/touchdown-picks/internal/domain/importjob"
	"github.com/riskibarqy/touchdown-picks/internal/domain/pick"
	"github.com/riskibarqy/touchdown-picks/internal/domain/player"
	"github.com/riskibarqy/touchdown-picks/internal/domain/team"
	"github.com/riskibarqy/touchdown-picks/internal/domain/user"
)

type userTableModel struct {
	ID          string    `db:"id"`
	Username    string    `db:"username"`
	IsAdmin     bool      `db:"is_admin"`
	TotalScore  int       `db:"total_score"`
	TotalWins   int       `db:"total_wins"`
	TotalLosses int       `db:"total_losses"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row userTableModel) toDomain() user.User {
	return user.User{
		ID:          row.ID,
		Username:    row.Username,
		IsAdmin:     row.IsAdmin,
		TotalScore:  row.TotalScore,
		TotalWins:   row.TotalWins,
		TotalLosses: row.TotalLosses,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

type teamTableModel struct {
	ID           string    `db:"id"`
	ExternalID   string    `db:"external_id"`
	Name         string    `db:"name"`
	Abbreviation string    `db:"abbreviation"`
	City         string    `db:"city"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func teamRow(item team.Team) teamTableModel {
	return teamTableModel{
		ID:           item.ID,
		ExternalID:   item.ExternalID,
		Name:         item.Name,
		Abbreviation: item.Abbreviation,
		City:         item.City,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
}

type playerTableModel struct {
	ID           string    `db:"id"`
	ExternalID   string    `db:"external_id"`
	TeamID       string    `db:"team_id"`
	Name         string    `db:"name"`
	Position     string    `db:"position"`
	JerseyNumber int       `db:"jersey_number"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (row playerTableModel) toDomain() player.Player {
	return player.Player{
		ID:           row.ID,
		ExternalID:   row.ExternalID,
		TeamID:       row.TeamID,
		Name:         row.Name,
		Position:     row.Position,
		JerseyNumber: row.JerseyNumber,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

func playerRow(item player.Player) playerTableModel {
	return playerTableModel{
		ID:           item.ID,
		ExternalID:   item.ExternalID,
		TeamID:       item.TeamID,
		Name:         item.Name,
		Position:     item.Position,
		JerseyNumber: item.JerseyNumber,
		IsActive:     item.IsActive,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
}

var gameColumns = []string{
	"id", "external_id", "season", "week", "home_team_id", "away_team_id", "kickoff_at", "status",
	"home_score", "away_score", "first_td_scorer_id", "all_td_scorer_ids", "scored_at",
	"is_manually_scored", "created_at", "updated_at",
}

type gameTableModel struct {
	ID               string         `db:"id"`
	ExternalID       string         `db:"external_id"`
	Season           int            `db:"season"`
	Week             int            `db:"week"`
	HomeTeamID       string         `db:"home_team_id"`
	AwayTeamID       string         `db:"away_team_id"`
	KickoffAt        time.Time      `db:"kickoff_at"`
	Status           string         `db:"status"`
	HomeScore        sql.NullInt64  `db:"home_score"`
	AwayScore        sql.NullInt64  `db:"away_score"`
	FirstTDScorerID  sql.NullString `db:"first_td_scorer_id"`
	AllTDScorerIDs   pq.StringArray `db:"all_td_scorer_ids"`
	ScoredAt         sql.NullTime   `db:"scored_at"`
	IsManuallyScored bool           `db:"is_manually_scored"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (row gameTableModel) toDomain() game.Game {
	return game.Game{
		ID:               row.ID,
		ExternalID:       row.ExternalID,
		Season:           row.Season,
		Week:             row.Week,
		HomeTeamID:       row.HomeTeamID,
		AwayTeamID:       row.AwayTeamID,
		KickoffAt:        row.KickoffAt.UTC(),
		Status:           game.Status(row.Status),
		HomeScore:        intPtr(row.HomeScore),
		AwayScore:        intPtr(row.AwayScore),
		FirstTDScorerID:  row.FirstTDScorerID.String,
		AllTDScorerIDs:   stringSlice(row.AllTDScorerIDs),
		ScoredAt:         timePtr(row.ScoredAt),
		IsManuallyScored: row.IsManuallyScored,
		CreatedAt:        row.CreatedAt.UTC(),
		UpdatedAt:        row.UpdatedAt.UTC(),
	}
}

func gameRow(item game.Game) gameTableModel {
	scorers := pq.StringArray(item.AllTDScorerIDs)
	if scorers == nil {
		scorers = pq.StringArray{}
	}
	return gameTableModel{
		ID:               item.ID,
		ExternalID:       item.ExternalID,
		Season:           item.Season,
		Week:             item.Week,
		HomeTeamID:       item.HomeTeamID,
		AwayTeamID:       item.AwayTeamID,
		KickoffAt:        item.KickoffAt.UTC(),
		Status:           string(item.Status),
		HomeScore:        nullInt(item.HomeScore),
		AwayScore:        nullInt(item.AwayScore),
		FirstTDScorerID:  nullString(item.FirstTDScorerID),
		AllTDScorerIDs:   scorers,
		ScoredAt:         nullTime(item.ScoredAt),
		IsManuallyScored: item.IsManuallyScored,
		CreatedAt:        item.CreatedAt.UTC(),
		UpdatedAt:        item.UpdatedAt.UTC(),
	}
}

var pickColumns = []string{
	"p.id", "p.user_id", "p.game_id", "p.player_id", "p.status", "p.ftd_points", "p.attd_points",
	"p.total_points", "p.scored_at", "p.is_manual_override", "p.override_by_user_id",
	"p.override_at", "p.created_at", "p.updated_at",
}

type pickTableModel struct {
	ID               string         `db:"id"`
	UserID           string         `db:"user_id"`
	GameID           string         `db:"game_id"`
	PlayerID         string         `db:"player_id"`
	Status           string         `db:"status"`
	FTDPoints        int            `db:"ftd_points"`
	ATTDPoints       int            `db:"attd_points"`
	TotalPoints      int            `db:"total_points"`
	ScoredAt         sql.NullTime   `db:"scored_at"`
	IsManualOverride bool           `db:"is_manual_override"`
	OverrideByUserID sql.NullString `db:"override_by_user_id"`
	OverrideAt       sql.NullTime   `db:"override_at"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (row pickTableModel) toDomain() pick.Pick {
	return pick.Pick{
		ID:               row.ID,
		UserID:           row.UserID,
		GameID:           row.GameID,
		PlayerID:         row.PlayerID,
		Status:           pick.Status(row.Status),
		FTDPoints:        row.FTDPoints,
		ATTDPoints:       row.ATTDPoints,
		TotalPoints:      row.TotalPoints,
		ScoredAt:         timePtr(row.ScoredAt),
		IsManualOverride: row.IsManualOverride,
		OverrideByUserID: row.OverrideByUserID.String,
		OverrideAt:       timePtr(row.OverrideAt),
		CreatedAt:        row.CreatedAt.UTC(),
		UpdatedAt:        row.UpdatedAt.UTC(),
	}
}

func pickRow(item pick.Pick) pickTableModel {
	return pickTableModel{
		ID:               item.ID,
		UserID:           item.UserID,
		GameID:           item.GameID,
		PlayerID:         item.PlayerID,
		Status:           string(item.Status),
		FTDPoints:        item.FTDPoints,
		ATTDPoints:       item.ATTDPoints,
		TotalPoints:      item.TotalPoints,
		ScoredAt:         nullTime(item.ScoredAt),
		IsManualOverride: item.IsManualOverride,
		OverrideByUserID: nullString(item.OverrideByUserID),
		OverrideAt:       nullTime(item.OverrideAt),
		CreatedAt:        item.CreatedAt.UTC(),
		UpdatedAt:        item.UpdatedAt.UTC(),
	}
}

type scoredPickTableModel struct {
	pickTableModel
	Season int `db:"season"`
	Week   int `db:"week"`
}

func (row scoredPickTableModel) toDomain() pick.Scored {
	return pick.Scored{Pick: row.pickTableModel.toDomain(), Season: row.Season, Week: row.Week}
}

type importJobTableModel struct {
	ID              string         `db:"id"`
	Season          int            `db:"season"`
	Weeks           pq.Int64Array  `db:"weeks"`
	GradeGames      bool           `db:"grade_games"`
	Status          string         `db:"status"`
	Stats           string         `db:"stats"`
	Errors          pq.StringArray `db:"errors"`
	CreatedByUserID string         `db:"created_by_user_id"`
	CreatedAt       time.Time      `db:"created_at"`
	StartedAt       sql.NullTime   `db:"started_at"`
	CompletedAt     sql.NullTime   `db:"completed_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (row importJobTableModel) toDomain() (importjob.Job, error) {
	var stats importjob.Stats
	if row.Stats != "" {
		if err := sonic.UnmarshalString(row.Stats, &stats); err != nil {
			return importjob.Job{}, fmt.Errorf("decode stats for import job %s: %w", row.ID, err)
		}
	}
	weeks := make([]int, 0, len(row.Weeks))
	for _, week := range row.Weeks {
		weeks = append(weeks, int(week))
	}
	return importjob.Job{
		ID:              row.ID,
		Season:          row.Season,
		Weeks:           weeks,
		GradeGames:      row.GradeGames,
		Status:          importjob.Status(row.Status),
		Stats:           stats,
		Errors:          stringSlice(row.Errors),
		CreatedByUserID: row.CreatedByUserID,
		CreatedAt:       row.CreatedAt.UTC(),
		StartedAt:       timePtr(row.StartedAt),
		CompletedAt:     timePtr(row.CompletedAt),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}, nil
}

func importJobRow(job importjob.Job) (importJobTableModel, error) {
	stats, err := sonic.MarshalString(job.Stats)
	if err != nil {
		return importJobTableModel{}, fmt.Errorf("encode stats for import job %s: %w", job.ID, err)
	}
	weeks := make(pq.Int64Array, 0, len(job.Weeks))
	for _, week := range job.Weeks {
		weeks = append(weeks, int64(week))
	}
	errs := pq.StringArray(job.Errors)
	if errs == nil {
		errs = pq.StringArray{}
	}
	return importJobTableModel{
		ID:              job.ID,
		Season:          job.Season,
		Weeks:           weeks,
		GradeGames:      job.GradeGames,
		Status:          string(job.Status),
		Stats:           stats,
		Errors:          errs,
		CreatedByUserID: job.CreatedByUserID,
		CreatedAt:       job.CreatedAt.UTC(),
		StartedAt:       nullTime(job.StartedAt),
		CompletedAt:     nullTime(job.CompletedAt),
		UpdatedAt:       job.UpdatedAt.UTC(),
	}, nil
}
