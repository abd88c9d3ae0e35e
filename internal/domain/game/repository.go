package game

import "context"

// Repository exposes game reads. Writes go through ingest and grading units.
type Repository interface {
	GetByID(ctx context.Context, id string) (Game, bool, error)
	GetByExternalID(ctx context.Context, externalID string) (Game, bool, error)
	ListUngradedCompleted(ctx context.Context) ([]Game, error)
	ListBySeasonWeek(ctx context.Context, season, week int) ([]Game, error)
}
