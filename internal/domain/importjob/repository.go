package importjob

import "context"

type Repository interface {
	Create(ctx context.Context, job Job) error
	GetByID(ctx context.Context, id string) (Job, bool, error)
	// Update persists status, stats, errors and timestamps. Moving a job into
	// RUNNING returns ErrSeasonBusy when another job for the season is running.
	Update(ctx context.Context, job Job) error
	FindRunningBySeason(ctx context.Context, season int, excludeID string) (Job, bool, error)
	ListRecent(ctx context.Context, limit int) ([]Job, error)
	ListByStatus(ctx context.Context, status Status) ([]Job, error)
}
