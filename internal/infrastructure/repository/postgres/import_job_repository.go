package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/touchdown-picks/internal/domain/importjob"
	qb "github.com/riskibarqy/touchdown-picks/internal/platform/querybuilder"
)

type ImportJobRepository struct {
	db *sqlx.DB
}

func NewImportJobRepository(db *sqlx.DB) *ImportJobRepository {
	return &ImportJobRepository{db: db}
}

func (r *ImportJobRepository) Create(ctx context.Context, job importjob.Job) error {
	row, err := importJobRow(job)
	if err != nil {
		return err
	}
	query, args, err := qb.InsertModel("import_jobs", row, "")
	if err != nil {
		return fmt.Errorf("build create import job query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err, constraintOneRunningPerSeason) {
			return fmt.Errorf("%w: season=%d", importjob.ErrSeasonBusy, job.Season)
		}
		return fmt.Errorf("create import job %s: %w", job.ID, err)
	}
	return nil
}

func (r *ImportJobRepository) GetByID(ctx context.Context, jobID string) (importjob.Job, bool, error) {
	query, args, err := qb.Select("*").From("import_jobs").
		Where(qb.Eq("id", jobID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return importjob.Job{}, false, fmt.Errorf("build get import job query: %w", err)
	}

	var row importJobTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return importjob.Job{}, false, nil
		}
		return importjob.Job{}, false, fmt.Errorf("get import job %s: %w", jobID, err)
	}
	job, err := row.toDomain()
	if err != nil {
		return importjob.Job{}, false, err
	}
	return job, true, nil
}

func (r *ImportJobRepository) Update(ctx context.Context, job importjob.Job) error {
	row, err := importJobRow(job)
	if err != nil {
		return err
	}
	query, args, err := qb.Update("import_jobs").
		Set("status", row.Status).
		Set("stats", row.Stats).
		Set("errors", row.Errors).
		Set("started_at", row.StartedAt).
		Set("completed_at", row.CompletedAt).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", row.ID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update import job query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err, constraintOneRunningPerSeason) {
			return fmt.Errorf("%w: season=%d", importjob.ErrSeasonBusy, job.Season)
		}
		return fmt.Errorf("update import job %s: %w", job.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update import job %s: %w", job.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("import job %s not found", job.ID)
	}
	return nil
}

func (r *ImportJobRepository) FindRunningBySeason(ctx context.Context, season int, excludeID string) (importjob.Job, bool, error) {
	conditions := []qb.Condition{
		qb.Eq("season", season),
		qb.Eq("status", string(importjob.StatusRunning)),
	}
	if excludeID != "" {
		conditions = append(conditions, qb.NotEq("id", excludeID))
	}
	query, args, err := qb.Select("*").From("import_jobs").
		Where(conditions...).
		OrderBy("created_at DESC").
		Limit(1).
		ToSQL()
	if err != nil {
		return importjob.Job{}, false, fmt.Errorf("build find running import job query: %w", err)
	}

	var row importJobTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return importjob.Job{}, false, nil
		}
		return importjob.Job{}, false, fmt.Errorf("find running import job for season %d: %w", season, err)
	}
	job, err := row.toDomain()
	if err != nil {
		return importjob.Job{}, false, err
	}
	return job, true, nil
}

// ListRecent returns jobs newest first.
func (r *ImportJobRepository) ListRecent(ctx context.Context, limit int) ([]importjob.Job, error) {
	builder := qb.Select("*").From("import_jobs").OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		builder = builder.Limit(limit)
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list import jobs query: %w", err)
	}

	var rows []importJobTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list import jobs: %w", err)
	}
	out := make([]importjob.Job, 0, len(rows))
	for _, row := range rows {
		job, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, nil
}

// ListByStatus returns jobs in the given status, oldest first.
func (r *ImportJobRepository) ListByStatus(ctx context.Context, status importjob.Status) ([]importjob.Job, error) {
	query, args, err := qb.Select("*").From("import_jobs").
		Where(qb.Eq("status", string(status))).
		OrderBy("created_at ASC", "id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list import jobs by status query: %w", err)
	}

	var rows []importJobTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list %s import jobs: %w", status, err)
	}
	out := make([]importjob.Job, 0, len(rows))
	for _, row := range rows {
		job, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, nil
}
