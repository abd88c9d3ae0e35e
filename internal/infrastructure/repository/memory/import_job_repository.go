package memory

import (
	"context"
	"fmt"

	"github.com/riskibarqy/touchdown-picks/internal/domain/importjob"
)

type ImportJobRepository struct {
	store *Store
}

func (r *ImportJobRepository) Create(_ context.Context, job importjob.Job) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.jobs[job.ID]; ok {
		return fmt.Errorf("import job %s already exists", job.ID)
	}
	if job.Status == importjob.StatusRunning {
		if err := r.store.checkSeasonFreeLocked(job); err != nil {
			return err
		}
	}
	r.store.jobs[job.ID] = cloneJob(job)
	r.store.jobOrder = append(r.store.jobOrder, job.ID)
	return nil
}

func (r *ImportJobRepository) GetByID(_ context.Context, jobID string) (importjob.Job, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	job, ok := r.store.jobs[jobID]
	if !ok {
		return importjob.Job{}, false, nil
	}
	return cloneJob(job), true, nil
}

func (r *ImportJobRepository) Update(_ context.Context, job importjob.Job) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.jobs[job.ID]; !ok {
		return fmt.Errorf("import job %s not found", job.ID)
	}
	if job.Status == importjob.StatusRunning {
		if err := r.store.checkSeasonFreeLocked(job); err != nil {
			return err
		}
	}
	job.UpdatedAt = r.store.clock.Now().UTC()
	r.store.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *ImportJobRepository) FindRunningBySeason(_ context.Context, season int, excludeID string) (importjob.Job, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, jobID := range r.store.jobOrder {
		job := r.store.jobs[jobID]
		if job.ID != excludeID && job.Season == season && job.Status == importjob.StatusRunning {
			return cloneJob(job), true, nil
		}
	}
	return importjob.Job{}, false, nil
}

// ListRecent returns jobs newest first.
func (r *ImportJobRepository) ListRecent(_ context.Context, limit int) ([]importjob.Job, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]importjob.Job, 0)
	for i := len(r.store.jobOrder) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, cloneJob(r.store.jobs[r.store.jobOrder[i]]))
	}
	return out, nil
}

// ListByStatus returns jobs in the given status, oldest first.
func (r *ImportJobRepository) ListByStatus(_ context.Context, status importjob.Status) ([]importjob.Job, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]importjob.Job, 0)
	for _, jobID := range r.store.jobOrder {
		if job := r.store.jobs[jobID]; job.Status == status {
			out = append(out, cloneJob(job))
		}
	}
	return out, nil
}

// checkSeasonFreeLocked mirrors the partial unique index on running jobs.
func (s *Store) checkSeasonFreeLocked(job importjob.Job) error {
	for _, other := range s.jobs {
		if other.ID != job.ID && other.Season == job.Season && other.Status == importjob.StatusRunning {
			return importjob.ErrSeasonBusy
		}
	}
	return nil
}
