package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jonboulle/clockwork"
	"github.com/riskibarqy/touchdown-picks/internal/domain/importjob"
	"github.com/riskibarqy/touchdown-picks/internal/platform/logging"
)

const (
	DefaultTTL = 24 * time.Hour
	keyPrefix  = "import_job:progress:"
)

func Key(jobID string) string {
	return keyPrefix + jobID
}

// Tracker mirrors import job progress into a KV store as JSON snapshots.
type Tracker struct {
	kv     KV
	ttl    time.Duration
	logger *logging.Logger
	clock  clockwork.Clock
}

type Option func(*Tracker)

func WithTTL(ttl time.Duration) Option {
	return func(t *Tracker) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(t *Tracker) {
		if clock != nil {
			t.clock = clock
		}
	}
}

func NewTracker(kv KV, logger *logging.Logger, opts ...Option) *Tracker {
	if logger == nil {
		logger = logging.Default()
	}
	t := &Tracker{
		kv:     kv,
		ttl:    DefaultTTL,
		logger: logger,
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// UpdateProgress never fails the caller; write errors are logged.
func (t *Tracker) UpdateProgress(ctx context.Context, jobID string, progress importjob.Progress) {
	if err := t.write(ctx, jobID, progress); err != nil {
		t.logger.WarnContext(ctx, "write import progress failed", "job_id", jobID, "error", err)
	}
}

func (t *Tracker) GetProgress(ctx context.Context, jobID string) (importjob.Progress, bool, error) {
	raw, ok, err := t.kv.Get(ctx, Key(jobID))
	if err != nil || !ok {
		return importjob.Progress{}, false, err
	}
	var out importjob.Progress
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return importjob.Progress{}, false, fmt.Errorf("decode progress for job %s: %w", jobID, err)
	}
	return out, true, nil
}

func (t *Tracker) MarkComplete(ctx context.Context, jobID string, stats importjob.Stats) error {
	progress := t.current(ctx, jobID)
	now := t.clock.Now().UTC()
	progress.Status = importjob.StatusCompleted
	progress.Stats = stats
	progress.CurrentStep = "completed"
	progress.UpdatedAt = now
	progress.CompletedAt = &now
	return t.write(ctx, jobID, progress)
}

func (t *Tracker) MarkFailed(ctx context.Context, jobID string, message string) error {
	progress := t.current(ctx, jobID)
	now := t.clock.Now().UTC()
	progress.Status = importjob.StatusFailed
	progress.Errors = importjob.AppendError(progress.Errors, message)
	progress.CurrentStep = "failed"
	progress.UpdatedAt = now
	progress.CompletedAt = &now
	return t.write(ctx, jobID, progress)
}

// current returns the last snapshot, or a fresh one when none can be read.
func (t *Tracker) current(ctx context.Context, jobID string) importjob.Progress {
	progress, ok, err := t.GetProgress(ctx, jobID)
	if err != nil {
		t.logger.WarnContext(ctx, "read import progress failed", "job_id", jobID, "error", err)
	}
	if err != nil || !ok {
		progress = importjob.Progress{JobID: jobID}
	}
	if progress.Errors == nil {
		progress.Errors = []string{}
	}
	return progress
}

func (t *Tracker) write(ctx context.Context, jobID string, progress importjob.Progress) error {
	progress.JobID = jobID
	if progress.Errors == nil {
		progress.Errors = []string{}
	}
	raw, err := sonic.Marshal(progress)
	if err != nil {
		return fmt.Errorf("encode progress for job %s: %w", jobID, err)
	}
	if err := t.kv.Set(ctx, Key(jobID), raw, t.ttl); err != nil {
		return fmt.Errorf("store progress for job %s: %w", jobID, err)
	}
	return nil
}
