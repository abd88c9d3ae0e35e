package usecase

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/riskibarqy/touchdown-picks/internal/domain/importjob"
	"github.com/riskibarqy/touchdown-picks/internal/domain/user"
	"github.com/riskibarqy/touchdown-picks/internal/platform/id"
	"github.com/riskibarqy/touchdown-picks/internal/platform/logging"
	"github.com/riskibarqy/touchdown-picks/internal/platform/metrics"
	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// SystemActorID marks jobs created by the scheduler.
	SystemActorID = "system"

	transientImportMessage   = "Could not reach the NFL data provider. Please check your connection and try again."
	interruptedImportMessage = "import interrupted by a restart before it finished"

	defaultImportJobTimeout = 30 * time.Minute
	finalWriteTimeout       = 10 * time.Second
	defaultJobListLimit     = 20
	maxJobListLimit         = 100
)

const (
	failureTimeout     = "timeout"
	failureTransient   = "transient"
	failureValidation  = "validation"
	failureConflict    = "conflict"
	failureOther       = "other"
	failureInterrupted = "interrupted"
)

var errImportCrashed = errors.New("import crashed")

type ImportServiceConfig struct {
	JobTimeout time.Duration
}

type CreateImportJobInput struct {
	Season     int   `validate:"gte=2000,lte=2100"`
	Weeks      []int `validate:"omitempty,max=22,unique,dive,gte=1,lte=22"`
	GradeGames bool
	AdminID    string `validate:"required"`
}

// JobStatus is the durable record plus the live snapshot while RUNNING.
type JobStatus struct {
	Job      importjob.Job
	Progress *importjob.Progress
}

type seasonImportRunner interface {
	Import(ctx context.Context, req ImportRequest) (ImportReport, error)
}

type jobSubmitter interface {
	Submit(name string, fn func(ctx context.Context)) (<-chan struct{}, error)
}

// ImportService drives import jobs through PENDING, RUNNING and a terminal
// state. At most one job per season may be RUNNING.
type ImportService struct {
	jobRepo  importjob.Repository
	userRepo user.Repository
	importer seasonImportRunner
	progress ProgressTracker
	runner   jobSubmitter
	alerts   AlertNotifier
	metrics  *metrics.Metrics
	ids      id.Generator
	cfg      ImportServiceConfig
	logger   *logging.Logger
	clock    clockwork.Clock
}

func NewImportService(
	jobRepo importjob.Repository,
	userRepo user.Repository,
	importer seasonImportRunner,
	progress ProgressTracker,
	runner jobSubmitter,
	alerts AlertNotifier,
	m *metrics.Metrics,
	ids id.Generator,
	cfg ImportServiceConfig,
	logger *logging.Logger,
) *ImportService {
	if alerts == nil {
		alerts = NewNoopAlertNotifier()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultImportJobTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &ImportService{
		jobRepo:  jobRepo,
		userRepo: userRepo,
		importer: importer,
		progress: progress,
		runner:   runner,
		alerts:   alerts,
		metrics:  m,
		ids:      ids,
		cfg:      cfg,
		logger:   logger,
		clock:    clockwork.NewRealClock(),
	}
}

// CreateJob persists a PENDING job for an admin and hands it to the runner.
// It returns without waiting for the import.
func (s *ImportService) CreateJob(ctx context.Context, input CreateImportJobInput) (importjob.Job, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ImportService.CreateJob", attribute.Int("season", input.Season))
	defer span.End()

	if err := validateInput(ctx, input); err != nil {
		return importjob.Job{}, err
	}
	if _, err := requireAdmin(ctx, s.userRepo, input.AdminID); err != nil {
		return importjob.Job{}, err
	}
	return s.enqueue(ctx, input)
}

// CreateScheduledJob is CreateJob for the scheduler, which has no admin user.
func (s *ImportService) CreateScheduledJob(ctx context.Context, season int, weeks []int, gradeGames bool) (importjob.Job, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ImportService.CreateScheduledJob", attribute.Int("season", season))
	defer span.End()

	input := CreateImportJobInput{
		Season:     season,
		Weeks:      weeks,
		GradeGames: gradeGames,
		AdminID:    SystemActorID,
	}
	if err := validateInput(ctx, input); err != nil {
		return importjob.Job{}, err
	}
	return s.enqueue(ctx, input)
}

// RunningJob returns the job currently RUNNING for season, if any.
func (s *ImportService) RunningJob(ctx context.Context, season int) (importjob.Job, bool, error) {
	job, found, err := s.jobRepo.FindRunningBySeason(ctx, season, "")
	if err != nil {
		return importjob.Job{}, false, fmt.Errorf("find running import: %w", err)
	}
	return job, found, nil
}

func (s *ImportService) enqueue(ctx context.Context, input CreateImportJobInput) (importjob.Job, error) {
	jobID, err := s.ids.NewID()
	if err != nil {
		return importjob.Job{}, fmt.Errorf("generate job id: %w", err)
	}

	now := s.clock.Now().UTC()
	job := importjob.Job{
		ID:              jobID,
		Season:          input.Season,
		Weeks:           append([]int(nil), input.Weeks...),
		GradeGames:      input.GradeGames,
		Status:          importjob.StatusPending,
		Stats:           importjob.Stats{},
		Errors:          []string{},
		CreatedByUserID: input.AdminID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return importjob.Job{}, fmt.Errorf("create import job: %w", err)
	}
	s.publish(ctx, job, "queued")

	if _, err := s.runner.Submit("import:"+job.ID, func(runCtx context.Context) {
		if err := s.RunJob(runCtx, job.ID); err != nil {
			s.logger.WarnContext(runCtx, "import job ended with error", "job_id", job.ID, "error", err)
		}
	}); err != nil {
		msg := fmt.Sprintf("could not start import: %v", err)
		failed := s.markFailed(ctx, job, failureOther, msg)
		s.metrics.ImportRejected(failureOther)
		return failed, fmt.Errorf("dispatch import job %s: %w", job.ID, err)
	}

	s.logger.InfoContext(ctx, "import job created",
		"job_id", job.ID,
		"season", job.Season,
		"weeks", job.Weeks,
		"grade_games", job.GradeGames,
		"created_by", job.CreatedByUserID,
	)
	return job, nil
}

// RunJob executes one PENDING job to completion. The returned error mirrors
// the failure recorded on the job.
func (s *ImportService) RunJob(ctx context.Context, jobID string) error {
	ctx, span := startRootSpan(ctx, "usecase.ImportService.RunJob", attribute.String("job.id", jobID))
	defer span.End()

	job, found, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("get import job: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: import job=%s", ErrNotFound, jobID)
	}
	if job.Status != importjob.StatusPending {
		return fmt.Errorf("%w: import job %s is %s", ErrInvalidInput, jobID, job.Status)
	}

	other, busy, err := s.jobRepo.FindRunningBySeason(ctx, job.Season, job.ID)
	if err != nil {
		return fmt.Errorf("check running imports: %w", err)
	}
	if busy {
		return s.rejectConflict(ctx, job, other.ID)
	}

	started := s.clock.Now().UTC()
	job.Status = importjob.StatusRunning
	job.StartedAt = &started
	if err := s.jobRepo.Update(ctx, job); err != nil {
		if errors.Is(err, importjob.ErrSeasonBusy) {
			otherID := "unknown"
			if other, found, lookupErr := s.jobRepo.FindRunningBySeason(ctx, job.Season, job.ID); lookupErr == nil && found {
				otherID = other.ID
			}
			job.Status = importjob.StatusPending
			job.StartedAt = nil
			return s.rejectConflict(ctx, job, otherID)
		}
		recordSpanError(span, err)
		return fmt.Errorf("mark import job running: %w", err)
	}

	s.metrics.ImportStarted()
	s.publish(ctx, job, "starting")
	s.logger.InfoContext(ctx, "import job started", "job_id", job.ID, "season", job.Season)

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	report, importErr := s.runImport(runCtx, ImportRequest{
		JobID:      job.ID,
		Season:     job.Season,
		Weeks:      job.Weeks,
		GradeGames: job.GradeGames,
	})
	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded)
	cancel()

	job.Stats = report.Stats
	for _, msg := range report.Errors {
		job.Errors = importjob.AppendError(job.Errors, msg)
	}
	elapsed := s.clock.Since(started)

	if importErr != nil {
		kind, msg := classifyImportFailure(importErr, timedOut)
		recordSpanError(span, importErr)
		s.logger.ErrorContext(ctx, "import job failed",
			"job_id", job.ID,
			"season", job.Season,
			"failure_kind", kind,
			"error", importErr,
		)
		s.markFailed(ctx, job, kind, msg)
		s.metrics.ImportFinished(string(importjob.StatusFailed), kind, elapsed)
		s.alerts.Notify(ctx, Alert{
			Subject:  fmt.Sprintf("Import job for season %d failed", job.Season),
			Message:  msg,
			Severity: AlertSeverityWarning,
			Context: map[string]any{
				"job_id":       job.ID,
				"season":       job.Season,
				"failure_kind": kind,
				"error":        importErr.Error(),
			},
		})
		if kind == failureTimeout {
			return fmt.Errorf("%w: %v", ErrJobTimeout, importErr)
		}
		return fmt.Errorf("import job %s: %w", job.ID, importErr)
	}

	s.markCompleted(ctx, job)
	s.metrics.ImportFinished(string(importjob.StatusCompleted), "", elapsed)
	s.logger.InfoContext(ctx, "import job completed",
		"job_id", job.ID,
		"season", job.Season,
		"games_processed", job.Stats.GamesProcessed,
		"games_graded", job.Stats.GamesGraded,
		"picks_graded", job.Stats.PicksGraded,
		"errors", len(job.Errors),
		"elapsed", elapsed.String(),
	)
	return nil
}

// runImport turns a panic in the importer into an error so the job still
// reaches a terminal state.
func (s *ImportService) runImport(ctx context.Context, req ImportRequest) (report ImportReport, err error) {
	var pc panics.Catcher
	pc.Try(func() {
		report, err = s.importer.Import(ctx, req)
	})
	if recovered := pc.Recovered(); recovered != nil {
		s.logger.ErrorContext(ctx, "import panicked",
			"job_id", req.JobID,
			"panic", fmt.Sprint(recovered.Value),
			"stack", string(recovered.Stack),
		)
		return ImportReport{}, fmt.Errorf("%w: %v", errImportCrashed, recovered.Value)
	}
	return report, err
}

// FailInterruptedJobs fails PENDING and RUNNING jobs left behind by a
// previous process. Call it before the runner accepts new jobs.
func (s *ImportService) FailInterruptedJobs(ctx context.Context) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ImportService.FailInterruptedJobs")
	defer span.End()

	failed := 0
	for _, status := range []importjob.Status{importjob.StatusRunning, importjob.StatusPending} {
		jobs, err := s.jobRepo.ListByStatus(ctx, status)
		if err != nil {
			recordSpanError(span, err)
			return failed, fmt.Errorf("list %s import jobs: %w", status, err)
		}
		for _, job := range jobs {
			s.logger.WarnContext(ctx, "failing interrupted import job", "job_id", job.ID, "season", job.Season, "status", job.Status)
			s.markFailed(ctx, job, failureInterrupted, interruptedImportMessage)
			s.metrics.ImportRejected(failureInterrupted)
			failed++
		}
	}
	return failed, nil
}

func (s *ImportService) GetJobStatus(ctx context.Context, jobID string) (JobStatus, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ImportService.GetJobStatus", attribute.String("job.id", jobID))
	defer span.End()

	job, found, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return JobStatus{}, fmt.Errorf("get import job: %w", err)
	}
	if !found {
		return JobStatus{}, fmt.Errorf("%w: import job=%s", ErrNotFound, jobID)
	}

	out := JobStatus{Job: job}
	if job.Status != importjob.StatusRunning || s.progress == nil {
		return out, nil
	}
	snapshot, ok, err := s.progress.GetProgress(ctx, jobID)
	if err != nil {
		s.logger.WarnContext(ctx, "read import progress failed", "job_id", jobID, "error", err)
		return out, nil
	}
	if ok {
		out.Progress = &snapshot
	}
	return out, nil
}

func (s *ImportService) ListJobs(ctx context.Context, limit int) ([]importjob.Job, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ImportService.ListJobs")
	defer span.End()

	if limit <= 0 {
		limit = defaultJobListLimit
	}
	if limit > maxJobListLimit {
		limit = maxJobListLimit
	}
	jobs, err := s.jobRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list import jobs: %w", err)
	}
	return jobs, nil
}

func (s *ImportService) rejectConflict(ctx context.Context, job importjob.Job, runningJobID string) error {
	msg := fmt.Sprintf("another import for season %d is already running (job %s)", job.Season, runningJobID)
	s.logger.WarnContext(ctx, "import job rejected", "job_id", job.ID, "season", job.Season, "running_job_id", runningJobID)
	s.markFailed(ctx, job, failureConflict, msg)
	s.metrics.ImportRejected(failureConflict)
	return fmt.Errorf("%w: %s", ErrImportConflict, msg)
}

// markFailed writes the terminal state to the job record and the progress
// mirror independently; a failure of either is only logged.
func (s *ImportService) markFailed(ctx context.Context, job importjob.Job, kind, msg string) importjob.Job {
	ctx, cancel := finalWriteContext(ctx)
	defer cancel()

	now := s.clock.Now().UTC()
	job.Status = importjob.StatusFailed
	job.Errors = importjob.AppendError(job.Errors, msg)
	job.CompletedAt = &now

	if err := s.jobRepo.Update(ctx, job); err != nil {
		s.logger.ErrorContext(ctx, "persist failed import job", "job_id", job.ID, "failure_kind", kind, "error", err)
	}
	if s.progress != nil {
		if err := s.progress.MarkFailed(ctx, job.ID, msg); err != nil {
			s.logger.WarnContext(ctx, "mirror failed import job", "job_id", job.ID, "error", err)
		}
	}
	return job
}

func (s *ImportService) markCompleted(ctx context.Context, job importjob.Job) {
	ctx, cancel := finalWriteContext(ctx)
	defer cancel()

	now := s.clock.Now().UTC()
	job.Status = importjob.StatusCompleted
	job.CompletedAt = &now

	if err := s.jobRepo.Update(ctx, job); err != nil {
		s.logger.ErrorContext(ctx, "persist completed import job", "job_id", job.ID, "error", err)
	}
	if s.progress != nil {
		if err := s.progress.MarkComplete(ctx, job.ID, job.Stats); err != nil {
			s.logger.WarnContext(ctx, "mirror completed import job", "job_id", job.ID, "error", err)
		}
	}
}

func (s *ImportService) publish(ctx context.Context, job importjob.Job, step string) {
	if s.progress == nil {
		return
	}
	s.progress.UpdateProgress(ctx, job.ID, importjob.Progress{
		JobID:       job.ID,
		Status:      job.Status,
		Stats:       job.Stats,
		CurrentStep: step,
		Errors:      append([]string{}, job.Errors...),
		UpdatedAt:   s.clock.Now().UTC(),
	})
}

// finalWriteContext keeps terminal writes alive after the job context ended.
func finalWriteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), finalWriteTimeout)
}

// classifyImportFailure returns the failure kind and the message stored on
// the job.
func classifyImportFailure(err error, timedOut bool) (string, string) {
	switch {
	case timedOut:
		return failureTimeout, transientImportMessage
	case errors.Is(err, ErrDependencyUnavailable) || isNetworkError(err):
		return failureTransient, transientImportMessage
	case errors.Is(err, ErrInvalidInput):
		return failureValidation, err.Error()
	default:
		return failureOther, err.Error()
	}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}
