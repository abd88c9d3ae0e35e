package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/riskibarqy/touchdown-picks/internal/domain/importjob"
	"github.com/riskibarqy/touchdown-picks/internal/domain/user"
	"github.com/riskibarqy/touchdown-picks/internal/infrastructure/repository/memory"
	importjobmock "github.com/riskibarqy/touchdown-picks/internal/mocks/domain/importjob"
	"github.com/riskibarqy/touchdown-picks/internal/platform/id"
	"github.com/riskibarqy/touchdown-picks/internal/platform/logging"
	"github.com/riskibarqy/touchdown-picks/internal/platform/metrics"
	"github.com/stretchr/testify/mock"
)

type importFixture struct {
	service  *ImportService
	store    *memory.Store
	progress *fakeProgress
	alerts   *fakeAlerts
}

func newImportFixture(t *testing.T, importer seasonImportRunner, cfg ImportServiceConfig) importFixture {
	t.Helper()

	store := memory.NewStore(memory.Seed{
		Users: []user.User{
			{ID: "admin", Username: "admin", IsAdmin: true},
			{ID: "u1", Username: "alice"},
		},
	})
	progress := newFakeProgress()
	alerts := &fakeAlerts{}
	service := NewImportService(
		store.ImportJobs(),
		store.Users(),
		importer,
		progress,
		inlineRunner{},
		alerts,
		metrics.New(prometheus.NewRegistry()),
		&id.SequenceGenerator{Prefix: "job"},
		cfg,
		logging.NewNop(),
	)
	return importFixture{service: service, store: store, progress: progress, alerts: alerts}
}

func okImporter(stats importjob.Stats, errs ...string) importerFunc {
	return func(context.Context, ImportRequest) (ImportReport, error) {
		return ImportReport{Stats: stats, Errors: errs}, nil
	}
}

func TestImportService_CreateJobRunsToCompletion(t *testing.T) {
	t.Parallel()

	fx := newImportFixture(t, okImporter(importjob.Stats{GamesProcessed: 16, GamesGraded: 2}, "game x: grading failed"), ImportServiceConfig{})
	ctx := context.Background()

	created, err := fx.service.CreateJob(ctx, CreateImportJobInput{Season: 2025, Weeks: []int{1, 2}, GradeGames: true, AdminID: "admin"})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if created.Status != importjob.StatusPending {
		t.Fatalf("create must return the queued job, got status=%s", created.Status)
	}

	status, err := fx.service.GetJobStatus(ctx, created.ID)
	if err != nil {
		t.Fatalf("get job status: %v", err)
	}
	job := status.Job
	if job.Status != importjob.StatusCompleted || job.StartedAt == nil || job.CompletedAt == nil {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.Stats.GamesProcessed != 16 || len(job.Errors) != 1 {
		t.Fatalf("unexpected stats or errors: %+v %v", job.Stats, job.Errors)
	}
	if status.Progress != nil {
		t.Fatalf("progress is only attached to running jobs")
	}
	if stats, ok := fx.progress.completed[created.ID]; !ok || stats.GamesGraded != 2 {
		t.Fatalf("progress not marked complete: ok=%v stats=%+v", ok, stats)
	}
}

func TestImportService_SecondJobForRunningSeasonFails(t *testing.T) {
	t.Parallel()

	fx := newImportFixture(t, okImporter(importjob.Stats{}), ImportServiceConfig{})
	ctx := context.Background()

	running := importjob.Job{ID: "job-running", Season: 2025, Status: importjob.StatusRunning}
	if err := fx.store.ImportJobs().Create(ctx, running); err != nil {
		t.Fatalf("seed running job: %v", err)
	}

	created, err := fx.service.CreateJob(ctx, CreateImportJobInput{Season: 2025, AdminID: "admin"})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	job, _, _ := fx.store.ImportJobs().GetByID(ctx, created.ID)
	if job.Status != importjob.StatusFailed {
		t.Fatalf("unexpected status: got=%s want=%s", job.Status, importjob.StatusFailed)
	}
	want := "another import for season 2025 is already running (job job-running)"
	if len(job.Errors) != 1 || job.Errors[0] != want {
		t.Fatalf("unexpected errors: %v", job.Errors)
	}
	if msg, ok := fx.progress.failure(created.ID); !ok || msg != want {
		t.Fatalf("unexpected progress failure: ok=%v msg=%q", ok, msg)
	}

	err = fx.service.RunJob(ctx, created.ID)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("a failed job must not run again, got %v", err)
	}
}

func TestImportService_RunJobMapsSeasonBusyFromStore(t *testing.T) {
	t.Parallel()

	repo := importjobmock.NewRepository(t)
	progress := newFakeProgress()
	service := NewImportService(repo, nil, okImporter(importjob.Stats{}), progress, inlineRunner{}, nil, nil, nil, ImportServiceConfig{}, logging.NewNop())
	ctx := context.Background()
	pending := importjob.Job{ID: "job-2", Season: 2025, Status: importjob.StatusPending}

	repo.On("GetByID", mock.Anything, "job-2").Return(pending, true, nil).Once()
	repo.On("FindRunningBySeason", mock.Anything, 2025, "job-2").Return(importjob.Job{}, false, nil).Once()
	repo.On("Update", mock.Anything, mock.MatchedBy(func(job importjob.Job) bool {
		return job.Status == importjob.StatusRunning
	})).Return(importjob.ErrSeasonBusy).Once()
	repo.On("FindRunningBySeason", mock.Anything, 2025, "job-2").Return(importjob.Job{ID: "job-1"}, true, nil).Once()
	repo.On("Update", mock.Anything, mock.MatchedBy(func(job importjob.Job) bool {
		return job.Status == importjob.StatusFailed && job.StartedAt == nil && len(job.Errors) == 1 &&
			strings.Contains(job.Errors[0], "(job job-1)")
	})).Return(nil).Once()

	err := service.RunJob(ctx, "job-2")
	if !errors.Is(err, ErrImportConflict) {
		t.Fatalf("expected ErrImportConflict, got %v", err)
	}
}

func TestImportService_FailureClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "transient",
			err:     fmt.Errorf("fetch games season=2025 week=1: %w: timeout talking to provider", ErrDependencyUnavailable),
			wantMsg: transientImportMessage,
		},
		{
			name:    "validation",
			err:     fmt.Errorf("%w: week 40 is out of range", ErrInvalidInput),
			wantMsg: "invalid input: week 40 is out of range",
		},
		{
			name:    "other",
			err:     errors.New("save game ext-1: disk full"),
			wantMsg: "save game ext-1: disk full",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fx := newImportFixture(t, importerFunc(func(context.Context, ImportRequest) (ImportReport, error) {
				return ImportReport{Stats: importjob.Stats{GamesProcessed: 3}}, tc.err
			}), ImportServiceConfig{})
			ctx := context.Background()

			created, err := fx.service.CreateJob(ctx, CreateImportJobInput{Season: 2025, AdminID: "admin"})
			if err != nil {
				t.Fatalf("create job: %v", err)
			}
			job, _, _ := fx.store.ImportJobs().GetByID(ctx, created.ID)
			if job.Status != importjob.StatusFailed {
				t.Fatalf("unexpected status: %s", job.Status)
			}
			if len(job.Errors) != 1 || job.Errors[0] != tc.wantMsg {
				t.Fatalf("unexpected errors: got=%v want=%q", job.Errors, tc.wantMsg)
			}
			if job.Stats.GamesProcessed != 3 {
				t.Fatalf("partial stats must be kept: %+v", job.Stats)
			}
			if fx.alerts.count() != 1 {
				t.Fatalf("expected one alert, got %d", fx.alerts.count())
			}
		})
	}
}

func TestImportService_Timeout(t *testing.T) {
	t.Parallel()

	fx := newImportFixture(t, importerFunc(func(ctx context.Context, _ ImportRequest) (ImportReport, error) {
		<-ctx.Done()
		return ImportReport{}, ctx.Err()
	}), ImportServiceConfig{JobTimeout: 20 * time.Millisecond})
	ctx := context.Background()

	if err := fx.store.ImportJobs().Create(ctx, importjob.Job{ID: "job-t", Season: 2024, Status: importjob.StatusPending}); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	err := fx.service.RunJob(ctx, "job-t")
	if !errors.Is(err, ErrJobTimeout) {
		t.Fatalf("expected ErrJobTimeout, got %v", err)
	}

	job, _, _ := fx.store.ImportJobs().GetByID(ctx, "job-t")
	if job.Status != importjob.StatusFailed || len(job.Errors) != 1 || job.Errors[0] != transientImportMessage {
		t.Fatalf("unexpected timed out job: %+v", job)
	}
}

func TestImportService_DurableWriteFailureStillMirrorsProgress(t *testing.T) {
	t.Parallel()

	repo := importjobmock.NewRepository(t)
	progress := newFakeProgress()
	service := NewImportService(repo, nil, importerFunc(func(context.Context, ImportRequest) (ImportReport, error) {
		return ImportReport{}, errors.New("boom")
	}), progress, inlineRunner{}, nil, nil, nil, ImportServiceConfig{}, logging.NewNop())
	ctx := context.Background()

	repo.On("GetByID", mock.Anything, "job-1").Return(importjob.Job{ID: "job-1", Season: 2025, Status: importjob.StatusPending}, true, nil).Once()
	repo.On("FindRunningBySeason", mock.Anything, 2025, "job-1").Return(importjob.Job{}, false, nil).Once()
	repo.On("Update", mock.Anything, mock.MatchedBy(func(job importjob.Job) bool {
		return job.Status == importjob.StatusRunning
	})).Return(nil).Once()
	repo.On("Update", mock.Anything, mock.MatchedBy(func(job importjob.Job) bool {
		return job.Status == importjob.StatusFailed
	})).Return(errors.New("database unavailable")).Once()

	if err := service.RunJob(ctx, "job-1"); err == nil {
		t.Fatalf("expected run error")
	}
	if msg, ok := progress.failure("job-1"); !ok || msg != "boom" {
		t.Fatalf("progress must be marked failed independently: ok=%v msg=%q", ok, msg)
	}
}

func TestImportService_CreateJobValidation(t *testing.T) {
	t.Parallel()

	fx := newImportFixture(t, okImporter(importjob.Stats{}), ImportServiceConfig{})
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateImportJobInput
		want  error
	}{
		{name: "season too early", input: CreateImportJobInput{Season: 1999, AdminID: "admin"}, want: ErrInvalidInput},
		{name: "season too late", input: CreateImportJobInput{Season: 2101, AdminID: "admin"}, want: ErrInvalidInput},
		{name: "week out of range", input: CreateImportJobInput{Season: 2025, Weeks: []int{0}, AdminID: "admin"}, want: ErrInvalidInput},
		{name: "duplicate weeks", input: CreateImportJobInput{Season: 2025, Weeks: []int{3, 3}, AdminID: "admin"}, want: ErrInvalidInput},
		{name: "missing admin", input: CreateImportJobInput{Season: 2025}, want: ErrInvalidInput},
		{name: "not admin", input: CreateImportJobInput{Season: 2025, AdminID: "u1"}, want: ErrUnauthorized},
	}
	for _, tc := range cases {
		if _, err := fx.service.CreateJob(ctx, tc.input); !errors.Is(err, tc.want) {
			t.Fatalf("%s: unexpected error: got=%v want=%v", tc.name, err, tc.want)
		}
	}

	jobs, err := fx.service.ListJobs(ctx, 0)
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("rejected requests must not create jobs, got %d", len(jobs))
	}
}

func TestImportService_DispatchFailureMarksJobFailed(t *testing.T) {
	t.Parallel()

	fx := newImportFixture(t, okImporter(importjob.Stats{}), ImportServiceConfig{})
	fx.service.runner = inlineRunner{err: ErrRunnerClosed}
	ctx := context.Background()

	job, err := fx.service.CreateScheduledJob(ctx, 2025, nil, true)
	if !errors.Is(err, ErrRunnerClosed) {
		t.Fatalf("expected ErrRunnerClosed, got %v", err)
	}
	if job.Status != importjob.StatusFailed || job.CreatedByUserID != SystemActorID {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestImportService_GetJobStatusIncludesLiveProgress(t *testing.T) {
	t.Parallel()

	fx := newImportFixture(t, okImporter(importjob.Stats{}), ImportServiceConfig{})
	ctx := context.Background()

	if err := fx.store.ImportJobs().Create(ctx, importjob.Job{ID: "job-live", Season: 2025, Status: importjob.StatusRunning}); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	fx.progress.UpdateProgress(ctx, "job-live", importjob.Progress{JobID: "job-live", Status: importjob.StatusRunning, CurrentWeek: 4})

	status, err := fx.service.GetJobStatus(ctx, "job-live")
	if err != nil {
		t.Fatalf("get job status: %v", err)
	}
	if status.Progress == nil || status.Progress.CurrentWeek != 4 {
		t.Fatalf("unexpected progress: %+v", status.Progress)
	}

	if _, err := fx.service.GetJobStatus(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestImportService_PanickingImportFailsJobAndFreesSeason(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	fx := newImportFixture(t, importerFunc(func(context.Context, ImportRequest) (ImportReport, error) {
		if calls.Add(1) == 1 {
			panic("provider decoder bug")
		}
		return ImportReport{Stats: importjob.Stats{GamesProcessed: 1}}, nil
	}), ImportServiceConfig{})
	ctx := context.Background()

	runner, err := NewJobRunner(1, logging.NewNop())
	if err != nil {
		t.Fatalf("new job runner: %v", err)
	}
	fx.service.runner = runner

	first, err := fx.service.CreateJob(ctx, CreateImportJobInput{Season: 2025, AdminID: "admin"})
	if err != nil {
		t.Fatalf("create first job: %v", err)
	}
	if err := runner.Shutdown(ctx); err != nil {
		t.Fatalf("drain runner: %v", err)
	}

	job, _, _ := fx.store.ImportJobs().GetByID(ctx, first.ID)
	if job.Status != importjob.StatusFailed || job.CompletedAt == nil {
		t.Fatalf("unexpected job after panic: status=%s completed_at=%v", job.Status, job.CompletedAt)
	}
	if len(job.Errors) != 1 || job.Errors[0] != "import crashed: provider decoder bug" {
		t.Fatalf("unexpected errors: %v", job.Errors)
	}
	if msg, ok := fx.progress.failure(first.ID); !ok || msg != job.Errors[0] {
		t.Fatalf("unexpected progress failure: ok=%v msg=%q", ok, msg)
	}
	if fx.alerts.count() != 1 {
		t.Fatalf("expected one alert, got %d", fx.alerts.count())
	}

	runner, err = NewJobRunner(1, logging.NewNop())
	if err != nil {
		t.Fatalf("new job runner: %v", err)
	}
	fx.service.runner = runner
	second, err := fx.service.CreateJob(ctx, CreateImportJobInput{Season: 2025, AdminID: "admin"})
	if err != nil {
		t.Fatalf("create second job: %v", err)
	}
	if err := runner.Shutdown(ctx); err != nil {
		t.Fatalf("drain runner: %v", err)
	}

	job, _, _ = fx.store.ImportJobs().GetByID(ctx, second.ID)
	if job.Status != importjob.StatusCompleted {
		t.Fatalf("unexpected second job: status=%s errors=%v", job.Status, job.Errors)
	}
}

func TestImportService_FailInterruptedJobs(t *testing.T) {
	t.Parallel()

	fx := newImportFixture(t, okImporter(importjob.Stats{}), ImportServiceConfig{})
	ctx := context.Background()

	seed := []importjob.Job{
		{ID: "job-running", Season: 2025, Status: importjob.StatusRunning},
		{ID: "job-queued", Season: 2024, Status: importjob.StatusPending},
		{ID: "job-done", Season: 2023, Status: importjob.StatusCompleted},
	}
	for _, job := range seed {
		if err := fx.store.ImportJobs().Create(ctx, job); err != nil {
			t.Fatalf("seed job %s: %v", job.ID, err)
		}
	}

	failed, err := fx.service.FailInterruptedJobs(ctx)
	if err != nil {
		t.Fatalf("fail interrupted jobs: %v", err)
	}
	if failed != 2 {
		t.Fatalf("unexpected failed count: got=%d want=%d", failed, 2)
	}

	for _, jobID := range []string{"job-running", "job-queued"} {
		job, _, _ := fx.store.ImportJobs().GetByID(ctx, jobID)
		if job.Status != importjob.StatusFailed || job.CompletedAt == nil {
			t.Fatalf("unexpected job %s: %+v", jobID, job)
		}
		if len(job.Errors) != 1 || job.Errors[0] != interruptedImportMessage {
			t.Fatalf("unexpected errors for %s: %v", jobID, job.Errors)
		}
	}
	if job, _, _ := fx.store.ImportJobs().GetByID(ctx, "job-done"); job.Status != importjob.StatusCompleted {
		t.Fatalf("completed job must be untouched, got %s", job.Status)
	}

	created, err := fx.service.CreateJob(ctx, CreateImportJobInput{Season: 2025, AdminID: "admin"})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if job, _, _ := fx.store.ImportJobs().GetByID(ctx, created.ID); job.Status != importjob.StatusCompleted {
		t.Fatalf("season must be free again, got status=%s errors=%v", job.Status, job.Errors)
	}
}
