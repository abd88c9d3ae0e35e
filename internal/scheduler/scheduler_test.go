package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/riskibarqy/touchdown-picks/internal/domain/importjob"
	"github.com/riskibarqy/touchdown-picks/internal/platform/logging"
	"github.com/riskibarqy/touchdown-picks/internal/platform/metrics"
	"github.com/riskibarqy/touchdown-picks/internal/usecase"
)

type fakeImports struct {
	running *importjob.Job
	mu      sync.Mutex
	calls   []int
	weeks   [][]int
	grade   []bool
	err     error
	panics  bool
}

func (f *fakeImports) RunningJob(_ context.Context, season int) (importjob.Job, bool, error) {
	if f.running != nil && f.running.Season == season {
		return *f.running, true, nil
	}
	return importjob.Job{}, false, nil
}

func (f *fakeImports) CreateScheduledJob(_ context.Context, season int, weeks []int, gradeGames bool) (importjob.Job, error) {
	if f.panics {
		panic("import exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, season)
	f.weeks = append(f.weeks, weeks)
	f.grade = append(f.grade, gradeGames)
	if f.err != nil {
		return importjob.Job{}, f.err
	}
	return importjob.Job{ID: "job-1", Season: season}, nil
}

type fakeSweeper struct {
	entered chan struct{}
	release chan struct{}
	runs    int
	mu      sync.Mutex
}

func (f *fakeSweeper) Run(ctx context.Context, trigger string) (usecase.SweepResult, error) {
	f.mu.Lock()
	f.runs++
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return usecase.SweepResult{}, ctx.Err()
		}
	}
	return usecase.SweepResult{GamesFound: 1, GamesGraded: 1}, nil
}

type recordingAlerts struct {
	mu     sync.Mutex
	alerts []usecase.Alert
}

func (r *recordingAlerts) Notify(_ context.Context, alert usecase.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
}

func (r *recordingAlerts) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alerts)
}

func newTestScheduler(t *testing.T, cfg Config, imports importCreator, sweeper gradingSweeper, alerts usecase.AlertNotifier, m *metrics.Metrics) *Scheduler {
	t.Helper()

	s, err := New(cfg, imports, sweeper, alerts, m, logging.NewNop())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Stop(context.Background())
	})
	return s
}

func TestFireIngestUsesConfiguredSeason(t *testing.T) {
	t.Parallel()

	imports := &fakeImports{}
	s := newTestScheduler(t, Config{Season: 2024, Weeks: []int{3}}, imports, nil, nil, nil)

	if err := s.Fire(context.Background(), TriggerIngest); err != nil {
		t.Fatalf("Fire error: %v", err)
	}
	if len(imports.calls) != 1 || imports.calls[0] != 2024 {
		t.Fatalf("unexpected seasons: got=%v want=[2024]", imports.calls)
	}
	if len(imports.weeks[0]) != 1 || imports.weeks[0][0] != 3 {
		t.Fatalf("unexpected weeks: got=%v want=[3]", imports.weeks[0])
	}
	if !imports.grade[0] {
		t.Fatalf("expected scheduled import to grade games")
	}
}

func TestFireIngestFollowsCalendarSeason(t *testing.T) {
	t.Parallel()

	imports := &fakeImports{}
	s := newTestScheduler(t, Config{}, imports, nil, nil, nil)
	s.clock = clockwork.NewFakeClockAt(time.Date(2026, 1, 10, 6, 0, 0, 0, time.UTC))

	if err := s.Fire(context.Background(), TriggerIngest); err != nil {
		t.Fatalf("Fire error: %v", err)
	}
	if imports.calls[0] != 2025 {
		t.Fatalf("unexpected season: got=%d want=2025", imports.calls[0])
	}
}

func TestFireSkipsOverlappingRun(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	sweeper := &fakeSweeper{entered: make(chan struct{}, 1), release: make(chan struct{})}
	s := newTestScheduler(t, Config{}, nil, sweeper, nil, m)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- s.Fire(context.Background(), TriggerGrading)
	}()
	<-sweeper.entered

	if err := s.Fire(context.Background(), TriggerGrading); !errors.Is(err, ErrTriggerBusy) {
		t.Fatalf("unexpected overlap error: got=%v want=%v", err, ErrTriggerBusy)
	}

	close(sweeper.release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first run error: %v", err)
	}
	if sweeper.runs != 1 {
		t.Fatalf("unexpected sweep runs: got=%d want=1", sweeper.runs)
	}

	sweeper.entered = nil
	if err := s.Fire(context.Background(), TriggerGrading); err != nil {
		t.Fatalf("third run error: %v", err)
	}
	if got := schedulerRuns(t, reg, TriggerGrading, outcomeSkipped); got != 1 {
		t.Fatalf("unexpected skipped count: got=%v want=1", got)
	}
	if got := schedulerRuns(t, reg, TriggerGrading, outcomeOK); got != 2 {
		t.Fatalf("unexpected ok count: got=%v want=2", got)
	}
}

func TestFireIngestSkipsWhileSeasonImportRuns(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	alerts := &recordingAlerts{}
	imports := &fakeImports{running: &importjob.Job{ID: "job-9", Season: 2025, Status: importjob.StatusRunning}}
	s := newTestScheduler(t, Config{Season: 2025}, imports, nil, alerts, metrics.New(reg))

	if err := s.Fire(context.Background(), TriggerIngest); !errors.Is(err, ErrTriggerBusy) {
		t.Fatalf("unexpected error: got=%v want=%v", err, ErrTriggerBusy)
	}
	if len(imports.calls) != 0 {
		t.Fatalf("no job may be created while the season import runs, got %v", imports.calls)
	}
	if alerts.count() != 0 {
		t.Fatalf("a skipped firing must not alert, got %d", alerts.count())
	}
	if got := schedulerRuns(t, reg, TriggerIngest, outcomeSkipped); got != 1 {
		t.Fatalf("unexpected skipped count: got=%v want=1", got)
	}

	imports.running = nil
	if err := s.Fire(context.Background(), TriggerIngest); err != nil {
		t.Fatalf("Fire error: %v", err)
	}
	if len(imports.calls) != 1 {
		t.Fatalf("unexpected import calls: %v", imports.calls)
	}
}

func TestFireRecoversPanicAndAlerts(t *testing.T) {
	t.Parallel()

	alerts := &recordingAlerts{}
	s := newTestScheduler(t, Config{Season: 2025}, &fakeImports{panics: true}, nil, alerts, nil)

	err := s.Fire(context.Background(), TriggerIngest)
	if err == nil {
		t.Fatalf("expected error from panicking trigger")
	}
	if alerts.count() != 1 {
		t.Fatalf("unexpected alert count: got=%d want=1", alerts.count())
	}
	if alerts.alerts[0].Severity != usecase.AlertSeverityCritical {
		t.Fatalf("unexpected severity: got=%s", alerts.alerts[0].Severity)
	}

	// The guard is released so the next firing runs.
	s.imports = &fakeImports{}
	if err := s.Fire(context.Background(), TriggerIngest); err != nil {
		t.Fatalf("Fire after panic error: %v", err)
	}
}

func TestFireReportsImportError(t *testing.T) {
	t.Parallel()

	alerts := &recordingAlerts{}
	boom := errors.New("season busy")
	s := newTestScheduler(t, Config{Season: 2025}, &fakeImports{err: boom}, nil, alerts, nil)

	if err := s.Fire(context.Background(), TriggerIngest); !errors.Is(err, boom) {
		t.Fatalf("unexpected error: got=%v want=%v", err, boom)
	}
	if alerts.count() != 1 {
		t.Fatalf("unexpected alert count: got=%d want=1", alerts.count())
	}
}

func TestFireUnknownTrigger(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, Config{}, nil, nil, nil, nil)
	if err := s.Fire(context.Background(), "nope"); err == nil {
		t.Fatalf("expected error for unknown trigger")
	}
}

func TestNewRejectsBadCron(t *testing.T) {
	t.Parallel()

	_, err := New(Config{IngestCron: "not a cron"}, &fakeImports{}, nil, nil, nil, logging.NewNop())
	if err == nil {
		t.Fatalf("expected error for invalid cron expression")
	}
}

func TestSchedulesOneEntryPerCron(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, Config{}, &fakeImports{}, &fakeSweeper{}, nil, nil)
	if got := len(s.cron.Entries()); got != 1+len(DefaultGradingCrons) {
		t.Fatalf("unexpected entries: got=%d want=%d", got, 1+len(DefaultGradingCrons))
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, Config{}, nil, nil, nil, nil)
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("second Stop error: %v", err)
	}
}

func TestCurrentSeason(t *testing.T) {
	t.Parallel()

	cases := []struct {
		now  time.Time
		want int
	}{
		{time.Date(2025, 9, 7, 0, 0, 0, 0, time.UTC), 2025},
		{time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC), 2025},
		{time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 2026},
	}
	for _, tc := range cases {
		if got := CurrentSeason(tc.now); got != tc.want {
			t.Fatalf("unexpected season for %s: got=%d want=%d", tc.now, got, tc.want)
		}
	}
}

func schedulerRuns(t *testing.T, reg *prometheus.Registry, trigger, outcome string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "touchdown_picks_scheduler_runs_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["trigger"] == trigger && labels["outcome"] == outcome {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}
