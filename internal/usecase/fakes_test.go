package usecase

import (
	"context"
	"sync"

	"github.com/riskibarqy/touchdown-picks/internal/domain/importjob"
)

type fakeProvider struct {
	mu      sync.Mutex
	games   map[int][]ExternalGame
	results map[string]ExternalGameResult
	scorers map[string]ExternalTouchdownScorers
	gameErr error
	calls   int
}

func (f *fakeProvider) FetchGames(_ context.Context, _ int, week int) ([]ExternalGame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.gameErr != nil {
		return nil, f.gameErr
	}
	return f.games[week], nil
}

func (f *fakeProvider) FetchGameResult(_ context.Context, externalGameID string) (ExternalGameResult, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result, ok := f.results[externalGameID]
	return result, ok, nil
}

func (f *fakeProvider) FetchTouchdownScorers(_ context.Context, externalGameID string) (ExternalTouchdownScorers, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	scorers, ok := f.scorers[externalGameID]
	return scorers, ok, nil
}

type fakeProgress struct {
	mu        sync.Mutex
	snapshots map[string]importjob.Progress
	updates   int
	completed map[string]importjob.Stats
	failed    map[string]string
	failErr   error
}

func newFakeProgress() *fakeProgress {
	return &fakeProgress{
		snapshots: make(map[string]importjob.Progress),
		completed: make(map[string]importjob.Stats),
		failed:    make(map[string]string),
	}
}

func (f *fakeProgress) UpdateProgress(_ context.Context, jobID string, progress importjob.Progress) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	f.snapshots[jobID] = progress
}

func (f *fakeProgress) GetProgress(_ context.Context, jobID string) (importjob.Progress, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot, ok := f.snapshots[jobID]
	return snapshot, ok, nil
}

func (f *fakeProgress) MarkComplete(_ context.Context, jobID string, stats importjob.Stats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed[jobID] = stats
	return nil
}

func (f *fakeProgress) MarkFailed(_ context.Context, jobID string, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[jobID] = message
	return f.failErr
}

func (f *fakeProgress) failure(jobID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.failed[jobID]
	return msg, ok
}

type fakeAlerts struct {
	mu     sync.Mutex
	alerts []Alert
}

func (f *fakeAlerts) Notify(_ context.Context, alert Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
}

func (f *fakeAlerts) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

// inlineRunner runs submitted jobs synchronously.
type inlineRunner struct {
	err error
}

func (r inlineRunner) Submit(_ string, fn func(ctx context.Context)) (<-chan struct{}, error) {
	if r.err != nil {
		return nil, r.err
	}
	fn(context.Background())
	done := make(chan struct{})
	close(done)
	return done, nil
}

type importerFunc func(ctx context.Context, req ImportRequest) (ImportReport, error)

func (f importerFunc) Import(ctx context.Context, req ImportRequest) (ImportReport, error) {
	return f(ctx, req)
}
