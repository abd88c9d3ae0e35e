package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/riskibarqy/touchdown-picks/internal/domain/importjob"
	"github.com/riskibarqy/touchdown-picks/internal/platform/logging"
	"github.com/riskibarqy/touchdown-picks/internal/platform/metrics"
	"github.com/riskibarqy/touchdown-picks/internal/usecase"
	"github.com/robfig/cron/v3"
	"github.com/sourcegraph/conc/panics"
)

const (
	TriggerIngest  = "ingest"
	TriggerGrading = "grading"

	outcomeOK      = "ok"
	outcomeError   = "error"
	outcomePanic   = "panic"
	outcomeSkipped = "skipped"

	defaultIngestCron = "0 6 * * *"
)

// DefaultGradingCrons fire after the Thursday, Sunday and Monday slates.
var DefaultGradingCrons = []string{"30 23 * * 4", "30 23 * * 0", "30 23 * * 1"}

var ErrTriggerBusy = errors.New("trigger already running")

type Config struct {
	Location     *time.Location
	IngestCron   string
	GradingCrons []string
	// Season to refresh; 0 follows the calendar.
	Season int
	Weeks  []int
}

type importCreator interface {
	RunningJob(ctx context.Context, season int) (importjob.Job, bool, error)
	CreateScheduledJob(ctx context.Context, season int, weeks []int, gradeGames bool) (importjob.Job, error)
}

type gradingSweeper interface {
	Run(ctx context.Context, trigger string) (usecase.SweepResult, error)
}

// Scheduler fires the ingest refresh and the grading sweeps. Each trigger
// type runs at most once at a time; a firing that overlaps is skipped.
type Scheduler struct {
	cfg     Config
	cron    *cron.Cron
	imports importCreator
	sweeper gradingSweeper
	alerts  usecase.AlertNotifier
	metrics *metrics.Metrics
	logger  *logging.Logger
	clock   clockwork.Clock

	running map[string]*atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	started bool
}

func New(
	cfg Config,
	imports importCreator,
	sweeper gradingSweeper,
	alerts usecase.AlertNotifier,
	m *metrics.Metrics,
	logger *logging.Logger,
) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if strings.TrimSpace(cfg.IngestCron) == "" {
		cfg.IngestCron = defaultIngestCron
	}
	if len(cfg.GradingCrons) == 0 {
		cfg.GradingCrons = append([]string(nil), DefaultGradingCrons...)
	}
	if alerts == nil {
		alerts = usecase.NewNoopAlertNotifier()
	}
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.Named("scheduler")

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cfg:     cfg,
		cron:    cron.New(cron.WithLocation(cfg.Location), cron.WithLogger(cronLogger{logger: logger})),
		imports: imports,
		sweeper: sweeper,
		alerts:  alerts,
		metrics: m,
		logger:  logger,
		clock:   clockwork.NewRealClock(),
		running: map[string]*atomic.Bool{
			TriggerIngest:  {},
			TriggerGrading: {},
		},
		ctx:    ctx,
		cancel: cancel,
	}

	if imports != nil {
		if err := s.schedule(cfg.IngestCron, TriggerIngest); err != nil {
			cancel()
			return nil, err
		}
	}
	if sweeper != nil {
		for _, spec := range cfg.GradingCrons {
			if err := s.schedule(spec, TriggerGrading); err != nil {
				cancel()
				return nil, err
			}
		}
	}
	return s, nil
}

func (s *Scheduler) schedule(spec, trigger string) error {
	spec = strings.TrimSpace(spec)
	if _, err := s.cron.AddFunc(spec, func() {
		if err := s.Fire(s.ctx, trigger); err != nil && !errors.Is(err, ErrTriggerBusy) {
			s.logger.Warn("scheduled trigger failed", "trigger", trigger, "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule %s trigger %q: %w", trigger, spec, err)
	}
	s.logger.Info("trigger scheduled", "trigger", trigger, "cron", spec, "timezone", s.cfg.Location.String())
	return nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.logger.Info("scheduler started", "entries", len(s.cron.Entries()))
}

// Stop halts new firings and waits for running triggers until ctx ends, then
// cancels them.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	wasStarted := s.started
	s.started = false
	s.mu.Unlock()

	if !wasStarted {
		s.cancel()
		return nil
	}

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.cancel()
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		s.logger.Warn("scheduler stop deadline reached, cancelling running triggers")
		return ctx.Err()
	}
}

// Fire runs one trigger body now. It returns ErrTriggerBusy when the same
// trigger is already running.
func (s *Scheduler) Fire(ctx context.Context, trigger string) error {
	guard, ok := s.running[trigger]
	if !ok {
		return fmt.Errorf("unknown trigger %q", trigger)
	}
	if !guard.CompareAndSwap(false, true) {
		s.metrics.SchedulerRun(trigger, outcomeSkipped)
		s.logger.Warn("skipping trigger, previous run still in progress", "trigger", trigger)
		return ErrTriggerBusy
	}
	defer guard.Store(false)

	started := s.clock.Now()
	var (
		err error
		pc  panics.Catcher
	)
	pc.Try(func() {
		err = s.run(ctx, trigger)
	})

	outcome := outcomeOK
	if recovered := pc.Recovered(); recovered != nil {
		outcome = outcomePanic
		err = recovered.AsError()
	} else if errors.Is(err, ErrTriggerBusy) {
		s.metrics.SchedulerRun(trigger, outcomeSkipped)
		s.logger.Warn("skipping trigger", "trigger", trigger, "reason", err.Error())
		return err
	} else if err != nil {
		outcome = outcomeError
	}
	s.metrics.SchedulerRun(trigger, outcome)

	if err != nil {
		s.logger.Error("trigger failed", "trigger", trigger, "outcome", outcome, "error", err)
		s.alerts.Notify(ctx, usecase.Alert{
			Subject:  fmt.Sprintf("Scheduled %s run failed", trigger),
			Message:  err.Error(),
			Severity: usecase.AlertSeverityCritical,
			Context: map[string]any{
				"trigger": trigger,
				"outcome": outcome,
			},
		})
		return err
	}
	s.logger.Info("trigger finished", "trigger", trigger, "elapsed", s.clock.Since(started).String())
	return nil
}

func (s *Scheduler) run(ctx context.Context, trigger string) error {
	switch trigger {
	case TriggerIngest:
		if s.imports == nil {
			return fmt.Errorf("ingest trigger has no import service")
		}
		season := s.season()
		running, busy, err := s.imports.RunningJob(ctx, season)
		if err != nil {
			return fmt.Errorf("check running import for season %d: %w", season, err)
		}
		if busy {
			return fmt.Errorf("%w: import %s for season %d still running", ErrTriggerBusy, running.ID, season)
		}
		job, err := s.imports.CreateScheduledJob(ctx, season, s.cfg.Weeks, true)
		if err != nil {
			return fmt.Errorf("create scheduled import for season %d: %w", season, err)
		}
		s.logger.Info("scheduled import dispatched", "job_id", job.ID, "season", season)
		return nil
	case TriggerGrading:
		if s.sweeper == nil {
			return fmt.Errorf("grading trigger has no sweep service")
		}
		result, err := s.sweeper.Run(ctx, "scheduled")
		if err != nil {
			return fmt.Errorf("grading sweep: %w", err)
		}
		s.logger.Info("scheduled sweep finished",
			"games_found", result.GamesFound,
			"games_graded", result.GamesGraded,
			"games_failed", result.GamesFailed,
		)
		return nil
	default:
		return fmt.Errorf("unknown trigger %q", trigger)
	}
}

func (s *Scheduler) season() int {
	if s.cfg.Season > 0 {
		return s.cfg.Season
	}
	return CurrentSeason(s.clock.Now().In(s.cfg.Location))
}

// CurrentSeason is the NFL season in play at now. January and February
// belong to the previous year's season.
func CurrentSeason(now time.Time) int {
	if now.Month() < time.March {
		return now.Year() - 1
	}
	return now.Year()
}

type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
