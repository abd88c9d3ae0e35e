package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/riskibarqy/touchdown-picks/external/nfldata"
	"github.com/riskibarqy/touchdown-picks/internal/config"
	"github.com/riskibarqy/touchdown-picks/internal/infrastructure/alerting"
	"github.com/riskibarqy/touchdown-picks/internal/platform/cache"
	"github.com/riskibarqy/touchdown-picks/internal/platform/id"
	"github.com/riskibarqy/touchdown-picks/internal/platform/logging"
	"github.com/riskibarqy/touchdown-picks/internal/platform/metrics"
	"github.com/riskibarqy/touchdown-picks/internal/scheduler"
	"github.com/riskibarqy/touchdown-picks/internal/usecase"
)

const leaderboardCacheTTL = 5 * time.Minute

// Worker owns every long-lived component of the process.
type Worker struct {
	Repositories Repositories
	Registry     *prometheus.Registry
	Metrics      *metrics.Metrics
	Scoring      *usecase.ScoringService
	Leaderboard  *usecase.LeaderboardService
	Picks        *usecase.PickService
	Imports      *usecase.ImportService
	Sweep        *usecase.GradingSweepService
	Scheduler    *scheduler.Scheduler

	runner  *usecase.JobRunner
	webhook *alerting.WebhookNotifier
	closers []namedCloser
	logger  *logging.Logger
}

type namedCloser struct {
	name  string
	close func() error
}

// NewWorker wires storage, the provider client and the services. Nothing
// runs until Start.
func NewWorker(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Worker, error) {
	if logger == nil {
		logger = logging.Default()
	}
	w := &Worker{logger: logger}
	ok := false
	defer func() {
		if !ok {
			_ = w.Shutdown(context.Background())
		}
	}()

	w.Registry = prometheus.NewRegistry()
	w.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	w.Metrics = metrics.New(w.Registry)

	ids := id.NewUUIDGenerator()
	repos, closeRepos, err := openRepositories(ctx, cfg, ids, logger.Named("store"))
	if err != nil {
		return nil, err
	}
	w.Repositories = repos
	w.closers = append(w.closers, namedCloser{name: "store", close: closeRepos})

	tracker, closeTracker, err := openProgressTracker(ctx, cfg, logger.Named("progress"))
	if err != nil {
		return nil, err
	}
	w.closers = append(w.closers, namedCloser{name: "progress", close: closeTracker})

	alerts, err := w.buildAlerts(cfg, logger)
	if err != nil {
		return nil, err
	}

	provider, err := nfldata.NewClient(nfldata.ClientConfig{
		BaseURL:        cfg.NFLDataBaseURL,
		APIKey:         cfg.NFLDataAPIKey,
		Timeout:        cfg.NFLDataTimeout,
		MaxRetries:     cfg.NFLDataMaxRetries,
		RetryBackoff:   cfg.NFLDataRetryBackoff,
		Logger:         logger.Named("nfldata"),
		Metrics:        w.Metrics,
		CircuitBreaker: cfg.NFLDataCircuit,
	})
	if err != nil {
		return nil, fmt.Errorf("build nfl data client: %w", err)
	}

	w.runner, err = usecase.NewJobRunner(cfg.JobWorkers, logger.Named("jobs"))
	if err != nil {
		return nil, err
	}

	w.Leaderboard = usecase.NewLeaderboardService(repos.Picks, repos.Users, cache.NewStore(leaderboardCacheTTL), logger.Named("leaderboard"))
	w.Scoring = usecase.NewScoringService(repos.Grading, repos.Users, w.Leaderboard, logger.Named("scoring"))
	w.Picks = usecase.NewPickService(repos.Picks, repos.Games, repos.Players, ids, logger.Named("picks"))
	w.Sweep = usecase.NewGradingSweepService(repos.Games, w.Scoring, alerts, w.Metrics, cfg.SweepConcurrency, logger.Named("sweep"))

	importer := usecase.NewSeasonImporter(provider, repos.Ingest, w.Scoring, tracker, cfg.MaxWeeks, logger.Named("importer"))
	w.Imports = usecase.NewImportService(
		repos.ImportJobs,
		repos.Users,
		importer,
		tracker,
		w.runner,
		alerts,
		w.Metrics,
		ids,
		usecase.ImportServiceConfig{JobTimeout: cfg.ImportJobTimeout},
		logger.Named("imports"),
	)
	interrupted, err := w.Imports.FailInterruptedJobs(ctx)
	if err != nil {
		return nil, err
	}
	if interrupted > 0 {
		logger.Warn("failed import jobs interrupted by a previous shutdown", "count", interrupted)
	}

	if cfg.SchedulerEnabled {
		w.Scheduler, err = scheduler.New(scheduler.Config{
			Location:     cfg.SchedulerTimezone,
			IngestCron:   cfg.SchedulerIngestCron,
			GradingCrons: cfg.SchedulerGradingCrons,
			Season:       cfg.SchedulerSeason,
			Weeks:        cfg.SchedulerWeeks,
		}, w.Imports, w.Sweep, alerts, w.Metrics, logger)
		if err != nil {
			return nil, err
		}
	}

	ok = true
	return w, nil
}

func (w *Worker) buildAlerts(cfg config.Config, logger *logging.Logger) (usecase.AlertNotifier, error) {
	sinks := alerting.Fanout{alerting.NewLogNotifier(logger.Named("alerts"))}
	if strings.TrimSpace(cfg.AlertWebhookURL) == "" {
		return sinks, nil
	}

	webhook, err := alerting.NewWebhookNotifier(alerting.WebhookConfig{
		URL:            cfg.AlertWebhookURL,
		Token:          cfg.AlertWebhookToken,
		Source:         cfg.ServiceName,
		Timeout:        cfg.AlertWebhookTimeout,
		QueueSize:      cfg.AlertWebhookQueueSize,
		CircuitBreaker: cfg.AlertWebhookCircuit,
	}, logger.Named("alerts"))
	if err != nil {
		return nil, fmt.Errorf("build alert webhook: %w", err)
	}
	w.webhook = webhook
	return append(sinks, webhook), nil
}

func (w *Worker) Start() {
	if w.Scheduler != nil {
		w.Scheduler.Start()
	} else {
		w.logger.Info("scheduler disabled")
	}
}

// Shutdown stops the scheduler, drains running import jobs and flushes
// alerts, in that order, all within ctx.
func (w *Worker) Shutdown(ctx context.Context) error {
	var errs []error
	if w.Scheduler != nil {
		if err := w.Scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
		}
	}
	if w.runner != nil {
		if err := w.runner.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain job runner: %w", err))
		}
	}
	if w.webhook != nil {
		if err := w.webhook.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush alert webhook: %w", err))
		}
	}
	if err := w.closeAll(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (w *Worker) closeAll() error {
	var errs []error
	for i := len(w.closers) - 1; i >= 0; i-- {
		if err := w.closers[i].close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", w.closers[i].name, err))
		}
	}
	w.closers = nil
	return errors.Join(errs...)
}
