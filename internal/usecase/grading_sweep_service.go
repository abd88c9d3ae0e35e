package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/riskibarqy/touchdown-picks/internal/domain/game"
	"github.com/riskibarqy/touchdown-picks/internal/platform/logging"
	"github.com/riskibarqy/touchdown-picks/internal/platform/metrics"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
)

const defaultSweepConcurrency = 4

type SweepResult struct {
	GamesFound  int      `json:"games_found"`
	GamesGraded int      `json:"games_graded"`
	GamesFailed int      `json:"games_failed"`
	PicksGraded int      `json:"picks_graded"`
	Failures    []string `json:"failures,omitempty"`
}

// GradingSweepService grades every COMPLETED game that has not been graded.
// Games are independent units; one failure never stops the others.
type GradingSweepService struct {
	gameRepo    game.Repository
	grader      gameGrader
	alerts      AlertNotifier
	metrics     *metrics.Metrics
	concurrency int
	logger      *logging.Logger
	clock       clockwork.Clock
}

func NewGradingSweepService(
	gameRepo game.Repository,
	grader gameGrader,
	alerts AlertNotifier,
	m *metrics.Metrics,
	concurrency int,
	logger *logging.Logger,
) *GradingSweepService {
	if alerts == nil {
		alerts = NewNoopAlertNotifier()
	}
	if concurrency <= 0 {
		concurrency = defaultSweepConcurrency
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &GradingSweepService{
		gameRepo:    gameRepo,
		grader:      grader,
		alerts:      alerts,
		metrics:     m,
		concurrency: concurrency,
		logger:      logger,
		clock:       clockwork.NewRealClock(),
	}
}

func (s *GradingSweepService) Run(ctx context.Context, trigger string) (SweepResult, error) {
	ctx, span := startRootSpan(ctx, "usecase.GradingSweepService.Run", attribute.String("trigger", trigger))
	defer span.End()

	started := s.clock.Now()
	games, err := s.gameRepo.ListUngradedCompleted(ctx)
	if err != nil {
		recordSpanError(span, err)
		return SweepResult{}, fmt.Errorf("list ungraded games: %w", err)
	}

	result := SweepResult{GamesFound: len(games)}
	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(s.concurrency)
	for _, g := range games {
		g := g
		p.Go(func() {
			picks, err := s.gradeOne(ctx, g.ID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.GamesFailed++
				result.Failures = append(result.Failures, fmt.Sprintf("game %s: %v", g.ID, err))
				s.logger.WarnContext(ctx, "sweep failed to grade game", "game_id", g.ID, "error", err)
				return
			}
			result.GamesGraded++
			result.PicksGraded += picks
		})
	}
	p.Wait()
	sort.Strings(result.Failures)

	s.metrics.ObserveGrading(trigger, result.GamesGraded, result.PicksGraded, result.GamesFailed)
	s.metrics.ObserveSweep(s.clock.Since(started))

	s.logger.InfoContext(ctx, "grading sweep finished",
		"trigger", trigger,
		"games_found", result.GamesFound,
		"games_graded", result.GamesGraded,
		"games_failed", result.GamesFailed,
		"picks_graded", result.PicksGraded,
	)
	if result.GamesFailed > 0 {
		s.alerts.Notify(ctx, Alert{
			Subject:  fmt.Sprintf("Grading sweep failed for %d game(s)", result.GamesFailed),
			Message:  fmt.Sprintf("%d of %d games could not be graded", result.GamesFailed, result.GamesFound),
			Severity: AlertSeverityWarning,
			Context: map[string]any{
				"trigger":  trigger,
				"failures": result.Failures,
			},
		})
	}
	return result, nil
}

// gradeOne turns a panic in a single game into that game's error.
func (s *GradingSweepService) gradeOne(ctx context.Context, gameID string) (int, error) {
	var (
		picks int
		err   error
		pc    panics.Catcher
	)
	pc.Try(func() {
		picks, err = s.grader.GradeGame(ctx, gameID)
	})
	if recovered := pc.Recovered(); recovered != nil {
		return 0, recovered.AsError()
	}
	return picks, err
}
