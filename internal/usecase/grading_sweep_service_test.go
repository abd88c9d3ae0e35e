package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/riskibarqy/touchdown-picks/internal/domain/game"
	gamemock "github.com/riskibarqy/touchdown-picks/internal/mocks/domain/game"
	"github.com/riskibarqy/touchdown-picks/internal/platform/logging"
	"github.com/riskibarqy/touchdown-picks/internal/platform/metrics"
	"github.com/stretchr/testify/mock"
)

type graderFunc func(ctx context.Context, gameID string) (int, error)

func (f graderFunc) GradeGame(ctx context.Context, gameID string) (int, error) {
	return f(ctx, gameID)
}

func TestGradingSweepService_IsolatesFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gameRepo := gamemock.NewRepository(t)
	gameRepo.
		On("ListUngradedCompleted", mock.Anything).
		Return([]game.Game{{ID: "g1"}, {ID: "g2"}, {ID: "g3"}, {ID: "g4"}}, nil).
		Once()

	grader := graderFunc(func(_ context.Context, gameID string) (int, error) {
		switch gameID {
		case "g2":
			return 0, errors.New("lock timeout")
		case "g3":
			panic("corrupt row")
		default:
			return 5, nil
		}
	})
	alerts := &fakeAlerts{}
	service := NewGradingSweepService(gameRepo, grader, alerts, metrics.New(prometheus.NewRegistry()), 2, logging.NewNop())

	got, err := service.Run(ctx, "sunday")
	if err != nil {
		t.Fatalf("run sweep: %v", err)
	}
	if got.GamesFound != 4 || got.GamesGraded != 2 || got.GamesFailed != 2 || got.PicksGraded != 10 {
		t.Fatalf("unexpected sweep result: %+v", got)
	}
	if len(got.Failures) != 2 {
		t.Fatalf("unexpected failures: %v", got.Failures)
	}
	if alerts.count() != 1 {
		t.Fatalf("expected one alert, got %d", alerts.count())
	}
}

func TestGradingSweepService_NoGames(t *testing.T) {
	t.Parallel()

	gameRepo := gamemock.NewRepository(t)
	gameRepo.On("ListUngradedCompleted", mock.Anything).Return([]game.Game{}, nil).Once()
	alerts := &fakeAlerts{}
	service := NewGradingSweepService(gameRepo, graderFunc(func(context.Context, string) (int, error) {
		t.Fatalf("grader must not be called")
		return 0, nil
	}), alerts, nil, 0, logging.NewNop())

	got, err := service.Run(context.Background(), "thursday")
	if err != nil {
		t.Fatalf("run sweep: %v", err)
	}
	if got.GamesFound != 0 || alerts.count() != 0 {
		t.Fatalf("unexpected result: %+v alerts=%d", got, alerts.count())
	}
}

func TestGradingSweepService_ListFailure(t *testing.T) {
	t.Parallel()

	gameRepo := gamemock.NewRepository(t)
	gameRepo.On("ListUngradedCompleted", mock.Anything).Return(nil, errors.New("db down")).Once()
	service := NewGradingSweepService(gameRepo, nil, nil, nil, 1, logging.NewNop())

	if _, err := service.Run(context.Background(), "monday"); err == nil {
		t.Fatalf("expected list error")
	}
}
