package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/riskibarqy/touchdown-picks/internal/domain/grading"
	"github.com/riskibarqy/touchdown-picks/internal/domain/pick"
	"github.com/riskibarqy/touchdown-picks/internal/domain/user"
	"github.com/riskibarqy/touchdown-picks/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

type leaderboardInvalidator interface {
	Invalidate(ctx context.Context)
}

type noopLeaderboardInvalidator struct{}

func (noopLeaderboardInvalidator) Invalidate(context.Context) {}

type ManualGradeInput struct {
	GameID          string   `validate:"required"`
	FirstTDScorerID string   `validate:"omitempty"`
	AllTDScorerIDs  []string `validate:"dive,required"`
	AdminID         string   `validate:"required"`
}

type OverrideInput struct {
	PickID     string `validate:"required"`
	Status     pick.Status
	FTDPoints  int
	ATTDPoints int
	AdminID    string `validate:"required"`
}

// ScoringService grades games into pick outcomes and user totals.
type ScoringService struct {
	gradingRepo grading.Repository
	userRepo    user.Repository
	leaderboard leaderboardInvalidator
	logger      *logging.Logger
	clock       clockwork.Clock
}

func NewScoringService(
	gradingRepo grading.Repository,
	userRepo user.Repository,
	leaderboard leaderboardInvalidator,
	logger *logging.Logger,
) *ScoringService {
	if leaderboard == nil {
		leaderboard = noopLeaderboardInvalidator{}
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &ScoringService{
		gradingRepo: gradingRepo,
		userRepo:    userRepo,
		leaderboard: leaderboard,
		logger:      logger,
		clock:       clockwork.NewRealClock(),
	}
}

// GradeGame grades every pending pick of a COMPLETED game. A game that was
// already graded is left untouched and 0 is returned.
func (s *ScoringService) GradeGame(ctx context.Context, gameID string) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.GradeGame", attribute.String("game.id", gameID))
	defer span.End()

	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return 0, fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}

	result, found, err := s.gradingRepo.GradeGame(ctx, gameID, grading.AutoGrade(s.clock.Now().UTC()))
	if err != nil {
		var notCompleted *grading.NotCompletedError
		if errors.As(err, &notCompleted) {
			return 0, fmt.Errorf("%w: %v", ErrInvalidInput, notCompleted)
		}
		recordSpanError(span, err)
		return 0, fmt.Errorf("grade game %s: %w", gameID, err)
	}
	if !found {
		return 0, fmt.Errorf("%w: game=%s", ErrNotFound, gameID)
	}
	if result.Skipped {
		s.logger.DebugContext(ctx, "game already graded, skipping", "game_id", gameID)
		return 0, nil
	}

	s.leaderboard.Invalidate(ctx)
	s.logger.InfoContext(ctx, "game graded",
		"game_id", gameID,
		"picks_graded", len(result.Picks),
		"users_affected", len(result.UserDeltas),
	)
	return len(result.Picks), nil
}

// ManualGradeGame grades with admin supplied touchdown data. The game does not
// need to be COMPLETED, and only picks still PENDING are graded.
func (s *ScoringService) ManualGradeGame(ctx context.Context, input ManualGradeInput) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.ManualGradeGame", attribute.String("game.id", input.GameID))
	defer span.End()

	if err := validateInput(ctx, input); err != nil {
		return 0, err
	}
	if _, err := requireAdmin(ctx, s.userRepo, input.AdminID); err != nil {
		return 0, err
	}

	data := grading.ManualData{
		FirstTDScorerID: strings.TrimSpace(input.FirstTDScorerID),
		AllTDScorerIDs:  input.AllTDScorerIDs,
	}
	result, found, err := s.gradingRepo.GradeGame(ctx, input.GameID, grading.ManualGrade(data, s.clock.Now().UTC()))
	if err != nil {
		recordSpanError(span, err)
		return 0, fmt.Errorf("manual grade game %s: %w", input.GameID, err)
	}
	if !found {
		return 0, fmt.Errorf("%w: game=%s", ErrNotFound, input.GameID)
	}

	s.leaderboard.Invalidate(ctx)
	s.logger.InfoContext(ctx, "game manually graded",
		"game_id", input.GameID,
		"admin_id", input.AdminID,
		"picks_graded", len(result.Picks),
		"first_td_scorer_id", data.FirstTDScorerID,
		"td_scorer_count", len(result.Game.AllTDScorerIDs),
	)
	return len(result.Picks), nil
}

// OverridePickScore replaces one pick's outcome and moves the owner's totals
// by exactly the difference.
func (s *ScoringService) OverridePickScore(ctx context.Context, input OverrideInput) (pick.Pick, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.OverridePickScore", attribute.String("pick.id", input.PickID))
	defer span.End()

	if err := validateInput(ctx, input); err != nil {
		return pick.Pick{}, err
	}
	status, ok := pick.ParseStatus(string(input.Status))
	if !ok {
		return pick.Pick{}, fmt.Errorf("%w: %v", ErrInvalidInput, pick.ErrInvalidStatus)
	}
	outcome, err := pick.ValidateOutcome(status, input.FTDPoints, input.ATTDPoints)
	if err != nil {
		return pick.Pick{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := requireAdmin(ctx, s.userRepo, input.AdminID); err != nil {
		return pick.Pick{}, err
	}

	now := s.clock.Now().UTC()
	result, found, err := s.gradingRepo.OverridePick(ctx, input.PickID, func(current pick.Pick) (pick.Pick, error) {
		updated := current.Apply(outcome, now)
		updated.IsManualOverride = true
		updated.OverrideByUserID = input.AdminID
		updated.OverrideAt = &now
		return updated, nil
	})
	if err != nil {
		recordSpanError(span, err)
		return pick.Pick{}, fmt.Errorf("override pick %s: %w", input.PickID, err)
	}
	if !found || len(result.Picks) == 0 {
		return pick.Pick{}, fmt.Errorf("%w: pick=%s", ErrNotFound, input.PickID)
	}

	updated := result.Picks[0]
	s.leaderboard.Invalidate(ctx)
	s.logger.InfoContext(ctx, "pick score overridden",
		"pick_id", updated.ID,
		"user_id", updated.UserID,
		"admin_id", input.AdminID,
		"status", updated.Status,
		"total_points", updated.TotalPoints,
	)
	return updated, nil
}
