package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/riskibarqy/touchdown-picks/internal/domain/game"
	"github.com/riskibarqy/touchdown-picks/internal/domain/pick"
	"github.com/riskibarqy/touchdown-picks/internal/domain/player"
	"github.com/riskibarqy/touchdown-picks/internal/platform/id"
	"github.com/riskibarqy/touchdown-picks/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

type SubmitPickInput struct {
	UserID   string `validate:"required"`
	GameID   string `validate:"required"`
	PlayerID string `validate:"required"`
}

type ChangePickInput struct {
	PickID   string `validate:"required"`
	UserID   string `validate:"required"`
	PlayerID string `validate:"required"`
}

type PickService struct {
	pickRepo   pick.Repository
	gameRepo   game.Repository
	playerRepo player.Repository
	ids        id.Generator
	logger     *logging.Logger
	clock      clockwork.Clock
}

func NewPickService(
	pickRepo pick.Repository,
	gameRepo game.Repository,
	playerRepo player.Repository,
	ids id.Generator,
	logger *logging.Logger,
) *PickService {
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &PickService{
		pickRepo:   pickRepo,
		gameRepo:   gameRepo,
		playerRepo: playerRepo,
		ids:        ids,
		logger:     logger,
		clock:      clockwork.NewRealClock(),
	}
}

// SubmitPick records a PENDING pick. Picks close at kickoff.
func (s *PickService) SubmitPick(ctx context.Context, input SubmitPickInput) (pick.Pick, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PickService.SubmitPick",
		attribute.String("user.id", input.UserID),
		attribute.String("game.id", input.GameID),
	)
	defer span.End()

	input.UserID = strings.TrimSpace(input.UserID)
	input.GameID = strings.TrimSpace(input.GameID)
	input.PlayerID = strings.TrimSpace(input.PlayerID)
	if err := validateInput(ctx, input); err != nil {
		return pick.Pick{}, err
	}

	now := s.clock.Now().UTC()
	if _, err := s.openGame(ctx, input.GameID, now); err != nil {
		return pick.Pick{}, err
	}
	if err := s.ensurePlayer(ctx, input.PlayerID); err != nil {
		return pick.Pick{}, err
	}

	pickID, err := s.ids.NewID()
	if err != nil {
		return pick.Pick{}, fmt.Errorf("generate pick id: %w", err)
	}
	item := pick.Pick{
		ID:        pickID,
		UserID:    input.UserID,
		GameID:    input.GameID,
		PlayerID:  input.PlayerID,
		Status:    pick.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.pickRepo.Create(ctx, item); err != nil {
		if errors.Is(err, pick.ErrDuplicate) {
			return pick.Pick{}, fmt.Errorf("%w: user=%s game=%s", ErrDuplicatePick, input.UserID, input.GameID)
		}
		recordSpanError(span, err)
		return pick.Pick{}, fmt.Errorf("create pick: %w", err)
	}

	s.logger.InfoContext(ctx, "pick submitted",
		"pick_id", item.ID,
		"user_id", item.UserID,
		"game_id", item.GameID,
		"player_id", item.PlayerID,
	)
	return item, nil
}

// ChangePick swaps the selected player before kickoff.
func (s *PickService) ChangePick(ctx context.Context, input ChangePickInput) (pick.Pick, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PickService.ChangePick", attribute.String("pick.id", input.PickID))
	defer span.End()

	input.PlayerID = strings.TrimSpace(input.PlayerID)
	if err := validateInput(ctx, input); err != nil {
		return pick.Pick{}, err
	}

	current, err := s.ownedOpenPick(ctx, input.PickID, input.UserID)
	if err != nil {
		return pick.Pick{}, err
	}
	if current.PlayerID == input.PlayerID {
		return current, nil
	}
	if err := s.ensurePlayer(ctx, input.PlayerID); err != nil {
		return pick.Pick{}, err
	}

	updated, err := s.pickRepo.UpdatePlayer(ctx, current.ID, input.PlayerID)
	if err != nil {
		if errors.Is(err, pick.ErrNotFound) {
			return pick.Pick{}, fmt.Errorf("%w: pick=%s", ErrNotFound, input.PickID)
		}
		recordSpanError(span, err)
		return pick.Pick{}, fmt.Errorf("update pick: %w", err)
	}

	s.logger.InfoContext(ctx, "pick changed",
		"pick_id", updated.ID,
		"user_id", updated.UserID,
		"from_player_id", current.PlayerID,
		"to_player_id", updated.PlayerID,
	)
	return updated, nil
}

func (s *PickService) DeletePick(ctx context.Context, pickID, userID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.PickService.DeletePick", attribute.String("pick.id", pickID))
	defer span.End()

	current, err := s.ownedOpenPick(ctx, pickID, userID)
	if err != nil {
		return err
	}
	if err := s.pickRepo.Delete(ctx, current.ID); err != nil {
		if errors.Is(err, pick.ErrNotFound) {
			return fmt.Errorf("%w: pick=%s", ErrNotFound, pickID)
		}
		recordSpanError(span, err)
		return fmt.Errorf("delete pick: %w", err)
	}

	s.logger.InfoContext(ctx, "pick deleted", "pick_id", current.ID, "user_id", current.UserID)
	return nil
}

// ListUserPicks returns a user's picks for a season, or one week of it when
// week > 0.
func (s *PickService) ListUserPicks(ctx context.Context, userID string, season, week int) ([]pick.Scored, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PickService.ListUserPicks",
		attribute.String("user.id", userID),
		attribute.Int("season", season),
	)
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if season <= 0 {
		return nil, fmt.Errorf("%w: season must be > 0", ErrInvalidInput)
	}

	scope := pick.Scope{Season: season}
	if week > 0 {
		scope.Week = &week
	}
	items, err := s.pickRepo.ListByUser(ctx, userID, scope)
	if err != nil {
		return nil, fmt.Errorf("list user picks: %w", err)
	}
	return items, nil
}

func (s *PickService) openGame(ctx context.Context, gameID string, now time.Time) (game.Game, error) {
	g, found, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return game.Game{}, fmt.Errorf("get game: %w", err)
	}
	if !found {
		return game.Game{}, fmt.Errorf("%w: game=%s", ErrNotFound, gameID)
	}
	if g.IsLocked(now) {
		return game.Game{}, fmt.Errorf("%w: game %s kicked off at %s", ErrPickLocked, gameID, g.KickoffAt.UTC().Format(time.RFC3339))
	}
	return g, nil
}

func (s *PickService) ensurePlayer(ctx context.Context, playerID string) error {
	_, found, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return fmt.Errorf("get player: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: player=%s", ErrNotFound, playerID)
	}
	return nil
}

func (s *PickService) ownedOpenPick(ctx context.Context, pickID, userID string) (pick.Pick, error) {
	pickID = strings.TrimSpace(pickID)
	if pickID == "" {
		return pick.Pick{}, fmt.Errorf("%w: pick id is required", ErrInvalidInput)
	}

	current, found, err := s.pickRepo.GetByID(ctx, pickID)
	if err != nil {
		return pick.Pick{}, fmt.Errorf("get pick: %w", err)
	}
	if !found {
		return pick.Pick{}, fmt.Errorf("%w: pick=%s", ErrNotFound, pickID)
	}
	if current.UserID != strings.TrimSpace(userID) {
		return pick.Pick{}, fmt.Errorf("%w: pick belongs to another user", ErrUnauthorized)
	}
	if current.Status != pick.StatusPending {
		return pick.Pick{}, fmt.Errorf("%w: pick %s is already %s", ErrPickLocked, pickID, current.Status)
	}
	if _, err := s.openGame(ctx, current.GameID, s.clock.Now().UTC()); err != nil {
		return pick.Pick{}, err
	}
	return current, nil
}
