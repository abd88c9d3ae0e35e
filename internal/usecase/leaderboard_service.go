package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/riskibarqy/touchdown-picks/internal/domain/leaderboard"
	"github.com/riskibarqy/touchdown-picks/internal/domain/pick"
	"github.com/riskibarqy/touchdown-picks/internal/domain/user"
	"github.com/riskibarqy/touchdown-picks/internal/platform/cache"
	"github.com/riskibarqy/touchdown-picks/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

const leaderboardCachePrefix = "leaderboard:"

type LeaderboardService struct {
	pickRepo pick.Repository
	userRepo user.Repository
	cache    *cache.Store
	logger   *logging.Logger
}

// NewLeaderboardService caches ranked boards in store; nil disables caching.
func NewLeaderboardService(pickRepo pick.Repository, userRepo user.Repository, store *cache.Store, logger *logging.Logger) *LeaderboardService {
	if logger == nil {
		logger = logging.Default()
	}
	return &LeaderboardService{
		pickRepo: pickRepo,
		userRepo: userRepo,
		cache:    store,
		logger:   logger,
	}
}

// CalculateRankings groups settled picks by user and ranks users by total
// points. Equal totals share a rank and the next distinct total skips ahead
// (9, 6, 6, 3 ranks as 1, 2, 2, 4). Ties are listed by wins then user id.
func CalculateRankings(picks []pick.Pick) []leaderboard.Entry {
	byUser := make(map[string]*leaderboard.Entry)
	order := make([]string, 0)
	for _, p := range picks {
		if !p.Status.IsSettled() {
			continue
		}
		entry, ok := byUser[p.UserID]
		if !ok {
			entry = &leaderboard.Entry{UserID: p.UserID}
			byUser[p.UserID] = entry
			order = append(order, p.UserID)
		}
		entry.FTDPoints += p.FTDPoints
		entry.ATTDPoints += p.ATTDPoints
		entry.TotalPoints += p.TotalPoints
		if p.Status == pick.StatusWin {
			entry.Wins++
		} else {
			entry.Losses++
		}
	}

	out := make([]leaderboard.Entry, 0, len(order))
	for _, userID := range order {
		out = append(out, *byUser[userID])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalPoints != out[j].TotalPoints {
			return out[i].TotalPoints > out[j].TotalPoints
		}
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		return out[i].UserID < out[j].UserID
	})

	for i := range out {
		if i > 0 && out[i].TotalPoints == out[i-1].TotalPoints {
			out[i].Rank = out[i-1].Rank
			out[i].IsTied = true
			continue
		}
		out[i].Rank = i + 1
	}
	return out
}

func (s *LeaderboardService) GetSeasonLeaderboard(ctx context.Context, season int) ([]leaderboard.Entry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeaderboardService.GetSeasonLeaderboard", attribute.Int("season", season))
	defer span.End()

	if season <= 0 {
		return nil, fmt.Errorf("%w: season must be > 0", ErrInvalidInput)
	}
	return s.cached(ctx, fmt.Sprintf("%sseason:%d", leaderboardCachePrefix, season), pick.Scope{Season: season})
}

func (s *LeaderboardService) GetWeeklyLeaderboard(ctx context.Context, season, week int) ([]leaderboard.Entry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeaderboardService.GetWeeklyLeaderboard", attribute.Int("season", season), attribute.Int("week", week))
	defer span.End()

	if season <= 0 {
		return nil, fmt.Errorf("%w: season must be > 0", ErrInvalidInput)
	}
	if week <= 0 {
		return nil, fmt.Errorf("%w: week must be > 0", ErrInvalidInput)
	}
	return s.cached(ctx, fmt.Sprintf("%sweek:%d:%d", leaderboardCachePrefix, season, week), pick.Scope{Season: season, Week: &week})
}

// Invalidate drops every cached board; called after any grading change.
func (s *LeaderboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.cache.DeletePrefix(ctx, leaderboardCachePrefix)
}

// AuditUserTotals recomputes every user's totals from settled picks and lists
// the users whose stored totals disagree.
func (s *LeaderboardService) AuditUserTotals(ctx context.Context) ([]leaderboard.Discrepancy, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeaderboardService.AuditUserTotals")
	defer span.End()

	picks, err := s.pickRepo.ListSettledAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settled picks: %w", err)
	}
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	byUser := make(map[string][]pick.Pick, len(users))
	for _, p := range picks {
		byUser[p.UserID] = append(byUser[p.UserID], p)
	}

	out := make([]leaderboard.Discrepancy, 0)
	for _, u := range users {
		computed := pick.Totals(byUser[u.ID])
		if computed == u.Totals() {
			continue
		}
		out = append(out, leaderboard.Discrepancy{
			UserID:         u.ID,
			Username:       u.Username,
			StoredPoints:   u.TotalScore,
			ComputedPoints: computed.Points,
			StoredWins:     u.TotalWins,
			ComputedWins:   computed.Wins,
			StoredLosses:   u.TotalLosses,
			ComputedLosses: computed.Losses,
		})
	}
	if len(out) > 0 {
		s.logger.WarnContext(ctx, "user totals diverge from settled picks", "users", len(out))
	}
	return out, nil
}

func (s *LeaderboardService) cached(ctx context.Context, key string, scope pick.Scope) ([]leaderboard.Entry, error) {
	if s.cache == nil {
		return s.build(ctx, scope)
	}
	value, err := s.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		return s.build(ctx, scope)
	})
	if err != nil {
		return nil, err
	}
	entries, ok := value.([]leaderboard.Entry)
	if !ok {
		return nil, fmt.Errorf("unexpected cached leaderboard type %T", value)
	}
	return append([]leaderboard.Entry(nil), entries...), nil
}

func (s *LeaderboardService) build(ctx context.Context, scope pick.Scope) ([]leaderboard.Entry, error) {
	scored, err := s.pickRepo.ListSettled(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list settled picks: %w", err)
	}
	if len(scored) == 0 {
		return []leaderboard.Entry{}, nil
	}

	picks := make([]pick.Pick, 0, len(scored))
	for _, item := range scored {
		picks = append(picks, item.Pick)
	}
	entries := CalculateRankings(picks)

	userIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		userIDs = append(userIDs, entry.UserID)
	}
	users, err := s.userRepo.ListByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("list leaderboard users: %w", err)
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}
	for i := range entries {
		entries[i].Username = names[entries[i].UserID]
	}
	return entries, nil
}
