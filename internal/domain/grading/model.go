package grading

import (
	"time"

	"github.com/riskibarqy/touchdown-picks/internal/domain/game"
	"github.com/riskibarqy/touchdown-picks/internal/domain/pick"
	"github.com/riskibarqy/touchdown-picks/internal/domain/user"
)

// Decision is what a GradeFunc wants persisted for one game.
type Decision struct {
	Game  game.Game
	Picks []pick.Pick
	// Skip commits nothing, e.g. when the game turned out to be graded already.
	Skip bool
}

// GradeFunc sees the row-locked game and its pending picks.
type GradeFunc func(g game.Game, pending []pick.Pick) (Decision, error)

// OverrideFunc sees the row-locked pick and returns its replacement.
type OverrideFunc func(current pick.Pick) (pick.Pick, error)

type Result struct {
	Game       game.Game
	Picks      []pick.Pick
	Skipped    bool
	UserDeltas map[string]user.TotalsDelta
}

// ManualData is admin supplied touchdown data.
type ManualData struct {
	FirstTDScorerID string
	AllTDScorerIDs  []string
}

// GradePicks scores every pending pick against the game's touchdown data.
func GradePicks(g game.Game, pending []pick.Pick, now time.Time) []pick.Pick {
	out := make([]pick.Pick, 0, len(pending))
	for _, p := range pending {
		if p.Status != pick.StatusPending {
			continue
		}
		outcome := pick.Score(p.PlayerID, g.FirstTDScorerID, g.AllTDScorerIDs)
		out = append(out, p.Apply(outcome, now))
	}
	return out
}

// AutoGrade grades a COMPLETED game from its stored touchdown data. Games that
// already carry ScoredAt are skipped.
func AutoGrade(now time.Time) GradeFunc {
	return func(g game.Game, pending []pick.Pick) (Decision, error) {
		if g.IsGraded() {
			return Decision{Game: g, Skip: true}, nil
		}
		if !g.IsCompleted() {
			return Decision{}, &NotCompletedError{GameID: g.ID, Status: g.Status}
		}
		g.AllTDScorerIDs = game.NormalizeScorers(g.FirstTDScorerID, g.AllTDScorerIDs)
		g.ScoredAt = &now
		g.UpdatedAt = now
		return Decision{Game: g, Picks: GradePicks(g, pending, now)}, nil
	}
}

// ManualGrade writes data onto the game and grades its pending picks. The
// game status is left alone so force-grading a non-final game keeps its state.
func ManualGrade(data ManualData, now time.Time) GradeFunc {
	return func(g game.Game, pending []pick.Pick) (Decision, error) {
		g.FirstTDScorerID = data.FirstTDScorerID
		g.AllTDScorerIDs = game.NormalizeScorers(data.FirstTDScorerID, data.AllTDScorerIDs)
		g.IsManuallyScored = true
		g.ScoredAt = &now
		g.UpdatedAt = now
		return Decision{Game: g, Picks: GradePicks(g, pending, now)}, nil
	}
}

// DeltasFor folds settlement deltas per user for before/after pick pairs.
func DeltasFor(before map[string]pick.Pick, after []pick.Pick) map[string]user.TotalsDelta {
	out := make(map[string]user.TotalsDelta)
	for _, p := range after {
		delta := pick.SettlementDelta(before[p.ID], p)
		if delta.IsZero() {
			continue
		}
		out[p.UserID] = out[p.UserID].Add(delta)
	}
	return out
}
