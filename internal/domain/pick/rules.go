package pick

import (
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/touchdown-picks/internal/domain/user"
)

const (
	FirstTDPoints   = 3
	AnytimeTDPoints = 1
)

var (
	ErrDuplicate       = errors.New("pick already exists for this game")
	ErrNotFound        = errors.New("pick not found")
	ErrInvalidStatus   = errors.New("invalid pick status")
	ErrInvalidPoints   = errors.New("invalid pick points")
	ErrUnsettledPoints = errors.New("pending or void picks cannot carry points")
)

// Outcome is the graded result for one pick.
type Outcome struct {
	Status      Status
	FTDPoints   int
	ATTDPoints  int
	TotalPoints int
}

// Score grades a single player selection against a game's touchdown data.
// An empty scorer set yields a zero-point LOSS.
func Score(playerID, firstTDScorerID string, allTDScorerIDs []string) Outcome {
	out := Outcome{Status: StatusLoss}
	if playerID == "" {
		return out
	}
	if firstTDScorerID != "" && playerID == firstTDScorerID {
		out.FTDPoints = FirstTDPoints
	}
	for _, id := range allTDScorerIDs {
		if id == playerID {
			out.ATTDPoints = AnytimeTDPoints
			break
		}
	}
	out.TotalPoints = out.FTDPoints + out.ATTDPoints
	if out.TotalPoints > 0 {
		out.Status = StatusWin
	}
	return out
}

// ValidateOutcome checks an admin supplied status/points combination.
func ValidateOutcome(status Status, ftdPoints, attdPoints int) (Outcome, error) {
	if _, ok := ParseStatus(string(status)); !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if ftdPoints != 0 && ftdPoints != FirstTDPoints {
		return Outcome{}, fmt.Errorf("%w: ftd_points must be 0 or %d, got %d", ErrInvalidPoints, FirstTDPoints, ftdPoints)
	}
	if attdPoints != 0 && attdPoints != AnytimeTDPoints {
		return Outcome{}, fmt.Errorf("%w: attd_points must be 0 or %d, got %d", ErrInvalidPoints, AnytimeTDPoints, attdPoints)
	}
	if !status.IsSettled() && ftdPoints+attdPoints != 0 {
		return Outcome{}, fmt.Errorf("%w: status=%s", ErrUnsettledPoints, status)
	}
	return Outcome{
		Status:      status,
		FTDPoints:   ftdPoints,
		ATTDPoints:  attdPoints,
		TotalPoints: ftdPoints + attdPoints,
	}, nil
}

// Apply writes an outcome onto p, stamping ScoredAt for settled results.
func (p Pick) Apply(outcome Outcome, at time.Time) Pick {
	p.Status = outcome.Status
	p.FTDPoints = outcome.FTDPoints
	p.ATTDPoints = outcome.ATTDPoints
	p.TotalPoints = outcome.TotalPoints
	p.UpdatedAt = at
	if outcome.Status == StatusPending {
		p.ScoredAt = nil
	} else {
		scoredAt := at
		p.ScoredAt = &scoredAt
	}
	return p
}

// Contribution is what p adds to its owner's totals.
func (p Pick) Contribution() user.TotalsDelta {
	switch p.Status {
	case StatusWin:
		return user.TotalsDelta{Points: p.TotalPoints, Wins: 1}
	case StatusLoss:
		return user.TotalsDelta{Points: p.TotalPoints, Losses: 1}
	default:
		return user.TotalsDelta{}
	}
}

// SettlementDelta is the only way user totals change: the contribution of
// after minus the contribution of before.
func SettlementDelta(before, after Pick) user.TotalsDelta {
	return after.Contribution().Add(before.Contribution().Negate())
}

// Totals recomputes totals from raw picks.
func Totals(picks []Pick) user.TotalsDelta {
	var out user.TotalsDelta
	for _, p := range picks {
		out = out.Add(p.Contribution())
	}
	return out
}
