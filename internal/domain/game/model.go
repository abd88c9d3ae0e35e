package game

import (
	"strings"
	"time"
)

type Status string

const (
	StatusScheduled  Status = "SCHEDULED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusSuspended  Status = "SUSPENDED"
)

// Game is one NFL contest. ScoredAt doubles as the grading idempotence key.
type Game struct {
	ID               string
	ExternalID       string
	Season           int
	Week             int
	HomeTeamID       string
	AwayTeamID       string
	KickoffAt        time.Time
	Status           Status
	HomeScore        *int
	AwayScore        *int
	FirstTDScorerID  string
	AllTDScorerIDs   []string
	ScoredAt         *time.Time
	IsManuallyScored bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (g Game) IsGraded() bool {
	return g.ScoredAt != nil
}

func (g Game) IsCompleted() bool {
	return g.Status == StatusCompleted
}

// IsLocked reports whether kickoff has been reached.
func (g Game) IsLocked(now time.Time) bool {
	return !now.Before(g.KickoffAt)
}

func NormalizeStatus(value string) Status {
	switch Status(strings.ToUpper(strings.TrimSpace(value))) {
	case StatusInProgress, "INPROGRESS", "LIVE", "IN_PLAY":
		return StatusInProgress
	case StatusCompleted, "FINAL", "FINISHED", "F", "FINAL_OT":
		return StatusCompleted
	case StatusSuspended, "POSTPONED", "CANCELLED", "CANCELED":
		return StatusSuspended
	default:
		return StatusScheduled
	}
}

// NormalizeScorers trims and de-duplicates the scorer list keeping first-seen
// order. A first scorer missing from the list is prepended.
func NormalizeScorers(firstTD string, allTD []string) []string {
	firstTD = strings.TrimSpace(firstTD)
	out := make([]string, 0, len(allTD)+1)
	seen := make(map[string]struct{}, len(allTD)+1)
	if firstTD != "" {
		out = append(out, firstTD)
		seen[firstTD] = struct{}{}
	}
	for _, id := range allTD {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
