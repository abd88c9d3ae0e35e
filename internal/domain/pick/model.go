package pick

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusWin     Status = "WIN"
	StatusLoss    Status = "LOSS"
	StatusVoid    Status = "VOID"
)

// Pick is one user's player selection for one game.
type Pick struct {
	ID               string
	UserID           string
	GameID           string
	PlayerID         string
	Status           Status
	FTDPoints        int
	ATTDPoints       int
	TotalPoints      int
	ScoredAt         *time.Time
	IsManualOverride bool
	OverrideByUserID string
	OverrideAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToUpper(strings.TrimSpace(value)))
	switch status {
	case StatusPending, StatusWin, StatusLoss, StatusVoid:
		return status, true
	default:
		return "", false
	}
}

// IsSettled reports whether the status counts toward user totals.
func (s Status) IsSettled() bool {
	return s == StatusWin || s == StatusLoss
}

// Scope narrows settled-pick queries. Nil Week means the whole season.
type Scope struct {
	Season int
	Week   *int
}

// Scored is a settled pick joined with its game's season and week.
type Scored struct {
	Pick
	Season int
	Week   int
}
