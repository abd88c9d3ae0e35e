package importjob

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// ErrSeasonBusy is returned by the store when a second job for the same
// season tries to enter RUNNING.
var ErrSeasonBusy = errors.New("season already has a running import")

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Stats are the per-job counters mirrored into progress snapshots.
type Stats struct {
	GamesProcessed int `json:"games_processed"`
	TotalGames     int `json:"total_games"`
	TeamsCreated   int `json:"teams_created"`
	PlayersCreated int `json:"players_created"`
	GamesCreated   int `json:"games_created"`
	GamesUpdated   int `json:"games_updated"`
	GamesGraded    int `json:"games_graded"`
	PicksGraded    int `json:"picks_graded"`
}

// Job is the durable record of one import run. Empty Weeks means every week.
type Job struct {
	ID              string
	Season          int
	Weeks           []int
	GradeGames      bool
	Status          Status
	Stats           Stats
	Errors          []string
	CreatedByUserID string
	CreatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	UpdatedAt       time.Time
}

// Progress is the short-lived mirror of a running job.
type Progress struct {
	JobID       string     `json:"job_id"`
	Status      Status     `json:"status"`
	Stats       Stats      `json:"stats"`
	CurrentWeek int        `json:"current_week,omitempty"`
	CurrentStep string     `json:"current_step,omitempty"`
	Errors      []string   `json:"errors"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// AppendError adds msg unless it is already recorded.
func AppendError(errs []string, msg string) []string {
	if msg == "" {
		return errs
	}
	for _, existing := range errs {
		if existing == msg {
			return errs
		}
	}
	return append(errs, msg)
}
