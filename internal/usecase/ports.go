package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/touchdown-picks/internal/domain/importjob"
)

// NFLDataProvider is the ingestion collaborator. Fetches may fail with
// ErrDependencyUnavailable or network errors.
type NFLDataProvider interface {
	FetchGames(ctx context.Context, season, week int) ([]ExternalGame, error)
	// FetchGameResult reports false when the provider has no final score yet.
	FetchGameResult(ctx context.Context, externalGameID string) (ExternalGameResult, bool, error)
	FetchTouchdownScorers(ctx context.Context, externalGameID string) (ExternalTouchdownScorers, bool, error)
}

type ExternalGame struct {
	ExternalID string
	Season     int
	Week       int
	KickoffAt  time.Time
	Status     string
	HomeTeam   ExternalTeam
	AwayTeam   ExternalTeam
	Players    []ExternalPlayer
}

type ExternalTeam struct {
	ExternalID   string
	Name         string
	Abbreviation string
	City         string
}

type ExternalPlayer struct {
	ExternalID     string
	TeamExternalID string
	Name           string
	Position       string
	JerseyNumber   int
}

type ExternalGameResult struct {
	HomeScore int
	AwayScore int
	Final     bool
}

// ExternalTouchdownScorers uses provider player ids. A nil AllScorerIDs means
// the provider returned no scorer list at all; an empty one is a zero-TD game.
type ExternalTouchdownScorers struct {
	FirstScorerID string
	AllScorerIDs  []string
}

// ValidateGameResult checks a provider result and scorer set before they are
// persisted. An empty list means the data is usable.
func ValidateGameResult(externalGameID string, result ExternalGameResult, scorers ExternalTouchdownScorers) []string {
	var problems []string
	if strings.TrimSpace(externalGameID) == "" {
		problems = append(problems, "external game id is required")
	}
	if !result.Final {
		problems = append(problems, "game result is not final")
	}
	if result.HomeScore < 0 || result.AwayScore < 0 {
		problems = append(problems, fmt.Sprintf("scores must be >= 0 (home=%d away=%d)", result.HomeScore, result.AwayScore))
	}
	if scorers.AllScorerIDs == nil {
		problems = append(problems, "touchdown scorer list is missing")
		return problems
	}
	if scorers.FirstScorerID != "" {
		found := false
		for _, id := range scorers.AllScorerIDs {
			if id == scorers.FirstScorerID {
				found = true
				break
			}
		}
		if !found {
			problems = append(problems, fmt.Sprintf("first scorer %s is not in the scorer list", scorers.FirstScorerID))
		}
	}
	if len(scorers.AllScorerIDs) > 0 && scorers.FirstScorerID == "" {
		problems = append(problems, "scorer list present without a first scorer")
	}
	if result.HomeScore+result.AwayScore == 0 && len(scorers.AllScorerIDs) > 0 {
		problems = append(problems, "touchdown scorers reported for a scoreless game")
	}
	return problems
}

// ProgressTracker mirrors live job progress into a short-lived store.
// UpdateProgress is best effort and never fails the caller.
type ProgressTracker interface {
	UpdateProgress(ctx context.Context, jobID string, progress importjob.Progress)
	GetProgress(ctx context.Context, jobID string) (importjob.Progress, bool, error)
	MarkComplete(ctx context.Context, jobID string, stats importjob.Stats) error
	MarkFailed(ctx context.Context, jobID string, message string) error
}

type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

type Alert struct {
	Subject  string
	Message  string
	Severity AlertSeverity
	Context  map[string]any
}

// AlertNotifier is fire-and-forget; implementations log their own failures.
type AlertNotifier interface {
	Notify(ctx context.Context, alert Alert)
}

type noopAlertNotifier struct{}

func (noopAlertNotifier) Notify(context.Context, Alert) {}

func NewNoopAlertNotifier() AlertNotifier {
	return noopAlertNotifier{}
}
