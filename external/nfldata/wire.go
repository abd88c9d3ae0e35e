package nfldata

import (
	"strings"
	"time"

	"github.com/riskibarqy/touchdown-picks/internal/usecase"
)

type gamesEnvelope struct {
	Data []gameItem `json:"data"`
}

type gameItem struct {
	ID        string       `json:"id"`
	Season    int          `json:"season"`
	Week      int          `json:"week"`
	KickoffAt string       `json:"kickoff_at"`
	Status    string       `json:"status"`
	HomeTeam  teamItem     `json:"home_team"`
	AwayTeam  teamItem     `json:"away_team"`
	Players   []playerItem `json:"players"`
}

type teamItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	City         string `json:"city"`
}

type playerItem struct {
	ID           string `json:"id"`
	TeamID       string `json:"team_id"`
	Name         string `json:"name"`
	Position     string `json:"position"`
	JerseyNumber int    `json:"jersey_number"`
}

type resultEnvelope struct {
	Data struct {
		HomeScore *int   `json:"home_score"`
		AwayScore *int   `json:"away_score"`
		Status    string `json:"status"`
	} `json:"data"`
}

type touchdownsEnvelope struct {
	Data struct {
		FirstScorerID string   `json:"first_scorer_id"`
		ScorerIDs     []string `json:"scorer_ids"`
	} `json:"data"`
}

func mapGame(item gameItem, season, week int) usecase.ExternalGame {
	out := usecase.ExternalGame{
		ExternalID: strings.TrimSpace(item.ID),
		Season:     pickNonZero(item.Season, season),
		Week:       pickNonZero(item.Week, week),
		Status:     mapStatus(item.Status),
		HomeTeam:   mapTeam(item.HomeTeam),
		AwayTeam:   mapTeam(item.AwayTeam),
		Players:    make([]usecase.ExternalPlayer, 0, len(item.Players)),
	}
	if parsed := parseProviderDateTime(item.KickoffAt); parsed != nil {
		out.KickoffAt = *parsed
	}
	for _, p := range item.Players {
		if strings.TrimSpace(p.ID) == "" {
			continue
		}
		out.Players = append(out.Players, usecase.ExternalPlayer{
			ExternalID:     strings.TrimSpace(p.ID),
			TeamExternalID: strings.TrimSpace(p.TeamID),
			Name:           strings.TrimSpace(p.Name),
			Position:       strings.ToUpper(strings.TrimSpace(p.Position)),
			JerseyNumber:   p.JerseyNumber,
		})
	}
	return out
}

func mapTeam(item teamItem) usecase.ExternalTeam {
	return usecase.ExternalTeam{
		ExternalID:   strings.TrimSpace(item.ID),
		Name:         strings.TrimSpace(item.Name),
		Abbreviation: strings.ToUpper(strings.TrimSpace(item.Abbreviation)),
		City:         strings.TrimSpace(item.City),
	}
}

// mapStatus folds provider status spellings into game statuses.
func mapStatus(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "FINAL", "FINAL_OT", "FINAL/OT", "COMPLETED", "COMPLETE", "STATUS_FINAL":
		return "COMPLETED"
	case "IN_PROGRESS", "INPROGRESS", "LIVE", "HALFTIME", "STATUS_IN_PROGRESS":
		return "IN_PROGRESS"
	case "SUSPENDED", "POSTPONED", "DELAYED", "CANCELED", "CANCELLED":
		return "SUSPENDED"
	default:
		return "SCHEDULED"
	}
}

func isFinalStatus(raw string) bool {
	return mapStatus(raw) == "COMPLETED"
}

func parseProviderDateTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	return nil
}

func pickNonZero(current, fallback int) int {
	if current > 0 {
		return current
	}
	return fallback
}
