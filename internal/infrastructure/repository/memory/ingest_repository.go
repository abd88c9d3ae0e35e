package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/touchdown-picks/internal/domain/game"
	"github.com/riskibarqy/touchdown-picks/internal/domain/ingest"
	"github.com/riskibarqy/touchdown-picks/internal/domain/player"
	"github.com/riskibarqy/touchdown-picks/internal/domain/team"
)

type IngestRepository struct {
	store *Store
}

func (r *IngestRepository) SaveBundle(_ context.Context, bundle ingest.GameBundle) (ingest.SaveResult, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if bundle.Game.ExternalID == "" {
		return ingest.SaveResult{}, fmt.Errorf("game external id is required")
	}

	if bundle.HomeTeam.ExternalID == bundle.AwayTeam.ExternalID {
		return ingest.SaveResult{}, fmt.Errorf("game %s has the same home and away team", bundle.Game.ExternalID)
	}

	// Ids are allocated up front so a failure leaves the store untouched.
	now := s.clock.Now().UTC()
	result := ingest.SaveResult{}
	teams := make(map[string]team.Team, 2)
	for _, item := range []team.Team{bundle.HomeTeam, bundle.AwayTeam} {
		if item.ExternalID == "" {
			return ingest.SaveResult{}, fmt.Errorf("team external id is required for game %s", bundle.Game.ExternalID)
		}
		saved, created, err := s.prepareTeamLocked(item, now)
		if err != nil {
			return ingest.SaveResult{}, err
		}
		if created {
			result.TeamsCreated++
		}
		teams[item.ExternalID] = saved
	}

	players := make([]player.Player, 0, len(bundle.Players))
	for _, item := range bundle.Players {
		if item.ExternalID == "" {
			continue
		}
		owner, ok := teams[item.TeamID]
		if !ok {
			return ingest.SaveResult{}, fmt.Errorf("player %s references unknown team %s", item.ExternalID, item.TeamID)
		}
		item.TeamID = owner.ID
		saved, created, err := s.preparePlayerLocked(item, now)
		if err != nil {
			return ingest.SaveResult{}, err
		}
		if created {
			result.PlayersCreated++
		}
		players = append(players, saved)
	}

	incoming := bundle.Game
	incoming.HomeTeamID = teams[bundle.HomeTeam.ExternalID].ID
	incoming.AwayTeamID = teams[bundle.AwayTeam.ExternalID].ID
	saved, created, err := s.prepareGameLocked(incoming, now)
	if err != nil {
		return ingest.SaveResult{}, err
	}
	result.GameCreated = created
	result.GameUpdated = !created

	for _, item := range teams {
		s.teams[item.ID] = item
		s.teamByExternal[item.ExternalID] = item.ID
	}
	for _, item := range players {
		s.players[item.ID] = item
		s.playerByExternal[item.ExternalID] = item.ID
	}
	s.games[saved.ID] = cloneGame(saved)
	s.gameByExternal[saved.ExternalID] = saved.ID

	result.Game = cloneGame(saved)
	return result, nil
}

func (r *IngestRepository) ResolvePlayerIDs(_ context.Context, externalIDs []string) (map[string]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make(map[string]string, len(externalIDs))
	for _, externalID := range externalIDs {
		if playerID, ok := r.store.playerByExternal[externalID]; ok {
			out[externalID] = playerID
		}
	}
	return out, nil
}

func (r *IngestRepository) RecordFinal(_ context.Context, gameID string, final ingest.FinalResult) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[gameID]
	if !ok {
		return false, fmt.Errorf("game %s not found", gameID)
	}
	if g.IsGraded() {
		return false, nil
	}

	home, away := final.HomeScore, final.AwayScore
	g.Status = game.StatusCompleted
	g.HomeScore = &home
	g.AwayScore = &away
	g.FirstTDScorerID = final.FirstTDScorerID
	g.AllTDScorerIDs = game.NormalizeScorers(final.FirstTDScorerID, final.AllTDScorerIDs)
	g.UpdatedAt = s.clock.Now().UTC()
	s.games[gameID] = g
	return true, nil
}

func (s *Store) prepareTeamLocked(item team.Team, now time.Time) (team.Team, bool, error) {
	if existingID, ok := s.teamByExternal[item.ExternalID]; ok {
		existing := s.teams[existingID]
		existing.Name = item.Name
		existing.Abbreviation = item.Abbreviation
		existing.City = item.City
		existing.UpdatedAt = now
		return existing, false, nil
	}
	newID, err := s.ids.NewID()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("generate team id: %w", err)
	}
	item.ID = newID
	item.CreatedAt = now
	item.UpdatedAt = now
	return item, true, nil
}

func (s *Store) preparePlayerLocked(item player.Player, now time.Time) (player.Player, bool, error) {
	if existingID, ok := s.playerByExternal[item.ExternalID]; ok {
		existing := s.players[existingID]
		existing.TeamID = item.TeamID
		existing.Name = item.Name
		existing.Position = item.Position
		existing.JerseyNumber = item.JerseyNumber
		existing.IsActive = item.IsActive
		existing.UpdatedAt = now
		return existing, false, nil
	}
	newID, err := s.ids.NewID()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("generate player id: %w", err)
	}
	item.ID = newID
	item.CreatedAt = now
	item.UpdatedAt = now
	return item, true, nil
}

func (s *Store) prepareGameLocked(item game.Game, now time.Time) (game.Game, bool, error) {
	if existingID, ok := s.gameByExternal[item.ExternalID]; ok {
		existing := cloneGame(s.games[existingID])
		existing.Season = item.Season
		existing.Week = item.Week
		existing.HomeTeamID = item.HomeTeamID
		existing.AwayTeamID = item.AwayTeamID
		existing.KickoffAt = item.KickoffAt
		// Completed games keep their final state and touchdown data.
		if !existing.IsGraded() && !existing.IsCompleted() {
			existing.Status = item.Status
		}
		existing.UpdatedAt = now
		return existing, false, nil
	}
	newID, err := s.ids.NewID()
	if err != nil {
		return game.Game{}, false, fmt.Errorf("generate game id: %w", err)
	}
	item.ID = newID
	item.CreatedAt = now
	item.UpdatedAt = now
	return cloneGame(item), true, nil
}
