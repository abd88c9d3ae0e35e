package ingest

import (
	"github.com/riskibarqy/touchdown-picks/internal/domain/game"
	"github.com/riskibarqy/touchdown-picks/internal/domain/player"
	"github.com/riskibarqy/touchdown-picks/internal/domain/team"
)

// GameBundle is one provider game with the reference data it depends on.
// Team and player rows are matched by ExternalID. Game.HomeTeamID and
// Game.AwayTeamID are ignored and resolved from the bundled teams. Each
// player's TeamID carries the provider team id until the bundle is saved.
type GameBundle struct {
	Game     game.Game
	HomeTeam team.Team
	AwayTeam team.Team
	Players  []player.Player
}

// SaveResult reports what SaveBundle changed.
type SaveResult struct {
	Game           game.Game
	TeamsCreated   int
	PlayersCreated int
	GameCreated    bool
	GameUpdated    bool
}

// FinalResult is validated final data for a game, scorer ids already resolved
// to internal player ids.
type FinalResult struct {
	HomeScore       int
	AwayScore       int
	FirstTDScorerID string
	AllTDScorerIDs  []string
}
