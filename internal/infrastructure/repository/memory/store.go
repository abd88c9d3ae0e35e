package memory

import (
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/riskibarqy/touchdown-picks/internal/domain/game"
	"github.com/riskibarqy/touchdown-picks/internal/domain/importjob"
	"github.com/riskibarqy/touchdown-picks/internal/domain/pick"
	"github.com/riskibarqy/touchdown-picks/internal/domain/player"
	"github.com/riskibarqy/touchdown-picks/internal/domain/team"
	"github.com/riskibarqy/touchdown-picks/internal/domain/user"
	"github.com/riskibarqy/touchdown-picks/internal/platform/id"
)

// Seed is the initial content of a Store.
type Seed struct {
	Teams   []team.Team
	Players []player.Player
	Games   []game.Game
	Users   []user.User
	Picks   []pick.Pick
}

// Store holds every table behind one lock so grading units stay atomic the
// way a database transaction would.
type Store struct {
	mu sync.RWMutex

	teams   map[string]team.Team
	players map[string]player.Player
	games   map[string]game.Game
	users   map[string]user.User
	picks   map[string]pick.Pick
	jobs    map[string]importjob.Job

	teamByExternal   map[string]string
	playerByExternal map[string]string
	gameByExternal   map[string]string

	pickOrder []string
	jobOrder  []string

	clock clockwork.Clock
	ids   id.Generator
}

type Option func(*Store)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithIDGenerator(gen id.Generator) Option {
	return func(s *Store) {
		if gen != nil {
			s.ids = gen
		}
	}
}

func NewStore(seed Seed, opts ...Option) *Store {
	s := &Store{
		teams:            make(map[string]team.Team, len(seed.Teams)),
		players:          make(map[string]player.Player, len(seed.Players)),
		games:            make(map[string]game.Game, len(seed.Games)),
		users:            make(map[string]user.User, len(seed.Users)),
		picks:            make(map[string]pick.Pick, len(seed.Picks)),
		jobs:             make(map[string]importjob.Job),
		teamByExternal:   make(map[string]string, len(seed.Teams)),
		playerByExternal: make(map[string]string, len(seed.Players)),
		gameByExternal:   make(map[string]string, len(seed.Games)),
		clock:            clockwork.NewRealClock(),
		ids:              id.NewUUIDGenerator(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, item := range seed.Teams {
		s.teams[item.ID] = item
		if item.ExternalID != "" {
			s.teamByExternal[item.ExternalID] = item.ID
		}
	}
	for _, item := range seed.Players {
		s.players[item.ID] = item
		if item.ExternalID != "" {
			s.playerByExternal[item.ExternalID] = item.ID
		}
	}
	for _, item := range seed.Games {
		s.games[item.ID] = cloneGame(item)
		if item.ExternalID != "" {
			s.gameByExternal[item.ExternalID] = item.ID
		}
	}
	for _, item := range seed.Users {
		s.users[item.ID] = item
	}
	for _, item := range seed.Picks {
		s.picks[item.ID] = clonePick(item)
		s.pickOrder = append(s.pickOrder, item.ID)
	}
	return s
}

func (s *Store) Games() *GameRepository {
	return &GameRepository{store: s}
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{store: s}
}

func (s *Store) Players() *PlayerRepository {
	return &PlayerRepository{store: s}
}

func (s *Store) Picks() *PickRepository {
	return &PickRepository{store: s}
}

func (s *Store) Grading() *GradingRepository {
	return &GradingRepository{store: s}
}

func (s *Store) Ingest() *IngestRepository {
	return &IngestRepository{store: s}
}

func (s *Store) ImportJobs() *ImportJobRepository {
	return &ImportJobRepository{store: s}
}

func cloneGame(g game.Game) game.Game {
	if g.AllTDScorerIDs != nil {
		g.AllTDScorerIDs = append([]string(nil), g.AllTDScorerIDs...)
	}
	g.HomeScore = cloneInt(g.HomeScore)
	g.AwayScore = cloneInt(g.AwayScore)
	g.ScoredAt = cloneTime(g.ScoredAt)
	return g
}

func clonePick(p pick.Pick) pick.Pick {
	p.ScoredAt = cloneTime(p.ScoredAt)
	p.OverrideAt = cloneTime(p.OverrideAt)
	return p
}

func cloneJob(j importjob.Job) importjob.Job {
	if j.Weeks != nil {
		j.Weeks = append([]int(nil), j.Weeks...)
	}
	if j.Errors != nil {
		j.Errors = append([]string(nil), j.Errors...)
	}
	j.StartedAt = cloneTime(j.StartedAt)
	j.CompletedAt = cloneTime(j.CompletedAt)
	return j
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
