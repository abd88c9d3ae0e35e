package ingest

import "context"

type Repository interface {
	// SaveBundle upserts teams, players and the game in one transaction. A
	// game that is already COMPLETED keeps its status and touchdown data.
	SaveBundle(ctx context.Context, bundle GameBundle) (SaveResult, error)
	// ResolvePlayerIDs maps provider player ids to internal ids; unknown ids
	// are absent from the result.
	ResolvePlayerIDs(ctx context.Context, externalIDs []string) (map[string]string, error)
	// RecordFinal marks the game COMPLETED with its final data unless it has
	// already been graded. The bool reports whether the row changed.
	RecordFinal(ctx context.Context, gameID string, result FinalResult) (bool, error)
}
