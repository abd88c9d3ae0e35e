package pick

import "context"

type Repository interface {
	GetByID(ctx context.Context, id string) (Pick, bool, error)
	GetByUserAndGame(ctx context.Context, userID, gameID string) (Pick, bool, error)
	ListPendingByGame(ctx context.Context, gameID string) ([]Pick, error)
	ListByUser(ctx context.Context, userID string, scope Scope) ([]Scored, error)
	// ListSettled returns WIN/LOSS picks whose game falls in scope.
	ListSettled(ctx context.Context, scope Scope) ([]Scored, error)
	ListSettledAll(ctx context.Context) ([]Pick, error)
	// Create fails with ErrDuplicate when the user already picked this game.
	Create(ctx context.Context, item Pick) error
	UpdatePlayer(ctx context.Context, id, playerID string) (Pick, error)
	Delete(ctx context.Context, id string) error
}
