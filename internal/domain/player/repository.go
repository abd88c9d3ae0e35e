package player

import "context"

type Repository interface {
	GetByID(ctx context.Context, id string) (Player, bool, error)
}
