package user

import "context"

type Repository interface {
	GetByID(ctx context.Context, id string) (User, bool, error)
	ListByIDs(ctx context.Context, ids []string) ([]User, error)
	ListAll(ctx context.Context) ([]User, error)
}
