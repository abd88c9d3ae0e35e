package memory

import (
	"context"
	"sort"

	"github.com/riskibarqy/touchdown-picks/internal/domain/user"
)

type UserRepository struct {
	store *Store
}

func (r *UserRepository) GetByID(_ context.Context, userID string) (user.User, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	u, ok := r.store.users[userID]
	if !ok {
		return user.User{}, false, nil
	}
	return u, true, nil
}

func (r *UserRepository) ListByIDs(_ context.Context, userIDs []string) ([]user.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]user.User, 0, len(userIDs))
	for _, userID := range userIDs {
		u, ok := r.store.users[userID]
		if !ok {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *UserRepository) ListAll(_ context.Context) ([]user.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]user.User, 0, len(r.store.users))
	for _, u := range r.store.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
