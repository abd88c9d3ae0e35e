package usecase

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/touchdown-picks/internal/domain/user"
)

var inputValidator = validator.New(validator.WithRequiredStructEnabled())

func validateInput(ctx context.Context, payload any) error {
	if err := inputValidator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", ErrInvalidInput, err)
	}
	return nil
}

// requireAdmin loads actorID and rejects non-admins.
func requireAdmin(ctx context.Context, users user.Repository, actorID string) (user.User, error) {
	actor, found, err := users.GetByID(ctx, actorID)
	if err != nil {
		return user.User{}, fmt.Errorf("get actor user: %w", err)
	}
	if !found || !actor.IsAdmin {
		return user.User{}, fmt.Errorf("%w: admin privileges required", ErrUnauthorized)
	}
	return actor, nil
}
