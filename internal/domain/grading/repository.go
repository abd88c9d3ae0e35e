package grading

import "context"

// Repository runs grading mutations as single transactional units. Both
// methods report found=false when the target row does not exist.
type Repository interface {
	GradeGame(ctx context.Context, gameID string, fn GradeFunc) (Result, bool, error)
	OverridePick(ctx context.Context, pickID string, fn OverrideFunc) (Result, bool, error)
}
