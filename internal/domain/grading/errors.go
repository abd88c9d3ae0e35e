package grading

import (
	"fmt"

	"github.com/riskibarqy/touchdown-picks/internal/domain/game"
)

type NotCompletedError struct {
	GameID string
	Status game.Status
}

func (e *NotCompletedError) Error() string {
	return fmt.Sprintf("game %s is not completed (status=%s)", e.GameID, e.Status)
}
