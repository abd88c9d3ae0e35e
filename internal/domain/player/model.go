package player

import "time"

type Player struct {
	ID           string
	ExternalID   string
	TeamID       string
	Name         string
	Position     string
	JerseyNumber int
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
