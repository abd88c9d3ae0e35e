package team

import "time"

// Team is reference data keyed by the provider's external id.
type Team struct {
	ID           string
	ExternalID   string
	Name         string
	Abbreviation string
	City         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
