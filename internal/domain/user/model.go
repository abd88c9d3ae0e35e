package user

import "time"

// User carries denormalized totals that always equal the sums over the user's
// settled (WIN/LOSS) picks.
type User struct {
	ID          string
	Username    string
	IsAdmin     bool
	TotalScore  int
	TotalWins   int
	TotalLosses int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TotalsDelta is a signed change to a user's totals.
type TotalsDelta struct {
	Points int
	Wins   int
	Losses int
}

func (d TotalsDelta) IsZero() bool {
	return d.Points == 0 && d.Wins == 0 && d.Losses == 0
}

func (d TotalsDelta) Add(other TotalsDelta) TotalsDelta {
	return TotalsDelta{
		Points: d.Points + other.Points,
		Wins:   d.Wins + other.Wins,
		Losses: d.Losses + other.Losses,
	}
}

func (d TotalsDelta) Negate() TotalsDelta {
	return TotalsDelta{Points: -d.Points, Wins: -d.Wins, Losses: -d.Losses}
}

// Apply returns u with d added to its totals.
func (u User) Apply(d TotalsDelta) User {
	u.TotalScore += d.Points
	u.TotalWins += d.Wins
	u.TotalLosses += d.Losses
	return u
}

// Totals returns the user's denormalized totals as a delta from zero.
func (u User) Totals() TotalsDelta {
	return TotalsDelta{Points: u.TotalScore, Wins: u.TotalWins, Losses: u.TotalLosses}
}
