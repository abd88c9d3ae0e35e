package memory

import (
	"github.com/riskibarqy/touchdown-picks/internal/domain/user"
)

const (
	UserIDAdmin = "user-admin"
	UserIDDemo  = "user-demo"
)

// SeedDev is the content used when the worker runs without a database.
// Reference data arrives through import jobs.
func SeedDev() Seed {
	return Seed{
		Users: []user.User{
			{ID: UserIDAdmin, Username: "admin", IsAdmin: true},
			{ID: UserIDDemo, Username: "demo"},
		},
	}
}
