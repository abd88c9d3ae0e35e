package leaderboard

// Entry is one ranked row. Equal totals share Rank; IsTied marks an entry
// tied with the one directly above it.
type Entry struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	TotalPoints int    `json:"total_points"`
	FTDPoints   int    `json:"ftd_points"`
	ATTDPoints  int    `json:"attd_points"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
	Rank        int    `json:"rank"`
	IsTied      bool   `json:"is_tied"`
}

// Discrepancy is a user whose stored totals disagree with their picks.
type Discrepancy struct {
	UserID         string
	Username       string
	StoredPoints   int
	ComputedPoints int
	StoredWins     int
	ComputedWins   int
	StoredLosses   int
	ComputedLosses int
}
