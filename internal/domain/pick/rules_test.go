package pick

import (
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/touchdown-picks/internal/domain/user"
)

func TestScore(t *testing.T) {
	t.Parallel()

	scorers := []string{"p1", "p2"}
	tests := []struct {
		name     string
		playerID string
		first    string
		all      []string
		want     Outcome
	}{
		{name: "first and anytime", playerID: "p1", first: "p1", all: scorers, want: Outcome{Status: StatusWin, FTDPoints: 3, ATTDPoints: 1, TotalPoints: 4}},
		{name: "anytime only", playerID: "p2", first: "p1", all: scorers, want: Outcome{Status: StatusWin, ATTDPoints: 1, TotalPoints: 1}},
		{name: "non scorer", playerID: "p3", first: "p1", all: scorers, want: Outcome{Status: StatusLoss}},
		{name: "zero touchdown game", playerID: "p1", first: "", all: nil, want: Outcome{Status: StatusLoss}},
		{name: "blank player", playerID: "", first: "", all: []string{""}, want: Outcome{Status: StatusLoss}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Score(tc.playerID, tc.first, tc.all)
			if got != tc.want {
				t.Fatalf("unexpected outcome: got=%+v want=%+v", got, tc.want)
			}
			if got.TotalPoints != got.FTDPoints+got.ATTDPoints {
				t.Fatalf("total must equal ftd+attd: %+v", got)
			}
		})
	}
}

func TestValidateOutcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    Status
		ftd       int
		attd      int
		targetErr error
	}{
		{name: "win full", status: StatusWin, ftd: 3, attd: 1},
		{name: "loss zero", status: StatusLoss},
		{name: "void zero", status: StatusVoid},
		{name: "bad status", status: "DRAW", targetErr: ErrInvalidStatus},
		{name: "bad ftd", status: StatusWin, ftd: 2, targetErr: ErrInvalidPoints},
		{name: "bad attd", status: StatusWin, attd: 3, targetErr: ErrInvalidPoints},
		{name: "void with points", status: StatusVoid, attd: 1, targetErr: ErrUnsettledPoints},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ValidateOutcome(tc.status, tc.ftd, tc.attd)
			if tc.targetErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.targetErr != nil && !errors.Is(err, tc.targetErr) {
				t.Fatalf("unexpected error: got=%v want=%v", err, tc.targetErr)
			}
		})
	}
}

func TestSettlementDelta(t *testing.T) {
	t.Parallel()

	pending := Pick{Status: StatusPending}
	loss := Pick{Status: StatusLoss}
	win4 := Pick{Status: StatusWin, FTDPoints: 3, ATTDPoints: 1, TotalPoints: 4}
	win1 := Pick{Status: StatusWin, ATTDPoints: 1, TotalPoints: 1}
	void := Pick{Status: StatusVoid}

	tests := []struct {
		name   string
		before Pick
		after  Pick
		want   user.TotalsDelta
	}{
		{name: "pending to win", before: pending, after: win4, want: user.TotalsDelta{Points: 4, Wins: 1}},
		{name: "pending to loss", before: pending, after: loss, want: user.TotalsDelta{Losses: 1}},
		{name: "loss to win override", before: loss, after: win4, want: user.TotalsDelta{Points: 4, Wins: 1, Losses: -1}},
		{name: "win to smaller win", before: win4, after: win1, want: user.TotalsDelta{Points: -3}},
		{name: "win to void", before: win1, after: void, want: user.TotalsDelta{Points: -1, Wins: -1}},
		{name: "void to pending", before: void, after: pending, want: user.TotalsDelta{}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := SettlementDelta(tc.before, tc.after); got != tc.want {
				t.Fatalf("unexpected delta: got=%+v want=%+v", got, tc.want)
			}
		})
	}
}

func TestPickApply(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 9, 8, 4, 0, 0, 0, time.UTC)
	graded := Pick{ID: "pk1", Status: StatusPending}.Apply(Outcome{Status: StatusWin, FTDPoints: 3, ATTDPoints: 1, TotalPoints: 4}, at)
	if graded.ScoredAt == nil || !graded.ScoredAt.Equal(at) {
		t.Fatalf("expected scored_at stamp, got %v", graded.ScoredAt)
	}

	reopened := graded.Apply(Outcome{Status: StatusPending}, at.Add(time.Hour))
	if reopened.ScoredAt != nil || reopened.TotalPoints != 0 {
		t.Fatalf("pending outcome must clear score: %+v", reopened)
	}
}

func TestTotals(t *testing.T) {
	t.Parallel()

	got := Totals([]Pick{
		{Status: StatusWin, TotalPoints: 4},
		{Status: StatusLoss},
		{Status: StatusPending, TotalPoints: 0},
		{Status: StatusWin, TotalPoints: 1},
	})
	want := user.TotalsDelta{Points: 5, Wins: 2, Losses: 1}
	if got != want {
		t.Fatalf("unexpected totals: got=%+v want=%+v", got, want)
	}
}
