package game

import (
	"reflect"
	"testing"
	"time"
)

func TestNormalizeScorers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		first string
		all   []string
		want  []string
	}{
		{name: "empty", first: "", all: nil, want: []string{}},
		{name: "dedupe keeps order", first: "p1", all: []string{"p2", "p1", " p2 ", "p3"}, want: []string{"p1", "p2", "p3"}},
		{name: "first prepended when absent", first: "p9", all: []string{"p2"}, want: []string{"p9", "p2"}},
		{name: "blank ids dropped", first: "", all: []string{"", "  ", "p4"}, want: []string{"p4"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := NormalizeScorers(tc.first, tc.all)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("unexpected scorers: got=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestGame_IsLocked(t *testing.T) {
	t.Parallel()

	kickoff := time.Date(2025, 9, 7, 17, 0, 0, 0, time.UTC)
	g := Game{KickoffAt: kickoff}
	if g.IsLocked(kickoff.Add(-time.Second)) {
		t.Fatalf("game must be open before kickoff")
	}
	if !g.IsLocked(kickoff) {
		t.Fatalf("game must lock at kickoff")
	}
}

func TestNormalizeStatus(t *testing.T) {
	t.Parallel()

	cases := map[string]Status{
		"final":       StatusCompleted,
		"COMPLETED":   StatusCompleted,
		"in_progress": StatusInProgress,
		"postponed":   StatusSuspended,
		"":            StatusScheduled,
	}
	for raw, want := range cases {
		if got := NormalizeStatus(raw); got != want {
			t.Fatalf("unexpected status for %q: got=%s want=%s", raw, got, want)
		}
	}
}
