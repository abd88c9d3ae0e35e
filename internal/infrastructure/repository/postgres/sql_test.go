package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/riskibarqy/touchdown-picks/internal/domain/game"
	"github.com/riskibarqy/touchdown-picks/internal/domain/importjob"
)

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("create pick: %w", &pq.Error{Code: uniqueViolationCode, Constraint: constraintPickUserGame})

	t.Run("matches named constraint", func(t *testing.T) {
		if !isUniqueViolation(wrapped, constraintPickUserGame) {
			t.Fatalf("expected true for pick constraint")
		}
	})

	t.Run("matches any constraint when empty", func(t *testing.T) {
		if !isUniqueViolation(wrapped, "") {
			t.Fatalf("expected true with empty constraint")
		}
	})

	t.Run("ignores other constraint", func(t *testing.T) {
		if isUniqueViolation(wrapped, constraintOneRunningPerSeason) {
			t.Fatalf("expected false for different constraint")
		}
	})

	t.Run("ignores other codes", func(t *testing.T) {
		err := &pq.Error{Code: "23503", Constraint: constraintPickUserGame}
		if isUniqueViolation(err, constraintPickUserGame) {
			t.Fatalf("expected false for foreign key violation")
		}
	})

	t.Run("ignores plain errors", func(t *testing.T) {
		if isUniqueViolation(errors.New("boom"), "") {
			t.Fatalf("expected false for plain error")
		}
	})
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	if !isNotFound(fmt.Errorf("get game: %w", sql.ErrNoRows)) {
		t.Fatalf("expected wrapped sql.ErrNoRows to be not found")
	}
	if isNotFound(errors.New("connection reset")) {
		t.Fatalf("expected unrelated error to be found")
	}
}

func TestNullHelpers(t *testing.T) {
	t.Parallel()

	if got := nullString(""); got.Valid {
		t.Fatalf("expected empty string to be null")
	}
	if got := nullString("p1"); !got.Valid || got.String != "p1" {
		t.Fatalf("unexpected null string: %+v", got)
	}

	if got := intPtr(nullInt(nil)); got != nil {
		t.Fatalf("expected nil int, got=%v", *got)
	}
	score := 0
	got := intPtr(nullInt(&score))
	if got == nil || *got != 0 {
		t.Fatalf("expected zero score to survive, got=%v", got)
	}

	if ts := timePtr(nullTime(nil)); ts != nil {
		t.Fatalf("expected nil time, got=%v", ts)
	}
	local := time.Date(2025, 9, 7, 13, 0, 0, 0, time.FixedZone("EST", -5*3600))
	ts := timePtr(nullTime(&local))
	if ts == nil || !ts.Equal(local) || ts.Location() != time.UTC {
		t.Fatalf("unexpected time: got=%v want=%v in UTC", ts, local)
	}

	if out := stringSlice(nil); out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil slice, got=%v", out)
	}
}

func TestGameRowRoundTrip(t *testing.T) {
	t.Parallel()

	kickoff := time.Date(2025, 9, 7, 17, 0, 0, 0, time.UTC)
	scoredAt := kickoff.Add(4 * time.Hour)
	home, away := 24, 17
	in := game.Game{
		ID:               "g1",
		ExternalID:       "nfl-1",
		Season:           2025,
		Week:             1,
		HomeTeamID:       "t1",
		AwayTeamID:       "t2",
		KickoffAt:        kickoff,
		Status:           game.StatusCompleted,
		HomeScore:        &home,
		AwayScore:        &away,
		FirstTDScorerID:  "p1",
		AllTDScorerIDs:   []string{"p1", "p2"},
		ScoredAt:         &scoredAt,
		IsManuallyScored: true,
		CreatedAt:        kickoff.Add(-time.Hour),
		UpdatedAt:        scoredAt,
	}

	out := gameRow(in).toDomain()
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("unexpected game: got=%+v want=%+v", out, in)
	}

	scheduled := gameRow(game.Game{ID: "g2", Status: game.StatusScheduled, KickoffAt: kickoff})
	if scheduled.HomeScore.Valid || scheduled.FirstTDScorerID.Valid || scheduled.ScoredAt.Valid {
		t.Fatalf("expected null result columns for scheduled game: %+v", scheduled)
	}
	if scheduled.AllTDScorerIDs == nil {
		t.Fatalf("expected empty scorer array, got nil")
	}
}

func TestImportJobRowRoundTrip(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 9, 8, 6, 0, 0, 0, time.UTC)
	started := created.Add(time.Second)
	in := importjob.Job{
		ID:         "job-1",
		Season:     2025,
		Weeks:      []int{1, 2},
		GradeGames: true,
		Status:     importjob.StatusRunning,
		Stats: importjob.Stats{
			GamesProcessed: 3,
			TotalGames:     16,
			GamesGraded:    2,
			PicksGraded:    11,
		},
		Errors:          []string{"game nfl-9: invalid result data: missing scores"},
		CreatedByUserID: "user-admin",
		CreatedAt:       created,
		StartedAt:       &started,
		UpdatedAt:       started,
	}

	row, err := importJobRow(in)
	if err != nil {
		t.Fatalf("importJobRow error: %v", err)
	}
	out, err := row.toDomain()
	if err != nil {
		t.Fatalf("toDomain error: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("unexpected job: got=%+v want=%+v", out, in)
	}

	empty, err := importJobRow(importjob.Job{ID: "job-2", Status: importjob.StatusPending})
	if err != nil {
		t.Fatalf("importJobRow error: %v", err)
	}
	if empty.Errors == nil || len(empty.Weeks) != 0 {
		t.Fatalf("unexpected empty row arrays: errors=%v weeks=%v", empty.Errors, empty.Weeks)
	}
}

func TestImportJobRowRejectsBadStats(t *testing.T) {
	t.Parallel()

	row := importJobTableModel{ID: "job-3", Status: string(importjob.StatusFailed), Stats: "{not json"}
	if _, err := row.toDomain(); err == nil {
		t.Fatalf("expected decode error for malformed stats")
	}
}
