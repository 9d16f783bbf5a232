package leagues

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/codr1/ShotSpot/internal/store"
	"github.com/codr1/ShotSpot/internal/testutil"
)

func TestSeedOrder(t *testing.T) {
	got := seedOrder(8)
	want := []int{1, 8, 4, 5, 2, 7, 3, 6}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("seed order: got %v want %v", got, want)
	}
}

func TestRoundName(t *testing.T) {
	tests := []struct {
		round  int
		rounds int
		want   string
	}{
		{round: 3, rounds: 3, want: "Final"},
		{round: 2, rounds: 3, want: "Semi-final"},
		{round: 1, rounds: 3, want: "Quarter-final"},
		{round: 1, rounds: 4, want: "Round of 16"},
	}
	for _, tc := range tests {
		if got := RoundName(tc.round, tc.rounds); got != tc.want {
			t.Fatalf("round %d of %d: got %q want %q", tc.round, tc.rounds, got, tc.want)
		}
	}
}

func TestPlanBracketGivesTopSeedsByes(t *testing.T) {
	teams := []store.CompetitionTeam{
		{TeamID: 10, Seed: sql.NullInt64{Int64: 2, Valid: true}},
		{TeamID: 11},
		{TeamID: 12, Seed: sql.NullInt64{Int64: 1, Valid: true}},
		{TeamID: 13},
		{TeamID: 14, Seed: sql.NullInt64{Int64: 3, Valid: true}},
	}

	plan, err := PlanBracket(teams)
	if err != nil {
		t.Fatalf("plan bracket: %v", err)
	}
	// 5 teams -> 8-slot bracket: 4 + 2 + 1 matches.
	if len(plan) != 7 {
		t.Fatalf("matches: got %d want 7", len(plan))
	}

	first := plan[0]
	if first.Home == nil || *first.Home != 12 || first.Away != nil || !first.IsBye {
		t.Fatalf("seed 1 should have a bye, got %+v", first)
	}
	byes := 0
	for _, m := range plan {
		if m.Round == 1 && m.IsBye {
			byes++
		}
	}
	if byes != 3 {
		t.Fatalf("byes: got %d want 3", byes)
	}
	if plan[len(plan)-1].RoundName != "Final" {
		t.Fatalf("last match: got %q want Final", plan[len(plan)-1].RoundName)
	}
}

func TestPlanBracketRequiresTwoTeams(t *testing.T) {
	if _, err := PlanBracket([]store.CompetitionTeam{{TeamID: 1}}); !errors.Is(err, ErrNotEnoughTeams) {
		t.Fatalf("expected ErrNotEnoughTeams, got %v", err)
	}
}

func TestGenerateBracketAndAdvance(t *testing.T) {
	database := testutil.NewTestDB(t)
	q := database.Queries
	ctx := context.Background()

	competition, err := q.CreateCompetition(ctx, store.CompetitionParams{
		Name:            "Spring Cup",
		CompetitionType: "tournament",
		Status:          "in_progress",
		PointsWin:       2,
		PointsDraw:      1,
	})
	if err != nil {
		t.Fatalf("create competition: %v", err)
	}

	var teamIDs []int64
	for i, name := range []string{"Antwerp KC", "Ghent KC", "Leuven KC"} {
		team := testutil.SeedTeam(t, q, testutil.SeedClub(t, q, name).ID, "A1")
		seed := sql.NullInt64{Int64: int64(i + 1), Valid: true}
		if err := q.AddCompetitionTeam(ctx, competition.ID, team.ID, seed); err != nil {
			t.Fatalf("add team: %v", err)
		}
		teamIDs = append(teamIDs, team.ID)
	}

	brackets, err := GenerateBracket(ctx, q, competition.ID)
	if err != nil {
		t.Fatalf("generate bracket: %v", err)
	}
	if len(brackets) != 3 {
		t.Fatalf("brackets: got %d want 3", len(brackets))
	}

	final := brackets[2]
	if !final.HomeTeamID.Valid || final.HomeTeamID.Int64 != teamIDs[0] {
		t.Fatalf("seed 1 should be advanced into the final, got %+v", final.HomeTeamID)
	}

	semi := brackets[1]
	if semi.IsBye {
		t.Fatalf("second semi-final should be a real match")
	}
	if _, err := AdvanceWinner(ctx, q, semi.ID, 9999); !errors.Is(err, ErrInvalidWinner) {
		t.Fatalf("expected ErrInvalidWinner, got %v", err)
	}
	if _, err := AdvanceWinner(ctx, q, semi.ID, teamIDs[2]); err != nil {
		t.Fatalf("advance semi-final: %v", err)
	}

	if _, err := GenerateBracket(ctx, q, competition.ID); !errors.Is(err, ErrBracketHasResults) {
		t.Fatalf("expected ErrBracketHasResults, got %v", err)
	}

	if _, err := AdvanceWinner(ctx, q, final.ID, teamIDs[2]); err != nil {
		t.Fatalf("advance final: %v", err)
	}
	updated, err := q.GetCompetition(ctx, competition.ID)
	if err != nil {
		t.Fatalf("get competition: %v", err)
	}
	if updated.Status != "completed" {
		t.Fatalf("competition status: got %q want completed", updated.Status)
	}
}
