package achievements

import (
	"context"
	"testing"

	"github.com/codr1/ShotSpot/internal/store"
	"github.com/codr1/ShotSpot/internal/testutil"
)

func TestQualifies(t *testing.T) {
	tests := []struct {
		name string
		def  store.Achievement
		m    PlayerMetrics
		want bool
	}{
		{"goals met", store.Achievement{Metric: MetricGoalsInGame, Threshold: 3}, PlayerMetrics{Shots: 6, Goals: 3}, true},
		{"goals short", store.Achievement{Metric: MetricGoalsInGame, Threshold: 3}, PlayerMetrics{Shots: 6, Goals: 2}, false},
		{"accuracy met", store.Achievement{Metric: MetricAccuracyInGame, Threshold: 60, MinShots: 8}, PlayerMetrics{Shots: 10, Goals: 6}, true},
		{"accuracy below min shots", store.Achievement{Metric: MetricAccuracyInGame, Threshold: 60, MinShots: 8}, PlayerMetrics{Shots: 5, Goals: 5}, false},
		{"accuracy no shots", store.Achievement{Metric: MetricAccuracyInGame, Threshold: 50}, PlayerMetrics{}, false},
		{"career ignores min shots", store.Achievement{Metric: MetricCareerGoals, Threshold: 100, MinShots: 8}, PlayerMetrics{CareerGoals: 120}, true},
		{"games played", store.Achievement{Metric: MetricGamesPlayed, Threshold: 50}, PlayerMetrics{GamesPlayed: 49}, false},
		{"unknown metric", store.Achievement{Metric: "assists", Threshold: 1}, PlayerMetrics{Goals: 10}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Qualifies(tc.def, tc.m); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestEvaluateAwardsOncePerGame(t *testing.T) {
	database := testutil.NewTestDB(t)
	q := database.Queries
	ctx := context.Background()

	home := testutil.SeedClub(t, q, "KC Dijlevallei")
	away := testutil.SeedClub(t, q, "Boeckenberg KC")
	homeTeam := testutil.SeedTeam(t, q, home.ID, "Dijlevallei 1")
	awayTeam := testutil.SeedTeam(t, q, away.ID, "Boeckenberg 1")
	players := testutil.SeedPlayers(t, q, home.ID, homeTeam.ID, 2)
	game := testutil.SeedGame(t, q, homeTeam, awayTeam)

	for i := 0; i < 5; i++ {
		if _, err := q.CreateShot(ctx, store.CreateShotParams{
			GameID: game.ID, PlayerID: players[0].ID, ClubID: home.ID,
			XCoord: 50, YCoord: 20, Result: "goal", Period: 1, TimeRemainingSeconds: 1200,
		}); err != nil {
			t.Fatalf("create shot: %v", err)
		}
	}
	if _, err := q.CreateShot(ctx, store.CreateShotParams{
		GameID: game.ID, PlayerID: players[1].ID, ClubID: home.ID,
		XCoord: 40, YCoord: 30, Result: "miss", Period: 1, TimeRemainingSeconds: 1100,
	}); err != nil {
		t.Fatalf("create shot: %v", err)
	}

	awards, err := Evaluate(ctx, q, game)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	names := map[string]bool{}
	for _, award := range awards {
		if award.PlayerID != players[0].ID {
			t.Fatalf("unexpected award for player %d: %s", award.PlayerID, award.AchievementName)
		}
		names[award.AchievementName] = true
	}
	if !names["Sharpshooter"] || !names["Hat Trick"] || len(names) != 2 {
		t.Fatalf("unexpected awards: %v", names)
	}

	again, err := Evaluate(ctx, q, game)
	if err != nil {
		t.Fatalf("re-evaluate: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no new awards, got %d", len(again))
	}
}
