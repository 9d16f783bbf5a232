package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/codr1/ShotSpot/internal/db"
	"github.com/codr1/ShotSpot/internal/store"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// SeedClub inserts a club with the given name.
func SeedClub(t *testing.T, q *store.Queries, name string) store.Club {
	t.Helper()
	club, err := q.CreateClub(context.Background(), store.CreateClubParams{Name: name})
	if err != nil {
		t.Fatalf("seed club %q: %v", name, err)
	}
	return club
}

func SeedTeam(t *testing.T, q *store.Queries, clubID int64, name string) store.Team {
	t.Helper()
	team, err := q.CreateTeam(context.Background(), store.CreateTeamParams{
		ClubID: clubID,
		Name:   name,
		Season: "2025-2026",
	})
	if err != nil {
		t.Fatalf("seed team %q: %v", name, err)
	}
	return team
}

// SeedPlayers inserts count players on the team with jerseys 1..count.
func SeedPlayers(t *testing.T, q *store.Queries, clubID, teamID int64, count int) []store.Player {
	t.Helper()
	players := make([]store.Player, 0, count)
	for i := 1; i <= count; i++ {
		player, err := q.CreatePlayer(context.Background(), store.CreatePlayerParams{
			ClubID:       clubID,
			TeamID:       sql.NullInt64{Int64: teamID, Valid: true},
			FirstName:    fmt.Sprintf("Player%d", i),
			LastName:     fmt.Sprintf("Team%d", teamID),
			JerseyNumber: int64(i),
			IsActive:     true,
		})
		if err != nil {
			t.Fatalf("seed player %d: %v", i, err)
		}
		players = append(players, player)
	}
	return players
}

// SeedGame schedules a game between two clubs and their teams.
func SeedGame(t *testing.T, q *store.Queries, home, away store.Team) store.Game {
	t.Helper()
	game, err := q.CreateGame(context.Background(), store.CreateGameParams{
		HomeClubID:            home.ClubID,
		AwayClubID:            away.ClubID,
		HomeTeamID:            sql.NullInt64{Int64: home.ID, Valid: true},
		AwayTeamID:            sql.NullInt64{Int64: away.ID, Valid: true},
		ScheduledAt:           time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC),
		Location:              "Sporthal De Kouter",
		NumberOfPeriods:       2,
		PeriodDurationSeconds: 1500,
	})
	if err != nil {
		t.Fatalf("seed game: %v", err)
	}
	return game
}

// SeedUser inserts an active user. The password hash is not a real bcrypt
// hash, so use auth.HashPassword when a login is needed.
func SeedUser(t *testing.T, q *store.Queries, username, role string) store.User {
	t.Helper()
	user, err := q.CreateUser(context.Background(), store.CreateUserParams{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "unused",
		Role:         role,
	})
	if err != nil {
		t.Fatalf("seed user %q: %v", username, err)
	}
	return user
}
