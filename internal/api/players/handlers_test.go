package players

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/codr1/ShotSpot/internal/api/authz"
	"github.com/codr1/ShotSpot/internal/store"
	"github.com/codr1/ShotSpot/internal/testutil"
)

func TestPlayerLifecycle(t *testing.T) {
	database := testutil.NewTestDB(t)
	prev := queries
	t.Cleanup(func() { queries = prev })
	InitHandlers(database)

	coach := testutil.SeedUser(t, database.Queries, "coach", authz.RoleCoach)
	club := testutil.SeedClub(t, database.Queries, "KC Dijlevallei")
	team := testutil.SeedTeam(t, database.Queries, club.ID, "Dijlevallei 1")
	other := testutil.SeedClub(t, database.Queries, "Boeckenberg KC")
	otherTeam := testutil.SeedTeam(t, database.Queries, other.ID, "Boeckenberg 1")

	clubID := strconv.FormatInt(club.ID, 10)
	teamID := strconv.FormatInt(team.ID, 10)

	body := `{"clubId":` + clubID + `,"teamId":` + teamID + `,"firstName":"Lotte","lastName":"Peeters","jerseyNumber":0,"gender":"female"}`
	rec := testutil.Call(t, "POST /api/players", HandleCreatePlayer, "/api/players", body, coach)
	testutil.ExpectStatus(t, rec, http.StatusCreated)
	player := testutil.Decode[PlayerResponse](t, rec)
	if player.JerseyNumber != 0 || !player.IsActive {
		t.Fatalf("unexpected player: %+v", player)
	}

	rec = testutil.Call(t, "POST /api/players", HandleCreatePlayer, "/api/players",
		`{"clubId":`+clubID+`,"teamId":`+teamID+`,"firstName":"Jana","lastName":"Claes","jerseyNumber":0}`, coach)
	testutil.ExpectStatus(t, rec, http.StatusConflict)

	rec = testutil.Call(t, "POST /api/players", HandleCreatePlayer, "/api/players",
		`{"clubId":`+clubID+`,"teamId":`+strconv.FormatInt(otherTeam.ID, 10)+`,"firstName":"Jana","lastName":"Claes","jerseyNumber":4}`, coach)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)

	rec = testutil.Call(t, "POST /api/players", HandleCreatePlayer, "/api/players",
		`{"clubId":`+clubID+`,"firstName":"Jana","lastName":"Claes","jerseyNumber":100}`, coach)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)

	rec = testutil.Call(t, "POST /api/players", HandleCreatePlayer, "/api/players",
		`{"clubId":`+clubID+`,"firstName":"Jana","lastName":"Claes"}`, coach)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)

	id := strconv.FormatInt(player.ID, 10)
	rec = testutil.Call(t, "PUT /api/players/{id}", HandleUpdatePlayer, "/api/players/"+id,
		`{"clubId":`+clubID+`,"teamId":`+teamID+`,"firstName":"Lotte","lastName":"Peeters","jerseyNumber":7,"isActive":false}`, coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	if got := testutil.Decode[PlayerResponse](t, rec); got.JerseyNumber != 7 || got.IsActive {
		t.Fatalf("unexpected update: %+v", got)
	}

	rec = testutil.Call(t, "GET /api/players", HandleListPlayers, "/api/players?club_id="+clubID+"&active=true", "", coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	list := testutil.Decode[struct {
		Players []PlayerResponse `json:"players"`
	}](t, rec)
	if len(list.Players) != 0 {
		t.Fatalf("active players: got %d", len(list.Players))
	}

	rec = testutil.Call(t, "GET /api/players", HandleListPlayers, "/api/players?active=false&search=lot", "", coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	list = testutil.Decode[struct {
		Players []PlayerResponse `json:"players"`
	}](t, rec)
	if len(list.Players) != 1 || list.Players[0].ID != player.ID {
		t.Fatalf("inactive players: %+v", list.Players)
	}

	rec = testutil.Call(t, "DELETE /api/players/{id}", HandleDeletePlayer, "/api/players/"+id, "", coach)
	testutil.ExpectStatus(t, rec, http.StatusNoContent)
	rec = testutil.Call(t, "GET /api/players/{id}", HandleGetPlayer, "/api/players/"+id, "", coach)
	testutil.ExpectStatus(t, rec, http.StatusNotFound)
}

func TestPlayerStatsAndDeleteGuard(t *testing.T) {
	database := testutil.NewTestDB(t)
	prev := queries
	t.Cleanup(func() { queries = prev })
	InitHandlers(database)

	ctx := context.Background()
	q := database.Queries
	coach := testutil.SeedUser(t, q, "coach", authz.RoleCoach)
	home := testutil.SeedTeam(t, q, testutil.SeedClub(t, q, "Home KC").ID, "Home 1")
	away := testutil.SeedTeam(t, q, testutil.SeedClub(t, q, "Away KC").ID, "Away 1")
	shooter := testutil.SeedPlayers(t, q, home.ClubID, home.ID, 1)[0]
	game := testutil.SeedGame(t, q, home, away)

	for _, result := range []string{"goal", "miss", "goal", "blocked"} {
		if _, err := q.CreateShot(ctx, store.CreateShotParams{
			GameID:               game.ID,
			PlayerID:             shooter.ID,
			ClubID:               home.ClubID,
			XCoord:               30,
			YCoord:               40,
			Result:               result,
			Period:               1,
			TimeRemainingSeconds: 1200,
		}); err != nil {
			t.Fatalf("create shot: %v", err)
		}
	}

	id := strconv.FormatInt(shooter.ID, 10)
	rec := testutil.Call(t, "GET /api/players/{id}/stats", HandlePlayerStats, "/api/players/"+id+"/stats", "", coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	stats := testutil.Decode[statsResponse](t, rec)
	if stats.Shots != 4 || stats.Goals != 2 || stats.Misses != 1 || stats.Blocked != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Accuracy != 50 || stats.GamesPlayed != 1 {
		t.Fatalf("accuracy %v games %d", stats.Accuracy, stats.GamesPlayed)
	}

	rec = testutil.Call(t, "GET /api/players/{id}/achievements", HandlePlayerAchievements, "/api/players/"+id+"/achievements", "", coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)

	rec = testutil.Call(t, "DELETE /api/players/{id}", HandleDeletePlayer, "/api/players/"+id, "", coach)
	testutil.ExpectStatus(t, rec, http.StatusConflict)

	rec = testutil.Call(t, "GET /api/players/{id}/stats", HandlePlayerStats, "/api/players/9999/stats", "", coach)
	testutil.ExpectStatus(t, rec, http.StatusNotFound)
}

func TestAccuracy(t *testing.T) {
	cases := []struct {
		goals, shots int64
		want         float64
	}{
		{0, 0, 0},
		{2, 3, 66.7},
		{1, 8, 12.5},
		{5, 5, 100},
	}
	for _, tc := range cases {
		if got := Accuracy(tc.goals, tc.shots); got != tc.want {
			t.Fatalf("Accuracy(%d, %d) = %v, want %v", tc.goals, tc.shots, got, tc.want)
		}
	}
}
