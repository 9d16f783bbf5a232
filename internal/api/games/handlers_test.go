package games

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/codr1/ShotSpot/internal/api/authz"
	appdb "github.com/codr1/ShotSpot/internal/db"
	"github.com/codr1/ShotSpot/internal/livefeed"
	"github.com/codr1/ShotSpot/internal/store"
	"github.com/codr1/ShotSpot/internal/testutil"
)

type fixture struct {
	db     *appdb.DB
	clock  *clockwork.FakeClock
	broker *livefeed.Broker
	coach  store.User
	home   store.Team
	away   store.Team
}

func setup(t *testing.T) fixture {
	t.Helper()
	testDB := testutil.NewTestDB(t)
	prevDB, prevFeed, prevClock := database, feed, gameClock
	t.Cleanup(func() {
		database = prevDB
		feed = prevFeed
		gameClock = prevClock
	})

	fake := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC))
	broker := livefeed.NewBroker()
	t.Cleanup(broker.Close)
	InitHandlers(testDB, broker, fake)

	q := testDB.Queries
	return fixture{
		db:     testDB,
		clock:  fake,
		broker: broker,
		coach:  testutil.SeedUser(t, q, "coach", authz.RoleCoach),
		home:   testutil.SeedTeam(t, q, testutil.SeedClub(t, q, "KC Dijlevallei").ID, "Dijlevallei 1"),
		away:   testutil.SeedTeam(t, q, testutil.SeedClub(t, q, "Boeckenberg KC").ID, "Boeckenberg 1"),
	}
}

func gamePath(id int64, suffix string) string {
	return "/api/games/" + strconv.FormatInt(id, 10) + suffix
}

func TestCreateAndUpdateGame(t *testing.T) {
	f := setup(t)
	home := strconv.FormatInt(f.home.ClubID, 10)
	away := strconv.FormatInt(f.away.ClubID, 10)

	rec := testutil.Call(t, "POST /api/games", HandleCreateGame, "/api/games",
		`{"homeClubId":`+home+`,"awayClubId":`+home+`,"scheduledAt":"2026-03-21T14:00:00Z"}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)

	rec = testutil.Call(t, "POST /api/games", HandleCreateGame, "/api/games",
		`{"homeClubId":`+home+`,"awayClubId":`+away+`,"homeTeamId":`+strconv.FormatInt(f.away.ID, 10)+`,"scheduledAt":"2026-03-21T14:00:00Z"}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)

	rec = testutil.Call(t, "POST /api/games", HandleCreateGame, "/api/games",
		`{"homeClubId":`+home+`,"awayClubId":`+away+`,"scheduledAt":"2026-03-21T14:00:00Z","location":"Sporthal"}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusCreated)
	game := testutil.Decode[GameResponse](t, rec)
	if game.Status != StatusScheduled || game.Clock.PeriodDuration != 1500 || game.Clock.NumberOfPeriods != 2 {
		t.Fatalf("unexpected defaults: %+v", game)
	}

	rec = testutil.Call(t, "PUT /api/games/{id}", HandleUpdateGame, gamePath(game.ID, ""),
		`{"homeClubId":`+home+`,"awayClubId":`+away+`,"scheduledAt":"2026-03-28","periodDurationSeconds":600,"numberOfPeriods":4,"status":"to_reschedule"}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	updated := testutil.Decode[GameResponse](t, rec)
	if updated.Status != StatusToReschedule || updated.Clock.RemainingSeconds != 600 || updated.Clock.NumberOfPeriods != 4 {
		t.Fatalf("unexpected update: %+v", updated)
	}

	rec = testutil.Call(t, "PUT /api/games/{id}", HandleUpdateGame, gamePath(game.ID, ""),
		`{"homeClubId":`+away+`,"awayClubId":`+home+`,"scheduledAt":"2026-03-28"}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)

	rec = testutil.Call(t, "GET /api/games", HandleListGames, "/api/games?status=to_reschedule&club_id="+away, "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	list := testutil.Decode[struct {
		Games []GameResponse `json:"games"`
	}](t, rec)
	if len(list.Games) != 1 {
		t.Fatalf("games: got %d", len(list.Games))
	}

	rec = testutil.Call(t, "DELETE /api/games/{id}", HandleDeleteGame, gamePath(game.ID, ""), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusNoContent)
	rec = testutil.Call(t, "GET /api/games/{id}", HandleGetGame, gamePath(game.ID, ""), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusNotFound)
}

func TestGameLifecycleAndClock(t *testing.T) {
	f := setup(t)
	game := testutil.SeedGame(t, f.db.Queries, f.home, f.away)
	sub := f.broker.Subscribe(game.ID)
	defer f.broker.Unsubscribe(sub)

	rec := testutil.Call(t, "POST /api/games/{id}/clock/{action}", HandleClockAction, gamePath(game.ID, "/clock/start"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusConflict)

	rec = testutil.Call(t, "POST /api/games/{id}/start", HandleStartGame, gamePath(game.ID, "/start"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	started := testutil.Decode[GameResponse](t, rec)
	if started.Status != StatusInProgress || started.Clock.State != "stopped" || started.Clock.Period != 1 {
		t.Fatalf("unexpected start: %+v", started)
	}
	select {
	case msg := <-sub.C():
		if msg.Kind != livefeed.KindStatus {
			t.Fatalf("unexpected message kind %q", msg.Kind)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected status message")
	}

	rec = testutil.Call(t, "POST /api/games/{id}/start", HandleStartGame, gamePath(game.ID, "/start"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusConflict)

	rec = testutil.Call(t, "POST /api/games/{id}/clock/{action}", HandleClockAction, gamePath(game.ID, "/clock/start"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)

	f.clock.Advance(90 * time.Second)
	rec = testutil.Call(t, "GET /api/games/{id}/clock", HandleGetClock, gamePath(game.ID, "/clock"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	if got := testutil.Decode[ClockResponse](t, rec); got.State != "running" || got.RemainingSeconds != 1410 || got.Expired {
		t.Fatalf("unexpected running clock: %+v", got)
	}

	rec = testutil.Call(t, "POST /api/games/{id}/clock/{action}", HandleClockAction, gamePath(game.ID, "/clock/pause"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	f.clock.Advance(time.Minute)
	rec = testutil.Call(t, "POST /api/games/{id}/clock/{action}", HandleClockAction, gamePath(game.ID, "/clock/pause"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusConflict)
	rec = testutil.Call(t, "POST /api/games/{id}/clock/{action}", HandleClockAction, gamePath(game.ID, "/clock/sideways"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)

	rec = testutil.Call(t, "POST /api/games/{id}/clock/{action}", HandleClockAction, gamePath(game.ID, "/clock/next-period"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	if got := testutil.Decode[ClockResponse](t, rec); got.Period != 2 || got.RemainingSeconds != 1500 || got.State != "stopped" {
		t.Fatalf("unexpected next period: %+v", got)
	}
	rec = testutil.Call(t, "POST /api/games/{id}/clock/{action}", HandleClockAction, gamePath(game.ID, "/clock/next-period"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusConflict)

	rec = testutil.Call(t, "POST /api/games/{id}/clock/{action}", HandleClockAction, gamePath(game.ID, "/clock/start"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	f.clock.Advance(30 * time.Second)

	rec = testutil.Call(t, "POST /api/games/{id}/end", HandleEndGame, gamePath(game.ID, "/end"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	ended := testutil.Decode[endGameResponse](t, rec)
	if ended.Game.Status != StatusCompleted || ended.Game.Clock.State != "stopped" || ended.Game.Clock.RemainingSeconds != 1470 {
		t.Fatalf("unexpected end: %+v", ended.Game)
	}

	rec = testutil.Call(t, "POST /api/games/{id}/cancel", HandleCancelGame, gamePath(game.ID, "/cancel"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusConflict)
	rec = testutil.Call(t, "DELETE /api/games/{id}", HandleDeleteGame, gamePath(game.ID, ""), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusNoContent)
}

func TestReplaceRoster(t *testing.T) {
	f := setup(t)
	q := f.db.Queries
	game := testutil.SeedGame(t, q, f.home, f.away)
	players := testutil.SeedPlayers(t, q, f.home.ClubID, f.home.ID, 3)
	outsider := testutil.SeedPlayers(t, q, f.away.ClubID, f.away.ID, 1)[0]
	target := gamePath(game.ID, "/roster/"+strconv.FormatInt(f.home.ClubID, 10))
	id := func(p store.Player) string { return strconv.FormatInt(p.ID, 10) }

	rec := testutil.Call(t, "PUT /api/games/{id}/roster/{club_id}", HandleReplaceRoster, target,
		`{"players":[{"playerId":`+id(players[0])+`,"isCaptain":true},{"playerId":`+id(players[1])+`,"isCaptain":true}]}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)

	rec = testutil.Call(t, "PUT /api/games/{id}/roster/{club_id}", HandleReplaceRoster, target,
		`{"players":[{"playerId":`+id(outsider)+`}]}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)

	rec = testutil.Call(t, "PUT /api/games/{id}/roster/{club_id}", HandleReplaceRoster, target,
		`{"players":[{"playerId":`+id(players[0])+`,"isStarting":true,"isCaptain":true,"startingPosition":"offense"},{"playerId":`+id(players[1])+`}]}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)

	rec = testutil.Call(t, "PUT /api/games/{id}/roster/{club_id}", HandleReplaceRoster, target,
		`{"players":[{"playerId":`+id(players[2])+`,"isStarting":true},{"playerId":`+id(players[1])+`,"isCaptain":true}]}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)

	rec = testutil.Call(t, "GET /api/games/{id}/roster", HandleGetRoster, gamePath(game.ID, "/roster"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	roster := testutil.Decode[struct {
		Roster []RosterEntryResponse `json:"roster"`
	}](t, rec)
	if len(roster.Roster) != 2 || roster.Roster[0].PlayerID != players[2].ID || !roster.Roster[1].IsCaptain {
		t.Fatalf("unexpected roster: %+v", roster.Roster)
	}

	other := testutil.SeedClub(t, q, "Neutral KC")
	rec = testutil.Call(t, "PUT /api/games/{id}/roster/{club_id}", HandleReplaceRoster,
		gamePath(game.ID, "/roster/"+strconv.FormatInt(other.ID, 10)), `{"players":[]}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)
}

func TestEndLeagueGameRefreshesStandingsAndAwards(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	q := f.db.Queries

	competition, err := q.CreateCompetition(ctx, store.CompetitionParams{
		Name:            "Eerste Klasse",
		CompetitionType: "league",
		Season:          "2025-2026",
		Status:          "in_progress",
		PointsWin:       2,
		PointsDraw:      1,
	})
	if err != nil {
		t.Fatalf("create competition: %v", err)
	}
	for _, team := range []store.Team{f.home, f.away} {
		if err := q.AddCompetitionTeam(ctx, competition.ID, team.ID, store.NullInt64(nil)); err != nil {
			t.Fatalf("add team: %v", err)
		}
	}

	game, err := q.CreateGame(ctx, store.CreateGameParams{
		HomeClubID:            f.home.ClubID,
		AwayClubID:            f.away.ClubID,
		HomeTeamID:            store.ValidInt64(f.home.ID),
		AwayTeamID:            store.ValidInt64(f.away.ID),
		CompetitionID:         store.ValidInt64(competition.ID),
		ScheduledAt:           f.clock.Now(),
		NumberOfPeriods:       2,
		PeriodDurationSeconds: 1500,
	})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	scorer := testutil.SeedPlayers(t, q, f.home.ClubID, f.home.ID, 1)[0]

	rec := testutil.Call(t, "POST /api/games/{id}/start", HandleStartGame, gamePath(game.ID, "/start"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	for i := 0; i < 3; i++ {
		if _, err := q.CreateShot(ctx, store.CreateShotParams{
			GameID:               game.ID,
			PlayerID:             scorer.ID,
			ClubID:               f.home.ClubID,
			XCoord:               50,
			YCoord:               20,
			Result:               "goal",
			Period:               1,
			TimeRemainingSeconds: 1000,
		}); err != nil {
			t.Fatalf("create shot: %v", err)
		}
	}
	if _, err := q.AdjustGameScore(ctx, game.ID, 3, 1); err != nil {
		t.Fatalf("adjust score: %v", err)
	}

	rec = testutil.Call(t, "POST /api/games/{id}/end", HandleEndGame, gamePath(game.ID, "/end"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	ended := testutil.Decode[endGameResponse](t, rec)
	if len(ended.Awards) != 1 || ended.Awards[0].AchievementName != "Hat Trick" || ended.Awards[0].PlayerID != scorer.ID {
		t.Fatalf("unexpected awards: %+v", ended.Awards)
	}

	standings, err := q.ListStandings(ctx, competition.ID)
	if err != nil {
		t.Fatalf("list standings: %v", err)
	}
	if len(standings) != 2 || standings[0].TeamID != f.home.ID || standings[0].Points != 2 || standings[1].Losses != 1 {
		t.Fatalf("unexpected standings: %+v", standings)
	}
}

// knockoutGame creates a two-team tournament whose final is linked to a
// scheduled game between f.home and f.away.
func (f fixture) knockoutGame(t *testing.T) (store.Competition, store.TournamentBracket, store.Game) {
	t.Helper()
	ctx := context.Background()
	q := f.db.Queries

	cup, err := q.CreateCompetition(ctx, store.CompetitionParams{
		Name:            "Beker van België",
		CompetitionType: "tournament",
		Season:          "2025-2026",
		Status:          "in_progress",
	})
	if err != nil {
		t.Fatalf("create competition: %v", err)
	}
	final, err := q.CreateBracket(ctx, store.CreateBracketParams{
		CompetitionID: cup.ID,
		RoundNumber:   1,
		MatchNumber:   1,
		RoundName:     "Final",
		HomeTeamID:    store.ValidInt64(f.home.ID),
		AwayTeamID:    store.ValidInt64(f.away.ID),
	})
	if err != nil {
		t.Fatalf("create bracket: %v", err)
	}
	game, err := q.CreateGame(ctx, store.CreateGameParams{
		HomeClubID:            f.home.ClubID,
		AwayClubID:            f.away.ClubID,
		HomeTeamID:            store.ValidInt64(f.home.ID),
		AwayTeamID:            store.ValidInt64(f.away.ID),
		CompetitionID:         store.ValidInt64(cup.ID),
		ScheduledAt:           f.clock.Now(),
		NumberOfPeriods:       2,
		PeriodDurationSeconds: 1500,
	})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	if final, err = q.SetBracketGame(ctx, final.ID, store.ValidInt64(game.ID)); err != nil {
		t.Fatalf("link game: %v", err)
	}
	return cup, final, game
}

func TestEndLinkedGameAdvancesWinner(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	q := f.db.Queries
	_, final, game := f.knockoutGame(t)

	rec := testutil.Call(t, "POST /api/games/{id}/start", HandleStartGame, gamePath(game.ID, "/start"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	if _, err := q.AdjustGameScore(ctx, game.ID, 9, 8); err != nil {
		t.Fatalf("adjust score: %v", err)
	}

	rec = testutil.Call(t, "POST /api/games/{id}/end", HandleEndGame, gamePath(game.ID, "/end"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	decided, err := q.GetBracket(ctx, final.ID)
	if err != nil {
		t.Fatalf("load bracket: %v", err)
	}
	if !decided.WinnerTeamID.Valid || decided.WinnerTeamID.Int64 != f.home.ID {
		t.Fatalf("home team should win the final: %+v", decided)
	}
}

func TestEndLinkedGameConflictingWinner(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	q := f.db.Queries
	_, final, game := f.knockoutGame(t)

	// a winner stored before the game finished disagrees with the score
	if _, err := q.SetBracketWinner(ctx, final.ID, f.away.ID); err != nil {
		t.Fatalf("set winner: %v", err)
	}
	rec := testutil.Call(t, "POST /api/games/{id}/start", HandleStartGame, gamePath(game.ID, "/start"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	if _, err := q.AdjustGameScore(ctx, game.ID, 1, 0); err != nil {
		t.Fatalf("adjust score: %v", err)
	}

	rec = testutil.Call(t, "POST /api/games/{id}/end", HandleEndGame, gamePath(game.ID, "/end"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusConflict)
	current, err := q.GetGame(ctx, game.ID)
	if err != nil {
		t.Fatalf("load game: %v", err)
	}
	if current.Status != StatusInProgress {
		t.Fatalf("status: got %q", current.Status)
	}
}

func TestUpdateLinkedGameKeepsTeamsAndCompetition(t *testing.T) {
	f := setup(t)
	cup, _, game := f.knockoutGame(t)
	home := strconv.FormatInt(f.home.ClubID, 10)
	away := strconv.FormatInt(f.away.ClubID, 10)
	teams := `"homeTeamId":` + strconv.FormatInt(f.home.ID, 10) + `,"awayTeamId":` + strconv.FormatInt(f.away.ID, 10)
	spare := testutil.SeedTeam(t, f.db.Queries, f.away.ClubID, "Boeckenberg 2")

	cases := []struct {
		name string
		body string
		want int
	}{
		{"competition removed", `{"homeClubId":` + home + `,"awayClubId":` + away + `,` + teams + `,"scheduledAt":"2026-03-28"}`, http.StatusConflict},
		{"team replaced", `{"homeClubId":` + home + `,"awayClubId":` + away + `,"homeTeamId":` + strconv.FormatInt(f.home.ID, 10) +
			`,"awayTeamId":` + strconv.FormatInt(spare.ID, 10) + `,"competitionId":` + strconv.FormatInt(cup.ID, 10) + `,"scheduledAt":"2026-03-28"}`, http.StatusConflict},
		{"rescheduled only", `{"homeClubId":` + home + `,"awayClubId":` + away + `,` + teams +
			`,"competitionId":` + strconv.FormatInt(cup.ID, 10) + `,"scheduledAt":"2026-03-28"}`, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := testutil.Call(t, "PUT /api/games/{id}", HandleUpdateGame, gamePath(game.ID, ""), tc.body, f.coach)
			testutil.ExpectStatus(t, rec, tc.want)
		})
	}
}

func TestUpdateStartedGameKeepsPeriods(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	q := f.db.Queries
	game, err := q.CreateGame(ctx, store.CreateGameParams{
		HomeClubID:            f.home.ClubID,
		AwayClubID:            f.away.ClubID,
		ScheduledAt:           f.clock.Now(),
		NumberOfPeriods:       4,
		PeriodDurationSeconds: 600,
	})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	clubs := `"homeClubId":` + strconv.FormatInt(f.home.ClubID, 10) + `,"awayClubId":` + strconv.FormatInt(f.away.ClubID, 10)

	rec := testutil.Call(t, "PUT /api/games/{id}", HandleUpdateGame, gamePath(game.ID, ""),
		`{`+clubs+`,"scheduledAt":"2026-03-14T15:00:00Z","location":"Sporthal"}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	if got := testutil.Decode[GameResponse](t, rec); got.Clock.NumberOfPeriods != 4 || got.Clock.PeriodDuration != 600 {
		t.Fatalf("omitted period settings should be kept: %+v", got.Clock)
	}

	rec = testutil.Call(t, "POST /api/games/{id}/start", HandleStartGame, gamePath(game.ID, "/start"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	for i := 0; i < 2; i++ {
		rec = testutil.Call(t, "POST /api/games/{id}/clock/{action}", HandleClockAction, gamePath(game.ID, "/clock/next-period"), "", f.coach)
		testutil.ExpectStatus(t, rec, http.StatusOK)
	}

	rec = testutil.Call(t, "PUT /api/games/{id}", HandleUpdateGame, gamePath(game.ID, ""),
		`{`+clubs+`,"scheduledAt":"2026-03-14T15:00:00Z","numberOfPeriods":2}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusConflict)

	rec = testutil.Call(t, "PUT /api/games/{id}", HandleUpdateGame, gamePath(game.ID, ""),
		`{`+clubs+`,"scheduledAt":"2026-03-14T15:00:00Z","location":"Sporthal Noord"}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	got := testutil.Decode[GameResponse](t, rec)
	if got.Clock.Period != 3 || got.Clock.NumberOfPeriods != 4 {
		t.Fatalf("period settings changed: %+v", got.Clock)
	}
}

func TestReplaceRosterAfterSubstitution(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	q := f.db.Queries
	game := testutil.SeedGame(t, q, f.home, f.away)
	players := testutil.SeedPlayers(t, q, f.home.ClubID, f.home.ID, 3)
	id := func(p store.Player) string { return strconv.FormatInt(p.ID, 10) }
	target := gamePath(game.ID, "/roster/"+strconv.FormatInt(f.home.ClubID, 10))
	roster := `{"players":[{"playerId":` + id(players[0]) + `,"isStarting":true},{"playerId":` + id(players[1]) +
		`,"isStarting":true},{"playerId":` + id(players[2]) + `}]}`

	rec := testutil.Call(t, "PUT /api/games/{id}/roster/{club_id}", HandleReplaceRoster, target, roster, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	rec = testutil.Call(t, "POST /api/games/{id}/start", HandleStartGame, gamePath(game.ID, "/start"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)

	if _, err := q.CreateSubstitution(ctx, store.CreateSubstitutionParams{
		GameID:               game.ID,
		ClubID:               f.home.ClubID,
		PlayerInID:           players[2].ID,
		PlayerOutID:          players[0].ID,
		Period:               1,
		TimeRemainingSeconds: 1200,
		Reason:               "tactical",
	}); err != nil {
		t.Fatalf("create substitution: %v", err)
	}

	rec = testutil.Call(t, "PUT /api/games/{id}/roster/{club_id}", HandleReplaceRoster, target,
		`{"players":[{"playerId":`+id(players[0])+`,"isStarting":true},{"playerId":`+id(players[1])+`,"isStarting":true}]}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusConflict)

	entries, err := q.ListClubRoster(ctx, game.ID, f.home.ClubID)
	if err != nil {
		t.Fatalf("list roster: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("roster should be unchanged: got %d entries", len(entries))
	}

	awayPlayer := testutil.SeedPlayers(t, q, f.away.ClubID, f.away.ID, 1)[0]
	rec = testutil.Call(t, "PUT /api/games/{id}/roster/{club_id}", HandleReplaceRoster,
		gamePath(game.ID, "/roster/"+strconv.FormatInt(f.away.ClubID, 10)),
		`{"players":[{"playerId":`+id(awayPlayer)+`,"isStarting":true}]}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
}
