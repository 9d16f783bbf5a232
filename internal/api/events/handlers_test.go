package events

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/codr1/ShotSpot/internal/api/authz"
	"github.com/codr1/ShotSpot/internal/api/games"
	appdb "github.com/codr1/ShotSpot/internal/db"
	"github.com/codr1/ShotSpot/internal/livefeed"
	"github.com/codr1/ShotSpot/internal/store"
	"github.com/codr1/ShotSpot/internal/testutil"
)

type fixture struct {
	db          *appdb.DB
	clock       *clockwork.FakeClock
	broker      *livefeed.Broker
	coach       store.User
	game        store.Game
	homePlayers []store.Player
	awayPlayers []store.Player
}

func setup(t *testing.T) fixture {
	t.Helper()
	testDB := testutil.NewTestDB(t)
	prevDB, prevFeed, prevStreamer := database, feed, streamer
	t.Cleanup(func() {
		database = prevDB
		feed = prevFeed
		streamer = prevStreamer
	})

	fake := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC))
	broker := livefeed.NewBroker()
	t.Cleanup(broker.Close)
	games.InitHandlers(testDB, broker, fake)
	InitHandlers(testDB, broker, nil)

	ctx := context.Background()
	q := testDB.Queries
	home := testutil.SeedTeam(t, q, testutil.SeedClub(t, q, "KC Dijlevallei").ID, "Dijlevallei 1")
	away := testutil.SeedTeam(t, q, testutil.SeedClub(t, q, "Boeckenberg KC").ID, "Boeckenberg 1")
	game := testutil.SeedGame(t, q, home, away)
	if _, err := q.SetGameStatus(ctx, game.ID, games.StatusInProgress); err != nil {
		t.Fatalf("start game: %v", err)
	}
	startedAt := fake.Now()
	game, err := q.UpdateGameClock(ctx, store.UpdateGameClockParams{
		ID:                   game.ID,
		CurrentPeriod:        1,
		ClockState:           "running",
		TimeRemainingSeconds: 1500,
		ClockStartedAt:       store.NullTime(&startedAt),
	})
	if err != nil {
		t.Fatalf("start clock: %v", err)
	}

	return fixture{
		db:          testDB,
		clock:       fake,
		broker:      broker,
		coach:       testutil.SeedUser(t, q, "coach", authz.RoleCoach),
		game:        game,
		homePlayers: testutil.SeedPlayers(t, q, home.ClubID, home.ID, 3),
		awayPlayers: testutil.SeedPlayers(t, q, away.ClubID, away.ID, 2),
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func (f fixture) path(suffix string) string {
	return "/api/games/" + itoa(f.game.ID) + suffix
}

func (f fixture) score(t *testing.T) (int64, int64) {
	t.Helper()
	g, err := f.db.Queries.GetGame(context.Background(), f.game.ID)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	return g.HomeScore, g.AwayScore
}

func TestShotsAdjustScore(t *testing.T) {
	f := setup(t)
	sub := f.broker.Subscribe(f.game.ID)
	defer f.broker.Unsubscribe(sub)
	f.clock.Advance(100 * time.Second)

	home := itoa(f.game.HomeClubID)
	away := itoa(f.game.AwayClubID)
	shooter := itoa(f.homePlayers[0].ID)

	rec := testutil.Call(t, "POST /api/games/{id}/shots", HandleCreateShot, f.path("/shots"),
		`{"playerId":`+shooter+`,"clubId":`+home+`,"x":0,"y":55.5,"result":"goal","shotType":"running_in","distance":6.5}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusCreated)
	shot := testutil.Decode[ShotResponse](t, rec)
	if shot.Period != 1 || shot.TimeRemainingSeconds != 1400 || shot.X != 0 {
		t.Fatalf("unexpected shot: %+v", shot)
	}
	if h, a := f.score(t); h != 1 || a != 0 {
		t.Fatalf("score after goal: %d-%d", h, a)
	}
	kinds := []string{}
	for len(kinds) < 2 {
		select {
		case msg := <-sub.C():
			kinds = append(kinds, msg.Kind)
		case <-time.After(time.Second):
			t.Fatalf("expected live messages, got %v", kinds)
		}
	}
	if kinds[0] != livefeed.KindShot || kinds[1] != livefeed.KindScore {
		t.Fatalf("unexpected live messages: %v", kinds)
	}

	rec = testutil.Call(t, "POST /api/games/{id}/shots", HandleCreateShot, f.path("/shots"),
		`{"playerId":`+shooter+`,"clubId":`+away+`,"x":10,"y":10,"result":"miss"}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)
	rec = testutil.Call(t, "POST /api/games/{id}/shots", HandleCreateShot, f.path("/shots"),
		`{"playerId":`+shooter+`,"clubId":`+home+`,"x":101,"y":10,"result":"miss"}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)

	rec = testutil.Call(t, "PUT /api/games/{id}/shots/{shot_id}", HandleUpdateShot, f.path("/shots/"+itoa(shot.ID)),
		`{"x":20,"y":30,"result":"miss"}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	if h, a := f.score(t); h != 0 || a != 0 {
		t.Fatalf("score after correction: %d-%d", h, a)
	}

	rec = testutil.Call(t, "POST /api/games/{id}/shots", HandleCreateShot, f.path("/shots"),
		`{"playerId":`+itoa(f.awayPlayers[0].ID)+`,"clubId":`+away+`,"x":40,"y":60,"result":"goal"}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusCreated)
	awayShot := testutil.Decode[ShotResponse](t, rec)
	if h, a := f.score(t); h != 0 || a != 1 {
		t.Fatalf("score after away goal: %d-%d", h, a)
	}

	rec = testutil.Call(t, "DELETE /api/games/{id}/shots/{shot_id}", HandleDeleteShot, f.path("/shots/"+itoa(awayShot.ID)), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusNoContent)
	if h, a := f.score(t); h != 0 || a != 0 {
		t.Fatalf("score after delete: %d-%d", h, a)
	}

	rec = testutil.Call(t, "GET /api/games/{id}/shots", HandleListShots, f.path("/shots"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	list := testutil.Decode[struct {
		Shots []ShotResponse `json:"shots"`
	}](t, rec)
	if len(list.Shots) != 1 || list.Shots[0].Result != "miss" {
		t.Fatalf("unexpected shots: %+v", list.Shots)
	}

	if _, err := f.db.Queries.SetGameStatus(context.Background(), f.game.ID, games.StatusCompleted); err != nil {
		t.Fatalf("complete game: %v", err)
	}
	rec = testutil.Call(t, "POST /api/games/{id}/shots", HandleCreateShot, f.path("/shots"),
		`{"playerId":`+shooter+`,"clubId":`+home+`,"x":10,"y":10,"result":"goal"}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusConflict)
}

func TestGameEvents(t *testing.T) {
	f := setup(t)
	home := itoa(f.game.HomeClubID)
	player := itoa(f.homePlayers[1].ID)

	rec := testutil.Call(t, "POST /api/games/{id}/events", HandleCreateEvent, f.path("/events"), `{"eventType":"foul"}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)

	rec = testutil.Call(t, "POST /api/games/{id}/events", HandleCreateEvent, f.path("/events"),
		`{"eventType":"foul","playerId":`+player+`,"details":{"kind":"holding"}}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusCreated)
	foul := testutil.Decode[GameEventResponse](t, rec)
	if foul.ClubID == nil || *foul.ClubID != f.game.HomeClubID || string(foul.Details) != `{"kind":"holding"}` {
		t.Fatalf("unexpected foul: %+v", foul)
	}

	rec = testutil.Call(t, "POST /api/games/{id}/events", HandleCreateEvent, f.path("/events"),
		`{"eventType":"note","details":["not","an","object"]}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)

	rec = testutil.Call(t, "POST /api/games/{id}/events", HandleCreateEvent, f.path("/events"), `{"eventType":"timeout"}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)
	rec = testutil.Call(t, "POST /api/games/{id}/events", HandleCreateEvent, f.path("/events"), `{"eventType":"timeout","clubId":`+home+`}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusCreated)
	rec = testutil.Call(t, "POST /api/games/{id}/events", HandleCreateEvent, f.path("/events"), `{"eventType":"timeout","clubId":`+home+`}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusConflict)

	rec = testutil.Call(t, "POST /api/games/{id}/events", HandleCreateEvent, f.path("/events"),
		`{"eventType":"warning","clubId":`+itoa(f.game.AwayClubID)+`,"playerId":`+player+`}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)

	rec = testutil.Call(t, "GET /api/games/{id}/events", HandleListEvents, f.path("/events?type=foul&period=1"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	list := testutil.Decode[struct {
		Events []GameEventResponse `json:"events"`
	}](t, rec)
	if len(list.Events) != 1 || list.Events[0].ID != foul.ID {
		t.Fatalf("unexpected events: %+v", list.Events)
	}

	rec = testutil.Call(t, "DELETE /api/games/{id}/events/{event_id}", HandleDeleteEvent, f.path("/events/"+itoa(foul.ID)), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusNoContent)
	rec = testutil.Call(t, "DELETE /api/games/{id}/events/{event_id}", HandleDeleteEvent, f.path("/events/"+itoa(foul.ID)), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusNotFound)
}

func TestSubstitutionsAndTimeline(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	q := f.db.Queries
	for i, p := range f.homePlayers {
		if err := q.AddRosterEntry(ctx, store.AddRosterEntryParams{
			GameID:     f.game.ID,
			ClubID:     f.game.HomeClubID,
			PlayerID:   p.ID,
			IsStarting: i < 2,
		}); err != nil {
			t.Fatalf("add roster entry: %v", err)
		}
	}
	home := itoa(f.game.HomeClubID)
	p1, p2, p3 := itoa(f.homePlayers[0].ID), itoa(f.homePlayers[1].ID), itoa(f.homePlayers[2].ID)
	substitute := func(in, out string) int {
		rec := testutil.Call(t, "POST /api/games/{id}/substitutions", HandleCreateSubstitution, f.path("/substitutions"),
			`{"clubId":`+home+`,"playerInId":`+in+`,"playerOutId":`+out+`,"reason":"fatigue"}`, f.coach)
		return rec.Code
	}

	rec := testutil.Call(t, "POST /api/games/{id}/shots", HandleCreateShot, f.path("/shots"),
		`{"playerId":`+p1+`,"clubId":`+home+`,"x":50,"y":50,"result":"miss"}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusCreated)
	f.clock.Advance(10 * time.Second)

	if got := substitute(p3, p1); got != http.StatusCreated {
		t.Fatalf("first substitution: got %d", got)
	}
	f.clock.Advance(10 * time.Second)
	if got := substitute(p1, p2); got != http.StatusCreated {
		t.Fatalf("second substitution: got %d", got)
	}
	if got := substitute(p2, p2); got != http.StatusBadRequest {
		t.Fatalf("same player: got %d", got)
	}
	if got := substitute(p3, p1); got != http.StatusConflict {
		t.Fatalf("incoming on court: got %d", got)
	}
	if got := substitute(itoa(f.awayPlayers[0].ID), p1); got != http.StatusBadRequest {
		t.Fatalf("off-roster player: got %d", got)
	}

	rec = testutil.Call(t, "GET /api/games/{id}/substitutions", HandleListSubstitutions, f.path("/substitutions"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	subs := testutil.Decode[struct {
		Substitutions []SubstitutionResponse `json:"substitutions"`
	}](t, rec).Substitutions
	if len(subs) != 2 || subs[0].TimeRemainingSeconds != 1490 || subs[1].Reason != "fatigue" {
		t.Fatalf("unexpected substitutions: %+v", subs)
	}

	rec = testutil.Call(t, "DELETE /api/games/{id}/substitutions/{sub_id}", HandleDeleteSubstitution, f.path("/substitutions/"+itoa(subs[0].ID)), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusConflict)
	rec = testutil.Call(t, "DELETE /api/games/{id}/substitutions/{sub_id}", HandleDeleteSubstitution, f.path("/substitutions/"+itoa(subs[1].ID)), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusNoContent)

	rec = testutil.Call(t, "GET /api/games/{id}/lineup", HandleLineup, f.path("/lineup"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	lineup := testutil.Decode[map[string]clubLineupResponse](t, rec)
	homeLineup := lineup["home"]
	if len(homeLineup.OnCourt) != 2 || homeLineup.OnCourt[0].JerseyNumber != 2 || homeLineup.OnCourt[1].JerseyNumber != 3 {
		t.Fatalf("unexpected on court: %+v", homeLineup.OnCourt)
	}
	if len(homeLineup.Bench) != 1 || homeLineup.Bench[0].JerseyNumber != 1 {
		t.Fatalf("unexpected bench: %+v", homeLineup.Bench)
	}
	if len(lineup["away"].OnCourt) != 0 {
		t.Fatalf("expected empty away lineup")
	}

	rec = testutil.Call(t, "GET /api/games/{id}/timeline", HandleTimeline, f.path("/timeline"), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	timeline := testutil.Decode[struct {
		Timeline []TimelineEntry `json:"timeline"`
	}](t, rec).Timeline
	if len(timeline) != 2 || timeline[0].Kind != "shot" || timeline[1].Kind != "substitution" {
		t.Fatalf("unexpected timeline: %+v", timeline)
	}
}

func TestBuildLineupsIgnoresUnknownClubs(t *testing.T) {
	roster := []store.RosterEntry{
		{ClubID: 1, PlayerID: 10, IsStarting: true},
		{ClubID: 1, PlayerID: 11},
	}
	subs := []store.Substitution{
		{ClubID: 2, PlayerInID: 20, PlayerOutID: 21},
		{ClubID: 1, PlayerInID: 11, PlayerOutID: 10},
	}
	lineups := BuildLineups(roster, subs)
	if len(lineups) != 1 {
		t.Fatalf("lineups: got %d", len(lineups))
	}
	if !lineups[1].OnCourt[11] || lineups[1].OnCourt[10] {
		t.Fatalf("unexpected lineup: %+v", lineups[1].OnCourt)
	}
	if err := lineups[1].Check(10, 11); err != nil {
		t.Fatalf("expected legal substitution: %v", err)
	}
	var missing *Lineup
	if err := missing.Check(1, 2); err == nil {
		t.Fatalf("expected error for club without roster")
	}
}

func TestDeleteSubstitutionIsPerClub(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	q := f.db.Queries
	roster := map[int64][]store.Player{f.game.HomeClubID: f.homePlayers, f.game.AwayClubID: f.awayPlayers}
	for clubID, players := range roster {
		for i, p := range players {
			if err := q.AddRosterEntry(ctx, store.AddRosterEntryParams{
				GameID:     f.game.ID,
				ClubID:     clubID,
				PlayerID:   p.ID,
				IsStarting: i == 0,
			}); err != nil {
				t.Fatalf("add roster entry: %v", err)
			}
		}
	}
	substitute := func(clubID int64, in, out store.Player) SubstitutionResponse {
		t.Helper()
		rec := testutil.Call(t, "POST /api/games/{id}/substitutions", HandleCreateSubstitution, f.path("/substitutions"),
			`{"clubId":`+itoa(clubID)+`,"playerInId":`+itoa(in.ID)+`,"playerOutId":`+itoa(out.ID)+`,"reason":"tactical"}`, f.coach)
		testutil.ExpectStatus(t, rec, http.StatusCreated)
		return testutil.Decode[SubstitutionResponse](t, rec)
	}

	homeSub := substitute(f.game.HomeClubID, f.homePlayers[1], f.homePlayers[0])
	substitute(f.game.AwayClubID, f.awayPlayers[1], f.awayPlayers[0])

	// the away substitution came later but does not affect the home replay
	rec := testutil.Call(t, "DELETE /api/games/{id}/substitutions/{sub_id}", HandleDeleteSubstitution,
		f.path("/substitutions/"+itoa(homeSub.ID)), "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusNoContent)
}
