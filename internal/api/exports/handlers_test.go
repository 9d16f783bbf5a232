package exports

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/codr1/ShotSpot/internal/api/authz"
	"github.com/codr1/ShotSpot/internal/reports"
	"github.com/codr1/ShotSpot/internal/store"
	"github.com/codr1/ShotSpot/internal/testutil"
)

type fixture struct {
	coach store.User
	other store.User
	admin store.User
	game  store.Game
}

func setup(t *testing.T) fixture {
	t.Helper()
	testDB := testutil.NewTestDB(t)
	prevDB, prevExporter, prevClock := database, exporter, clock
	t.Cleanup(func() {
		database = prevDB
		exporter = prevExporter
		clock = prevClock
	})

	fake := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC))
	q := testDB.Queries
	InitHandlers(testDB, reports.NewExporter(q, reports.NewBuilder(q, fake)), fake)

	home := testutil.SeedTeam(t, q, testutil.SeedClub(t, q, "KC Dijlevallei").ID, "Dijlevallei 1")
	away := testutil.SeedTeam(t, q, testutil.SeedClub(t, q, "Boeckenberg KC").ID, "Boeckenberg 1")
	return fixture{
		coach: testutil.SeedUser(t, q, "coach", authz.RoleCoach),
		other: testutil.SeedUser(t, q, "other", authz.RoleCoach),
		admin: testutil.SeedUser(t, q, "admin", authz.RoleAdmin),
		game:  testutil.SeedGame(t, q, home, away),
	}
}

func TestExportSettings(t *testing.T) {
	f := setup(t)

	rec := testutil.Call(t, "GET /api/exports/settings", HandleGetSettings, "/api/exports/settings", "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	defaults := testutil.Decode[SettingsResponse](t, rec)
	if defaults.DefaultFormat != "csv" || !defaults.IncludeShots || defaults.AnonymizePlayers || defaults.UpdatedAt != nil {
		t.Fatalf("unexpected defaults: %+v", defaults)
	}

	rec = testutil.Call(t, "PUT /api/exports/settings", HandleUpdateSettings, "/api/exports/settings",
		`{"defaultFormat":"json","includeShots":true,"includeEvents":false,"includeSubstitutions":true}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)

	rec = testutil.Call(t, "PUT /api/exports/settings", HandleUpdateSettings, "/api/exports/settings",
		`{"defaultFormat":"json","includeShots":true,"includeEvents":false,"includeSubstitutions":true,"anonymizePlayers":true}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	saved := testutil.Decode[SettingsResponse](t, rec)
	if saved.DefaultFormat != "json" || saved.IncludeEvents || !saved.AnonymizePlayers {
		t.Fatalf("unexpected settings: %+v", saved)
	}

	rec = testutil.Call(t, "GET /api/exports/settings", HandleGetSettings, "/api/exports/settings", "", f.other)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	if got := testutil.Decode[SettingsResponse](t, rec); got.DefaultFormat != "csv" {
		t.Fatalf("settings leaked across users: %+v", got)
	}

	rec = testutil.Call(t, "GET /api/exports/settings", HandleGetSettings, "/api/exports/settings", "", store.User{})
	testutil.ExpectStatus(t, rec, http.StatusUnauthorized)
}

func TestExportLifecycle(t *testing.T) {
	f := setup(t)
	gameID := strconv.FormatInt(f.game.ID, 10)

	rec := testutil.Call(t, "POST /api/exports", HandleCreateExport, "/api/exports",
		`{"reportType":"game","targetId":999999}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusNotFound)

	rec = testutil.Call(t, "POST /api/exports", HandleCreateExport, "/api/exports",
		`{"reportType":"season","targetId":`+gameID+`}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)

	rec = testutil.Call(t, "POST /api/exports", HandleCreateExport, "/api/exports",
		`{"reportType":"game","targetId":`+gameID+`,"format":"json"}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusCreated)
	export := testutil.Decode[ExportResponse](t, rec)
	if export.Status != "completed" || export.Format != "json" || export.SizeBytes == 0 || len(export.ID) != 21 {
		t.Fatalf("unexpected export: %+v", export)
	}
	if export.FileName != "game-"+gameID+"-20260314.json" {
		t.Fatalf("file name: got %q", export.FileName)
	}

	path := "/api/exports/" + export.ID
	rec = testutil.Call(t, "GET /api/exports/{public_id}/download", HandleDownloadExport, path+"/download", "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type: got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, export.FileName) {
		t.Fatalf("content disposition: got %q", cd)
	}
	if int64(rec.Body.Len()) != export.SizeBytes {
		t.Fatalf("body size: got %d want %d", rec.Body.Len(), export.SizeBytes)
	}

	rec = testutil.Call(t, "GET /api/exports/{public_id}", HandleGetExport, path, "", f.other)
	testutil.ExpectStatus(t, rec, http.StatusNotFound)
	rec = testutil.Call(t, "GET /api/exports/{public_id}", HandleGetExport, path, "", f.admin)
	testutil.ExpectStatus(t, rec, http.StatusOK)

	// the failed export of the missing target belongs to the coach too
	rec = testutil.Call(t, "GET /api/exports", HandleListExports, "/api/exports", "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	if got := len(testutil.Decode[exportList](t, rec).Exports); got != 2 {
		t.Fatalf("coach exports: got %d", got)
	}
	rec = testutil.Call(t, "GET /api/exports", HandleListExports, "/api/exports", "", f.other)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	if got := len(testutil.Decode[exportList](t, rec).Exports); got != 0 {
		t.Fatalf("other exports: got %d", got)
	}

	rec = testutil.Call(t, "DELETE /api/exports/{public_id}", HandleDeleteExport, path, "", f.other)
	testutil.ExpectStatus(t, rec, http.StatusNotFound)
	rec = testutil.Call(t, "DELETE /api/exports/{public_id}", HandleDeleteExport, path, "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusNoContent)
	rec = testutil.Call(t, "GET /api/exports/{public_id}/download", HandleDownloadExport, path+"/download", "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusNotFound)
}

func TestScheduledReports(t *testing.T) {
	f := setup(t)
	gameID := strconv.FormatInt(f.game.ID, 10)

	rec := testutil.Call(t, "POST /api/scheduled-reports", HandleCreateScheduledReport, "/api/scheduled-reports",
		`{"name":"Weekly","reportType":"game","targetId":`+gameID+`,"cronExpression":"every monday"}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)

	rec = testutil.Call(t, "POST /api/scheduled-reports", HandleCreateScheduledReport, "/api/scheduled-reports",
		`{"name":"Weekly","reportType":"game","targetId":`+gameID+`,"cronExpression":"0 7 * * 1","recipients":["not-an-email"]}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)

	rec = testutil.Call(t, "POST /api/scheduled-reports", HandleCreateScheduledReport, "/api/scheduled-reports",
		`{"name":"Weekly","reportType":"game","targetId":`+gameID+`,"cronExpression":"0 7 * * 1","recipients":["Coach@Example.com","coach@example.com"]}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusCreated)
	created := testutil.Decode[ScheduledReportResponse](t, rec)
	want := time.Date(2026, 3, 16, 7, 0, 0, 0, time.UTC)
	if created.NextRunAt == nil || !created.NextRunAt.Equal(want) {
		t.Fatalf("next run: got %v want %v", created.NextRunAt, want)
	}
	if len(created.Recipients) != 1 || created.Recipients[0] != "coach@example.com" || created.Format != "csv" {
		t.Fatalf("unexpected report: %+v", created)
	}

	path := "/api/scheduled-reports/" + strconv.FormatInt(created.ID, 10)
	rec = testutil.Call(t, "GET /api/scheduled-reports/{id}", HandleGetScheduledReport, path, "", f.other)
	testutil.ExpectStatus(t, rec, http.StatusNotFound)

	rec = testutil.Call(t, "PUT /api/scheduled-reports/{id}", HandleUpdateScheduledReport, path,
		`{"name":"Weekly","reportType":"game","targetId":`+gameID+`,"cronExpression":"0 7 * * 1","isActive":false}`, f.coach)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	paused := testutil.Decode[ScheduledReportResponse](t, rec)
	if paused.IsActive || paused.NextRunAt != nil {
		t.Fatalf("paused report should have no next run: %+v", paused)
	}

	rec = testutil.Call(t, "GET /api/scheduled-reports", HandleListScheduledReports, "/api/scheduled-reports", "", f.admin)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	listed := testutil.Decode[struct {
		ScheduledReports []ScheduledReportResponse `json:"scheduledReports"`
	}](t, rec)
	if len(listed.ScheduledReports) != 1 {
		t.Fatalf("admin list: got %d", len(listed.ScheduledReports))
	}

	rec = testutil.Call(t, "DELETE /api/scheduled-reports/{id}", HandleDeleteScheduledReport, path, "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusNoContent)
	rec = testutil.Call(t, "GET /api/scheduled-reports/{id}", HandleGetScheduledReport, path, "", f.coach)
	testutil.ExpectStatus(t, rec, http.StatusNotFound)
}
