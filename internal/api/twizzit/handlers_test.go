package twizzit

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/codr1/ShotSpot/internal/api/authz"
	"github.com/codr1/ShotSpot/internal/store"
	"github.com/codr1/ShotSpot/internal/testutil"
	twizzitsvc "github.com/codr1/ShotSpot/internal/twizzit"
)

type stubAPI struct {
	password string
	orgs     []twizzitsvc.Organization
	groups   []twizzitsvc.Group
	contacts []twizzitsvc.Contact
	err      error
}

func (s *stubAPI) Authenticate(context.Context) error {
	if s.password != "hunter22" {
		return &twizzitsvc.APIError{Status: http.StatusUnauthorized, Path: "/v2/api/authenticate"}
	}
	return s.err
}

func (s *stubAPI) Organizations(context.Context) ([]twizzitsvc.Organization, error) {
	return s.orgs, s.err
}

func (s *stubAPI) Groups(context.Context, twizzitsvc.ID) ([]twizzitsvc.Group, error) {
	return s.groups, nil
}

func (s *stubAPI) Contacts(context.Context, twizzitsvc.ID, twizzitsvc.ID) ([]twizzitsvc.Contact, error) {
	return s.contacts, nil
}

func setup(t *testing.T, api *stubAPI) (*store.Queries, store.User) {
	t.Helper()
	testDB := testutil.NewTestDB(t)
	prevDB, prevService, prevEndpoint := database, service, defaultEndpoint
	t.Cleanup(func() {
		database = prevDB
		service = prevService
		defaultEndpoint = prevEndpoint
	})

	cipher, err := twizzitsvc.NewCipher("0123456789abcdef0123")
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	factory := func(_ store.TwizzitCredential, password string) twizzitsvc.API {
		api.password = password
		return api
	}
	fake := clockwork.NewFakeClockAt(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	svc := twizzitsvc.NewService(testDB.Queries, cipher, factory, fake)
	InitHandlers(testDB, svc, "https://twizzit.example.com")
	return testDB.Queries, testutil.SeedUser(t, testDB.Queries, "admin", authz.RoleAdmin)
}

func createCredential(t *testing.T, admin store.User, username, password string) CredentialResponse {
	t.Helper()
	rec := testutil.Call(t, "POST /api/twizzit/credentials", HandleCreateCredential, "/api/twizzit/credentials",
		`{"organizationName":"KBKB","username":"`+username+`","password":"`+password+`"}`, admin)
	testutil.ExpectStatus(t, rec, http.StatusCreated)
	if strings.Contains(rec.Body.String(), password) {
		t.Fatalf("response leaks the password: %s", rec.Body.String())
	}
	return testutil.Decode[CredentialResponse](t, rec)
}

func TestCredentials(t *testing.T) {
	q, admin := setup(t, &stubAPI{})

	cred := createCredential(t, admin, "sync", "hunter22")
	if cred.APIEndpoint != "https://twizzit.example.com" || !cred.IsActive || cred.LastVerifiedAt != nil {
		t.Fatalf("unexpected credential: %+v", cred)
	}
	stored, err := q.GetTwizzitCredential(context.Background(), cred.ID)
	if err != nil {
		t.Fatalf("load credential: %v", err)
	}
	if stored.EncryptedPassword == "" || strings.Contains(stored.EncryptedPassword, "hunter22") {
		t.Fatalf("password stored in clear")
	}

	rec := testutil.Call(t, "POST /api/twizzit/credentials", HandleCreateCredential, "/api/twizzit/credentials",
		`{"organizationName":"KBKB","username":"sync","password":"other"}`, admin)
	testutil.ExpectStatus(t, rec, http.StatusConflict)

	verifyPath := "/api/twizzit/credentials/" + strconv.FormatInt(cred.ID, 10) + "/verify"
	rec = testutil.Call(t, "POST /api/twizzit/credentials/{id}/verify", HandleVerifyCredential, verifyPath, "", admin)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	if verified := testutil.Decode[CredentialResponse](t, rec); verified.LastVerifiedAt == nil {
		t.Fatalf("verification not recorded: %+v", verified)
	}

	wrong := createCredential(t, admin, "typo", "hunter23")
	rec = testutil.Call(t, "POST /api/twizzit/credentials/{id}/verify", HandleVerifyCredential,
		"/api/twizzit/credentials/"+strconv.FormatInt(wrong.ID, 10)+"/verify", "", admin)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)

	rec = testutil.Call(t, "GET /api/twizzit/credentials", HandleListCredentials, "/api/twizzit/credentials", "", admin)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	if body := rec.Body.String(); strings.Contains(body, `"password"`) || strings.Contains(body, "ncrypted") {
		t.Fatalf("list exposes password fields: %s", rec.Body.String())
	}

	rec = testutil.Call(t, "DELETE /api/twizzit/credentials/{id}", HandleDeleteCredential,
		"/api/twizzit/credentials/"+strconv.FormatInt(wrong.ID, 10), "", admin)
	testutil.ExpectStatus(t, rec, http.StatusNoContent)
	rec = testutil.Call(t, "DELETE /api/twizzit/credentials/{id}", HandleDeleteCredential,
		"/api/twizzit/credentials/"+strconv.FormatInt(wrong.ID, 10), "", admin)
	testutil.ExpectStatus(t, rec, http.StatusNotFound)
}

func TestSyncAndMappings(t *testing.T) {
	number := int64(7)
	api := &stubAPI{
		orgs:     []twizzitsvc.Organization{{ID: "11", Name: "KC Dijlevallei"}},
		groups:   []twizzitsvc.Group{{ID: "21", Name: "Dijlevallei 1", Gender: "mixed"}},
		contacts: []twizzitsvc.Contact{{ID: "31", FirstName: "Anke", LastName: "Peeters", Gender: "female", JerseyNumber: &number}},
	}
	_, admin := setup(t, api)
	cred := createCredential(t, admin, "sync", "hunter22")
	credID := strconv.FormatInt(cred.ID, 10)

	rec := testutil.Call(t, "POST /api/twizzit/sync/{credential_id}", HandleSync, "/api/twizzit/sync/"+credID,
		`{"scope":"everything"}`, admin)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)

	rec = testutil.Call(t, "POST /api/twizzit/sync/{credential_id}", HandleSync, "/api/twizzit/sync/"+credID, "", admin)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	run := testutil.Decode[SyncLogResponse](t, rec)
	if run.Status != twizzitsvc.StatusSuccess || run.Scope != twizzitsvc.ScopeFull || run.ItemsFailed != 0 {
		t.Fatalf("unexpected run: %+v", run)
	}

	rec = testutil.Call(t, "GET /api/twizzit/mappings", HandleListMappings, "/api/twizzit/mappings?credential_id="+credID, "", admin)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	mappings := testutil.Decode[struct {
		Mappings []MappingResponse `json:"mappings"`
	}](t, rec).Mappings
	if len(mappings) != 3 {
		t.Fatalf("mappings: got %d want 3", len(mappings))
	}

	rec = testutil.Call(t, "GET /api/twizzit/mappings", HandleListMappings,
		"/api/twizzit/mappings?credential_id="+credID+"&entity_type=player", "", admin)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	players := testutil.Decode[struct {
		Mappings []MappingResponse `json:"mappings"`
	}](t, rec).Mappings
	if len(players) != 1 || players[0].TwizzitID != "31" {
		t.Fatalf("player mappings: %+v", players)
	}

	rec = testutil.Call(t, "GET /api/twizzit/mappings", HandleListMappings, "/api/twizzit/mappings", "", admin)
	testutil.ExpectStatus(t, rec, http.StatusBadRequest)

	api.err = &twizzitsvc.APIError{Status: http.StatusServiceUnavailable, Path: "/v2/api/organizations"}
	rec = testutil.Call(t, "POST /api/twizzit/sync/{credential_id}", HandleSync, "/api/twizzit/sync/"+credID,
		`{"scope":"clubs"}`, admin)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	if failed := testutil.Decode[SyncLogResponse](t, rec); failed.Status != twizzitsvc.StatusFailed || failed.Error == nil {
		t.Fatalf("expected a failed run: %+v", failed)
	}

	rec = testutil.Call(t, "GET /api/twizzit/sync-logs", HandleListSyncLogs, "/api/twizzit/sync-logs?credential_id="+credID, "", admin)
	testutil.ExpectStatus(t, rec, http.StatusOK)
	logs := testutil.Decode[struct {
		SyncLogs []SyncLogResponse `json:"syncLogs"`
	}](t, rec).SyncLogs
	if len(logs) != 2 {
		t.Fatalf("sync logs: got %d", len(logs))
	}
}
