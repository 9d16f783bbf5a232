package health

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codr1/ShotSpot/internal/testutil"
)

func check(t *testing.T) (int, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec.Code, resp
}

func TestHealth(t *testing.T) {
	prev := database
	t.Cleanup(func() { database = prev })

	InitHandlers(nil)
	if code, resp := check(t); code != http.StatusServiceUnavailable || resp.Database != "not configured" {
		t.Fatalf("unconfigured: got %d %+v", code, resp)
	}

	db := testutil.NewTestDB(t)
	InitHandlers(db)
	if code, resp := check(t); code != http.StatusOK || resp.Status != "ok" {
		t.Fatalf("healthy: got %d %+v", code, resp)
	}

	db.Close()
	if code, resp := check(t); code != http.StatusServiceUnavailable || resp.Database != "unreachable" {
		t.Fatalf("closed: got %d %+v", code, resp)
	}
}
