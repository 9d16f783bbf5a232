package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/codr1/ShotSpot/internal/api/authz"
	"github.com/codr1/ShotSpot/internal/store"
)

// Call routes a request through a mux holding only pattern, so path values
// are populated the same way the server does. A zero actor sends the request
// unauthenticated.
func Call(t *testing.T, pattern string, handler http.HandlerFunc, target, body string, actor store.User) *httptest.ResponseRecorder {
	t.Helper()

	method, _, ok := strings.Cut(pattern, " ")
	if !ok {
		t.Fatalf("pattern %q has no method", pattern)
	}
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, handler)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor.ID != 0 {
		req = req.WithContext(authz.ContextWithUser(req.Context(), &authz.AuthUser{
			ID:       actor.ID,
			Username: actor.Username,
			Role:     actor.Role,
		}))
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

// Decode unmarshals a JSON response body into T.
func Decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response (status %d): %v: %s", rec.Code, err, rec.Body.String())
	}
	return out
}

// ExpectStatus fails the test when rec does not carry want.
func ExpectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status: got %d want %d: %s", rec.Code, want, rec.Body.String())
	}
}
