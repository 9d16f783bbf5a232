package apiutil

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mattn/go-sqlite3"
)

type clubPayload struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"contactEmail" validate:"omitempty,email"`
	Kind  string `json:"kind" validate:"omitempty,oneof=home away"`
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/clubs", strings.NewReader(`{"name":"KC Dijlevallei","colour":"red"}`))
	var payload clubPayload
	if err := DecodeJSON(req, &payload); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestDecodeJSONRejectsTrailingData(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/clubs", strings.NewReader(`{"name":"a"}{"name":"b"}`))
	var payload clubPayload
	if err := DecodeJSON(req, &payload); err == nil {
		t.Fatalf("expected trailing data error")
	}
}

func TestDecodeAndValidateStatuses(t *testing.T) {
	oversized := `{"name":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	cases := []struct {
		name string
		body string
		want int
	}{
		{"empty body", "", http.StatusBadRequest},
		{"malformed", `{"name":`, http.StatusBadRequest},
		{"oversized", oversized, http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/clubs", strings.NewReader(tc.body))
			var payload clubPayload
			err := DecodeAndValidate(req, &payload)
			var herr HandlerError
			if !errors.As(err, &herr) {
				t.Fatalf("expected HandlerError, got %v", err)
			}
			if herr.Status != tc.want {
				t.Fatalf("status: got %d, want %d", herr.Status, tc.want)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/clubs", strings.NewReader(""))
	if err := DecodeJSON(req, &clubPayload{}); !errors.Is(err, ErrMissingBody) {
		t.Fatalf("empty body: got %v", err)
	}
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	err := Validate(&clubPayload{Email: "nope", Kind: "neutral"})
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	got := map[string]string{}
	for _, fe := range verrs {
		got[fe.Field] = fe.Reason
	}
	if got["name"] != "is required" {
		t.Fatalf("name reason: got %q", got["name"])
	}
	if got["contactEmail"] != "must be a valid email address" {
		t.Fatalf("contactEmail reason: got %q", got["contactEmail"])
	}
	if got["kind"] != "must be one of: home, away" {
		t.Fatalf("kind reason: got %q", got["kind"])
	}
}

type recordingNotifier struct {
	calls int
}

func (n *recordingNotifier) Notify(ctx context.Context, source string, err error) bool {
	n.calls++
	return true
}

func TestWriteHandlerErrorMapping(t *testing.T) {
	notifier := &recordingNotifier{}
	SetAlertNotifier(notifier)
	t.Cleanup(func() { SetAlertNotifier(nil) })

	uniqueErr := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}
	fkErr := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"handler error", HandlerError{Status: http.StatusConflict, Message: "Game is not in progress"}, http.StatusConflict, "Game is not in progress"},
		{"field error", FieldError{Field: "jerseyNumber", Reason: "must be at most 99"}, http.StatusBadRequest, "Validation failed"},
		{"no rows", fmt.Errorf("get club: %w", sql.ErrNoRows), http.StatusNotFound, "Not found"},
		{"unique", fmt.Errorf("insert: %w", uniqueErr), http.StatusConflict, "Resource already exists"},
		{"foreign key", fkErr, http.StatusBadRequest, "Referenced resource does not exist"},
		{"unexpected", errors.New("disk I/O error"), http.StatusInternalServerError, "Failed to save club"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/clubs", nil)
			recorder := httptest.NewRecorder()
			WriteHandlerError(recorder, req, tc.err, "Failed to save club")

			if recorder.Code != tc.wantStatus {
				t.Fatalf("status: got %d want %d", recorder.Code, tc.wantStatus)
			}
			var body ErrorResponse
			if err := json.NewDecoder(recorder.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error != tc.wantError {
				t.Fatalf("error: got %q want %q", body.Error, tc.wantError)
			}
		})
	}

	if notifier.calls != 1 {
		t.Fatalf("alerts: got %d want 1", notifier.calls)
	}
}

func TestNormalizePhone(t *testing.T) {
	got, err := NormalizePhone("0470 12 34 56", "be")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "+32470123456" {
		t.Fatalf("got %q want +32470123456", got)
	}

	if got, err := NormalizePhone("", "BE"); err != nil || got != "" {
		t.Fatalf("empty phone: got %q, %v", got, err)
	}

	if _, err := NormalizePhone("12", "BE"); err == nil {
		t.Fatalf("expected invalid phone error")
	}
}

func TestPathID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/games/abc", nil)
	req.SetPathValue("id", "abc")
	if _, err := PathID(req, "id", "game"); err == nil {
		t.Fatalf("expected invalid id error")
	}

	req.SetPathValue("id", "42")
	id, err := PathID(req, "id", "game")
	if err != nil || id != 42 {
		t.Fatalf("got %d, %v", id, err)
	}
}
