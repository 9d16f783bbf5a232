package apiutil

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/store"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// AlertNotifier receives unexpected server errors.
type AlertNotifier interface {
	Notify(ctx context.Context, source string, err error) bool
}

var (
	notifierMu sync.RWMutex
	notifier   AlertNotifier
)

// SetAlertNotifier installs the notifier used for 5xx responses. Passing nil
// disables alerting.
func SetAlertNotifier(n AlertNotifier) {
	notifierMu.Lock()
	notifier = n
	notifierMu.Unlock()
}

// NotifyAlert forwards err to the installed notifier, if any.
func NotifyAlert(ctx context.Context, source string, err error) {
	notifierMu.RLock()
	n := notifier
	notifierMu.RUnlock()
	if n != nil && err != nil {
		n.Notify(ctx, source, err)
	}
}

func WriteError(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, ErrorResponse{Error: message})
}

func WriteFieldErrors(w http.ResponseWriter, fields []FieldError) {
	resp := ErrorResponse{Error: "Validation failed", Fields: make(map[string]string, len(fields))}
	for _, field := range fields {
		resp.Fields[field.Field] = field.Reason
	}
	_ = WriteJSON(w, http.StatusBadRequest, resp)
}

// WriteInternalError logs err, raises an alert and writes a 500 carrying
// only message.
func WriteInternalError(w http.ResponseWriter, r *http.Request, err error, message string) {
	log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg(message)
	NotifyAlert(r.Context(), r.Method+" "+r.Pattern, err)
	WriteError(w, http.StatusInternalServerError, message)
}

// WriteHandlerError maps err onto a response. Known error shapes carry their
// own status; sqlite constraint failures become 409 or 400; anything else is
// a 500 with fallback as the message.
func WriteHandlerError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var validationErr ValidationErrors
	if errors.As(err, &validationErr) {
		WriteFieldErrors(w, validationErr)
		return
	}

	var fieldErr FieldError
	if errors.As(err, &fieldErr) {
		WriteFieldErrors(w, []FieldError{fieldErr})
		return
	}

	var herr HandlerError
	if errors.As(err, &herr) {
		if herr.Status >= http.StatusInternalServerError {
			WriteInternalError(w, r, err, herr.Message)
			return
		}
		if herr.Err != nil {
			log.Ctx(r.Context()).Debug().Err(herr.Err).Int("status", herr.Status).Msg(herr.Message)
		}
		WriteError(w, herr.Status, herr.Message)
		return
	}

	switch {
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, store.ErrNotFound):
		WriteError(w, http.StatusNotFound, "Not found")
	case IsSQLiteUniqueViolation(err):
		WriteError(w, http.StatusConflict, "Resource already exists")
	case IsSQLiteForeignKeyViolation(err):
		WriteError(w, http.StatusBadRequest, "Referenced resource does not exist")
	case IsSQLiteCheckViolation(err):
		WriteError(w, http.StatusBadRequest, "Value violates a data constraint")
	default:
		WriteInternalError(w, r, err, fallback)
	}
}
