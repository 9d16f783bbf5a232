package apiutil

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

func ParsePositiveInt64Field(raw string, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", field)
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", field)
	}
	return value, nil
}

// PathID reads a positive integer path value such as {id}.
func PathID(r *http.Request, key, label string) (int64, error) {
	raw := strings.TrimSpace(r.PathValue(key))
	id, err := strconv.ParseInt(raw, 10, 64)
	if raw == "" || err != nil || id <= 0 {
		return 0, HandlerError{Status: http.StatusBadRequest, Message: fmt.Sprintf("Invalid %s ID", label)}
	}
	return id, nil
}

// QueryInt64 reads an optional positive integer query parameter.
func QueryInt64(r *http.Request, key string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := ParsePositiveInt64Field(raw, key)
	if err != nil {
		return nil, FieldError{Field: key, Reason: "must be a positive integer"}
	}
	return &value, nil
}

// QueryBool reads an optional boolean query parameter.
func QueryBool(r *http.Request, key string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, FieldError{Field: key, Reason: "must be true or false"}
	}
	return &value, nil
}

// QueryLimit reads ?limit= bounded by max, falling back to def.
func QueryLimit(r *http.Request, def, max int) int {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return def
	}
	if value > max {
		return max
	}
	return value
}

// ParseTime accepts RFC3339 timestamps or plain dates and returns UTC.
func ParseTime(raw string, field string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, FieldError{Field: field, Reason: "is required"}
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed.UTC(), nil
	}
	if parsed, err := time.Parse(dateLayout, raw); err == nil {
		return parsed.UTC(), nil
	}
	return time.Time{}, FieldError{Field: field, Reason: "must be an RFC3339 timestamp or YYYY-MM-DD date"}
}

// ParseOptionalTime returns nil for an empty value.
func ParseOptionalTime(raw string, field string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parsed, err := ParseTime(raw, field)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// FormatDate renders a date-only value.
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}
