package apiutil

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone parses raw in the context of defaultRegion and returns it in
// E.164 form. Empty input stays empty.
func NormalizePhone(raw, defaultRegion string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	num, err := phonenumbers.Parse(raw, strings.ToUpper(defaultRegion))
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", FieldError{Field: "contactPhone", Reason: "must be a valid phone number"}
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
