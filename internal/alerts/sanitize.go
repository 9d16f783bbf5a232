package alerts

import (
	"regexp"
	"strings"
)

const maxAlertLength = 300

var (
	sqlStatementPattern = regexp.MustCompile(`(?is)\b(select|insert|update|delete|create|drop|alter)\b\s.*$`)
	quotedPattern       = regexp.MustCompile(`'[^']*'|"[^"]*"`)
	emailPattern        = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	numberPattern       = regexp.MustCompile(`\b\d+(\.\d+)?\b`)
	spacePattern        = regexp.MustCompile(`\s+`)
)

// SanitizeError strips SQL statements, quoted literals, email addresses and
// numbers from an error message so alerts never carry user data. Identical
// failures with different values map to the same text.
func SanitizeError(message string) string {
	message = sqlStatementPattern.ReplaceAllString(message, "[sql]")
	message = quotedPattern.ReplaceAllString(message, "?")
	message = emailPattern.ReplaceAllString(message, "[email]")
	message = numberPattern.ReplaceAllString(message, "?")
	message = strings.TrimSpace(spacePattern.ReplaceAllString(message, " "))
	if len(message) > maxAlertLength {
		message = message[:maxAlertLength] + "..."
	}
	if message == "" {
		return "unknown error"
	}
	return message
}
