package email

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const sendTimeout = 10 * time.Second

// SendAsync delivers msg to every recipient in the background. Cancelling the
// parent context aborts sends still in flight.
func SendAsync(ctx context.Context, sender EmailSender, recipients []string, msg Message, logger *zerolog.Logger) {
	if sender == nil || msg.Subject == "" || msg.Body == "" {
		return
	}
	cleaned := CleanRecipients(recipients)
	if len(cleaned) == 0 {
		return
	}

	go func() {
		for _, recipient := range cleaned {
			sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
			err := sender.Send(sendCtx, recipient, msg)
			cancel()
			if err != nil && logger != nil {
				logger.Error().Err(err).Str("recipient", recipient).Str("subject", msg.Subject).Msg("Failed to send email")
			}
		}
	}()
}

// SendDetached is SendAsync for callers whose context ends with the request.
// Context values such as the logger survive; cancellation does not.
func SendDetached(ctx context.Context, sender EmailSender, recipients []string, msg Message, logger *zerolog.Logger) {
	if ctx == nil {
		ctx = context.Background()
	}
	SendAsync(context.WithoutCancel(ctx), sender, recipients, msg, logger)
}

// CleanRecipients splits comma separated entries, trims, lowercases and
// drops duplicates and blanks.
func CleanRecipients(recipients []string) []string {
	seen := make(map[string]struct{}, len(recipients))
	cleaned := make([]string, 0, len(recipients))
	for _, raw := range recipients {
		for _, part := range strings.Split(raw, ",") {
			address := strings.ToLower(strings.TrimSpace(part))
			if address == "" {
				continue
			}
			if _, ok := seen[address]; ok {
				continue
			}
			seen[address] = struct{}{}
			cleaned = append(cleaned, address)
		}
	}
	return cleaned
}
