// Package alerts reports unexpected server errors to administrators with a
// per-signature cooldown so a failing dependency does not flood inboxes.
package alerts

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/email"
)

const DefaultCooldown = 15 * time.Minute

type Config struct {
	Recipients []string
	Cooldown   time.Duration
	Sender     email.EmailSender // nil logs alerts instead of mailing them
	Clock      clockwork.Clock
}

type signatureState struct {
	lastSent   time.Time
	suppressed int
}

type Notifier struct {
	recipients []string
	cooldown   time.Duration
	sender     email.EmailSender
	clock      clockwork.Clock

	mu    sync.Mutex
	state map[string]*signatureState
}

func New(cfg Config) *Notifier {
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Notifier{
		recipients: email.CleanRecipients(cfg.Recipients),
		cooldown:   cooldown,
		sender:     cfg.Sender,
		clock:      clock,
		state:      make(map[string]*signatureState),
	}
}

// Notify reports err from source. It returns false when an alert with the
// same signature was already sent within the cooldown.
func (n *Notifier) Notify(ctx context.Context, source string, err error) bool {
	if n == nil || err == nil {
		return false
	}
	message := SanitizeError(err.Error())
	signature := source + "|" + message
	now := n.clock.Now()

	n.mu.Lock()
	st := n.state[signature]
	if st != nil && now.Sub(st.lastSent) < n.cooldown {
		st.suppressed++
		n.mu.Unlock()
		return false
	}
	suppressed := 0
	if st != nil {
		suppressed = st.suppressed
	}
	n.state[signature] = &signatureState{lastSent: now}
	n.pruneLocked(now)
	n.mu.Unlock()

	logger := log.Ctx(ctx)
	requestID := requestIDFrom(ctx)
	logger.Warn().
		Str("event", "alert").
		Str("source", source).
		Str("alert", message).
		Int("suppressed", suppressed).
		Msg("Error alert raised")

	if n.sender == nil || len(n.recipients) == 0 {
		return true
	}
	msg := email.BuildAlertEmail(email.AlertDetails{
		Source:     source,
		Message:    message,
		Occurrence: now,
		Suppressed: suppressed,
		RequestID:  requestID,
	})
	email.SendDetached(ctx, n.sender, n.recipients, msg, logger)
	return true
}

// pruneLocked drops signatures whose cooldown has long passed.
func (n *Notifier) pruneLocked(now time.Time) {
	if len(n.state) < 256 {
		return
	}
	for signature, st := range n.state {
		if now.Sub(st.lastSent) > 2*n.cooldown {
			delete(n.state, signature)
		}
	}
}

type requestIDKey struct{}

// ContextWithRequestID lets alerts reference the originating request.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
