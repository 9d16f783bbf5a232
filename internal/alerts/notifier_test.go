package alerts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/codr1/ShotSpot/internal/email"
)

type countingSender struct {
	mu    sync.Mutex
	sends int
	done  chan struct{}
}

func (c *countingSender) Send(ctx context.Context, recipient string, msg email.Message) error {
	c.mu.Lock()
	c.sends++
	c.mu.Unlock()
	c.done <- struct{}{}
	return nil
}

func TestNotifierCooldownPerSignature(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sender := &countingSender{done: make(chan struct{}, 8)}
	n := New(Config{
		Recipients: []string{"ops@example.com"},
		Cooldown:   15 * time.Minute,
		Sender:     sender,
		Clock:      clock,
	})
	ctx := context.Background()

	if !n.Notify(ctx, "api", errors.New("UNIQUE constraint failed: clubs.name")) {
		t.Fatalf("first alert should be sent")
	}
	<-sender.done

	if n.Notify(ctx, "api", errors.New("UNIQUE constraint failed: clubs.name")) {
		t.Fatalf("repeat alert inside cooldown should be suppressed")
	}
	if !n.Notify(ctx, "scheduler", errors.New("UNIQUE constraint failed: clubs.name")) {
		t.Fatalf("different source should not share a cooldown")
	}
	<-sender.done

	clock.Advance(15 * time.Minute)
	if !n.Notify(ctx, "api", errors.New("UNIQUE constraint failed: clubs.name")) {
		t.Fatalf("alert after cooldown should be sent")
	}
	<-sender.done
}

func TestNotifierWithoutSenderOnlyLogs(t *testing.T) {
	n := New(Config{})
	if !n.Notify(context.Background(), "api", errors.New("boom")) {
		t.Fatalf("expected alert to be raised")
	}
	if n.Notify(context.Background(), "api", nil) {
		t.Fatalf("nil errors should be ignored")
	}
}

func TestSanitizeError(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "strips statement",
			input: "near \"FROM\": syntax error in SELECT * FROM users WHERE email = 'a@b.com'",
			want:  "near ?: syntax error in [sql]",
		},
		{
			name:  "masks literals and ids",
			input: "player 42 with email coach@example.com not found",
			want:  "player ? with email [email] not found",
		},
		{
			name:  "same shape for different values",
			input: "jersey '12' taken",
			want:  "jersey ? taken",
		},
		{
			name:  "empty",
			input: "   ",
			want:  "unknown error",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeError(tc.input); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}
