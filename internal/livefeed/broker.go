// Package livefeed fans game events out to websocket clients and, when
// configured, to NATS.
package livefeed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	KindShot         = "shot"
	KindEvent        = "event"
	KindSubstitution = "substitution"
	KindClock        = "clock"
	KindScore        = "score"
	KindStatus       = "status"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

const subscriberBuffer = 64

type Message struct {
	Kind    string    `json:"kind"`
	Action  string    `json:"action"`
	GameID  int64     `json:"gameId"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// Sink receives every published message in addition to local subscribers.
type Sink interface {
	Publish(ctx context.Context, msg Message) error
}

type Subscription struct {
	gameID int64
	ch     chan Message
}

// C delivers messages for the subscribed game. It is closed on Unsubscribe.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

type Broker struct {
	mu     sync.RWMutex
	subs   map[int64]map[*Subscription]struct{}
	sinks  []Sink
	closed bool
}

func NewBroker(sinks ...Sink) *Broker {
	return &Broker{
		subs:  make(map[int64]map[*Subscription]struct{}),
		sinks: sinks,
	}
}

func (b *Broker) Subscribe(gameID int64) *Subscription {
	sub := &Subscription{gameID: gameID, ch: make(chan Message, subscriberBuffer)}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub
	}
	if b.subs[gameID] == nil {
		b.subs[gameID] = make(map[*Subscription]struct{})
	}
	b.subs[gameID][sub] = struct{}{}
	return sub
}

func (b *Broker) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.subs[sub.gameID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.ch)
	if len(subs) == 0 {
		delete(b.subs, sub.gameID)
	}
}

// Subscribers returns the number of local subscribers for a game.
func (b *Broker) Subscribers(gameID int64) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[gameID])
}

// Publish delivers msg to local subscribers without blocking and forwards it
// to every sink. Slow subscribers miss messages rather than stall writers.
func (b *Broker) Publish(ctx context.Context, msg Message) {
	if b == nil {
		return
	}
	if msg.At.IsZero() {
		msg.At = time.Now().UTC()
	}

	b.mu.RLock()
	for sub := range b.subs[msg.GameID] {
		select {
		case sub.ch <- msg:
		default:
			log.Ctx(ctx).Warn().Int64("game_id", msg.GameID).Str("kind", msg.Kind).Msg("Live feed subscriber full, dropping message")
		}
	}
	sinks := b.sinks
	b.mu.RUnlock()

	for _, sink := range sinks {
		if err := sink.Publish(ctx, msg); err != nil {
			log.Ctx(ctx).Error().Err(err).Int64("game_id", msg.GameID).Str("kind", msg.Kind).Msg("Failed to forward live feed message")
		}
	}
}

// Close ends every subscription.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for gameID, subs := range b.subs {
		for sub := range subs {
			close(sub.ch)
		}
		delete(b.subs, gameID)
	}
}
