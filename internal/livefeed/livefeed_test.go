package livefeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type recordingSink struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (s *recordingSink) Publish(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return s.err
}

func TestBrokerDeliversPerGame(t *testing.T) {
	sink := &recordingSink{err: errors.New("offline")}
	broker := NewBroker(sink)
	defer broker.Close()

	gameOne := broker.Subscribe(1)
	gameTwo := broker.Subscribe(2)

	broker.Publish(context.Background(), Message{Kind: KindShot, Action: ActionCreated, GameID: 1})

	select {
	case msg := <-gameOne.C():
		if msg.Kind != KindShot || msg.At.IsZero() {
			t.Fatalf("unexpected message: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected message for game 1")
	}

	select {
	case msg := <-gameTwo.C():
		t.Fatalf("game 2 should not receive %+v", msg)
	default:
	}

	if len(sink.msgs) != 1 {
		t.Fatalf("sink messages: got %d want 1", len(sink.msgs))
	}
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe(5)
	if broker.Subscribers(5) != 1 {
		t.Fatalf("expected one subscriber")
	}
	broker.Unsubscribe(sub)
	broker.Unsubscribe(sub)
	if _, ok := <-sub.C(); ok {
		t.Fatalf("expected closed channel")
	}
	if broker.Subscribers(5) != 0 {
		t.Fatalf("expected no subscribers")
	}
}

func TestBrokerDropsWhenSubscriberFull(t *testing.T) {
	broker := NewBroker()
	defer broker.Close()
	sub := broker.Subscribe(1)

	for i := 0; i < subscriberBuffer+10; i++ {
		broker.Publish(context.Background(), Message{Kind: KindEvent, GameID: 1})
	}
	if got := len(sub.C()); got != subscriberBuffer {
		t.Fatalf("buffered: got %d want %d", got, subscriberBuffer)
	}
}

func TestSubject(t *testing.T) {
	if got := Subject("shotspot", 42, KindShot); got != "shotspot.games.42.shot" {
		t.Fatalf("got %q", got)
	}
}

func TestStreamerRelaysMessages(t *testing.T) {
	broker := NewBroker()
	defer broker.Close()
	streamer := NewStreamer(broker, nil)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = streamer.Serve(w, r, 9)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for broker.Subscribers(9) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	broker.Publish(context.Background(), Message{Kind: KindClock, Action: ActionUpdated, GameID: 9})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Message
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Kind != KindClock || got.GameID != 9 {
		t.Fatalf("unexpected message: %+v", got)
	}
}
