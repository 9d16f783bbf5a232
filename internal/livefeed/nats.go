package livefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATSSink publishes live feed messages on <prefix>.games.<id>.<kind>.
type NATSSink struct {
	nc     *nats.Conn
	prefix string
}

func NewNATSSink(url, prefix string) (*NATSSink, error) {
	opts := []nats.Option{
		nats.Name("shotspot-livefeed"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Error().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSSink{nc: nc, prefix: prefix}, nil
}

func Subject(prefix string, gameID int64, kind string) string {
	return fmt.Sprintf("%s.games.%d.%s", prefix, gameID, kind)
}

func (s *NATSSink) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal live feed message: %w", err)
	}
	if err := s.nc.Publish(Subject(s.prefix, msg.GameID, msg.Kind), data); err != nil {
		return fmt.Errorf("publish live feed message: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (s *NATSSink) Close() {
	if err := s.nc.Drain(); err != nil {
		log.Error().Err(err).Msg("Failed to drain NATS connection")
		s.nc.Close()
	}
}
