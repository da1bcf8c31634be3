package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/diagnosis/papro-bookings/pkg/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

type NATSEventBus struct {
	conn *nats.Conn
}

var _ EventBus = (*NATSEventBus)(nil)

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url,
		nats.Name("papro-bookings"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler Handler) error {
	_, err := n.conn.Subscribe(subject, n.wrap(handler))
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler Handler) error {
	_, err := n.conn.QueueSubscribe(subject, queue, n.wrap(handler))
	return err
}

func (n *NATSEventBus) wrap(handler Handler) nats.MsgHandler {
	return func(msg *nats.Msg) {
		m := &Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        uuid.NewString(),
		}
		if err := handler(context.Background(), m); err != nil {
			logger.Error("Event handler failed", "subject", msg.Subject, "error", err)
		}
	}
}

// Ping reports whether the connection is currently usable.
func (n *NATSEventBus) Ping(context.Context) error {
	if !n.conn.IsConnected() {
		return fmt.Errorf("nats: %s", n.conn.Status())
	}
	return nil
}

func (n *NATSEventBus) Close() error {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
	}
	return nil
}
