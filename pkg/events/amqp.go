package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/diagnosis/papro-bookings/pkg/logger"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const amqpExchange = "papro.events"

// AMQPEventBus routes subjects through a durable topic exchange. Queue
// subscriptions get a durable queue per (queue, subject) so messages survive
// a notifier restart.
type AMQPEventBus struct {
	conn *amqp.Connection

	mu  sync.Mutex // amqp channels are not safe for concurrent publishing
	pub *amqp.Channel

	wg sync.WaitGroup
}

var _ EventBus = (*AMQPEventBus)(nil)

func NewAMQPEventBus(url string) (*AMQPEventBus, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if err := ch.ExchangeDeclare(amqpExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("exchange declare: %w", err)
	}

	go func() {
		if err, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1)); ok && err != nil {
			logger.Error("AMQP connection closed", "error", err)
		}
	}()

	return &AMQPEventBus{conn: conn, pub: ch}, nil
}

func (b *AMQPEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pub.PublishWithContext(ctx, amqpExchange, subject, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	})
}

// Subscribe binds an exclusive, auto-deleted queue to subject.
func (b *AMQPEventBus) Subscribe(subject string, handler Handler) error {
	return b.consume(subject, "", false, handler)
}

func (b *AMQPEventBus) QueueSubscribe(subject, queue string, handler Handler) error {
	return b.consume(subject, queue+"."+subject, true, handler)
}

func (b *AMQPEventBus) consume(subject, queue string, durable bool, handler Handler) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	if err := ch.Qos(20, 0, false); err != nil {
		logger.Warn("AMQP set QoS failed", "error", err)
	}

	q, err := ch.QueueDeclare(queue, durable, !durable, !durable, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, subject, amqpExchange, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("queue bind: %w", err)
	}

	deliveries, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("queue consume: %w", err)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() { _ = ch.Close() }()

		for d := range deliveries {
			msg := &Message{
				Subject:   d.RoutingKey,
				Data:      d.Body,
				Timestamp: d.Timestamp,
				ID:        d.MessageId,
			}
			if err := handler(context.Background(), msg); err != nil {
				logger.Error("Event handler failed", "subject", d.RoutingKey, "error", err)
				// reject without requeue to avoid tight redelivery loops
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
		logger.Info("AMQP deliveries closed", "queue", q.Name)
	}()
	return nil
}

func (b *AMQPEventBus) Ping(context.Context) error {
	if b.conn.IsClosed() {
		return errors.New("amqp: connection closed")
	}
	return nil
}

func (b *AMQPEventBus) Close() error {
	b.mu.Lock()
	_ = b.pub.Close()
	b.mu.Unlock()

	err := b.conn.Close()
	b.wg.Wait()
	return err
}
