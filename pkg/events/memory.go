package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/diagnosis/papro-bookings/pkg/logger"
	"github.com/google/uuid"
)

// MemoryBus delivers events synchronously to in-process subscribers and logs
// every publish. It backs single-process deployments and tests.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	queues   map[string]bool
	closed   bool
}

var _ EventBus = (*MemoryBus)(nil)

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[string][]Handler),
		queues:   make(map[string]bool),
	}
}

func (b *MemoryBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.InfoContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("event bus closed")
	}
	handlers := append([]Handler(nil), b.handlers[subject]...)
	b.mu.RUnlock()

	msg := &Message{Subject: subject, Data: payload, Timestamp: time.Now(), ID: uuid.NewString()}
	for _, h := range handlers {
		if err := h(ctx, msg); err != nil {
			logger.ErrorContext(ctx, "Event handler failed", "subject", subject, "error", err)
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(subject string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[subject] = append(b.handlers[subject], handler)
	return nil
}

// QueueSubscribe keeps a single handler per (queue, subject), mirroring
// queue-group delivery where each message reaches one member.
func (b *MemoryBus) QueueSubscribe(subject, queue string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := queue + "\x00" + subject
	if b.queues[key] {
		return nil
	}
	b.queues[key] = true
	b.handlers[subject] = append(b.handlers[subject], handler)
	return nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}
