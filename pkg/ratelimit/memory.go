package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count  int
	start  time.Time
	length time.Duration
}

// MemoryStore keeps counters in process. Suitable for a single instance only.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*window
	now      func() time.Time
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ Cleaner = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock sets the time source CleanupExpired measures
// against. Pass the limiter's clock so both agree on when a window ends.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{counters: make(map[string]*window), now: now}
}

func (m *MemoryStore) Hit(_ context.Context, key string, max int, length time.Duration, now time.Time) (Counter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.counters[key]
	if !ok || now.Sub(w.start) >= length {
		w = &window{count: 1, start: now, length: length}
		m.counters[key] = w
		return Counter{Count: 1, WindowStart: now, Allowed: true}, nil
	}

	if w.count >= max {
		return Counter{Count: w.count, WindowStart: w.start, Allowed: false}, nil
	}

	w.count++
	return Counter{Count: w.count, WindowStart: w.start, Allowed: true}, nil
}

func (m *MemoryStore) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.counters, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) CleanupExpired(_ context.Context) (int64, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for k, w := range m.counters {
		if now.Sub(w.start) >= w.length {
			delete(m.counters, k)
			n++
		}
	}
	return n, nil
}
