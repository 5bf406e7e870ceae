package events

import (
	"context"
	"sync"
)

// MemoryStore keeps the most recent events in a fixed-size ring.
type MemoryStore struct {
	mu     sync.RWMutex
	ring   []Event
	next   int
	size   int
	closed bool
}

// NewMemoryStore creates a ring holding up to capacity events.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryStore{ring: make([]Event, capacity)}
}

func (s *MemoryStore) Record(ctx context.Context, e *Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.prepare()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.ring[s.next] = *e
	s.next = (s.next + 1) % len(s.ring)
	if s.size < len(s.ring) {
		s.size++
	}
	return nil
}

func (s *MemoryStore) List(ctx context.Context, f Filter) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	limit := f.limit()
	out := make([]Event, 0, min(limit, s.size))
	for i := 1; i <= s.size && len(out) < limit; i++ {
		e := &s.ring[(s.next-i+len(s.ring))%len(s.ring)]
		if f.match(e) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *MemoryStore) Purge(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	n := s.size
	clear(s.ring)
	s.next, s.size = 0, 0
	return n, nil
}

func (s *MemoryStore) Healthcheck(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

var _ Store = (*MemoryStore)(nil)
