package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"taxibook/internal/types"
)

// MemoryStore is a process-local Repository used when no database is
// configured. Stored bookings are copied in and out.
type MemoryStore struct {
	mu       sync.RWMutex
	bookings map[types.ID]Booking
	events   []Event
	lastEvID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bookings: make(map[types.ID]Booking)}
}

func (m *MemoryStore) Create(_ context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[b.ID]; ok {
		return ErrConflict
	}
	m.bookings[b.ID] = *b
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id types.ID) (*Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (m *MemoryStore) ListByUser(_ context.Context, userID types.ID) ([]*Booking, error) {
	m.mu.RLock()
	out := make([]*Booking, 0)
	for _, b := range m.bookings {
		if b.UserID == userID {
			b := b
			out = append(out, &b)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, b *Booking, version int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.bookings[b.ID]
	if !ok || cur.Status != StatusPending || cur.StatusVersion != version {
		return false, nil
	}
	next := *b
	next.Status = cur.Status
	next.CreatedAt = cur.CreatedAt
	next.StatusVersion = version + 1
	m.bookings[b.ID] = next
	return true, nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, id types.ID, from, to Status, version int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.bookings[id]
	if !ok || cur.Status != from || cur.StatusVersion != version {
		return false, nil
	}
	cur.Status = to
	cur.StatusVersion++
	cur.UpdatedAt = time.Now()
	m.bookings[id] = cur
	return true, nil
}

func (m *MemoryStore) Delete(_ context.Context, id types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[id]; !ok {
		return ErrNotFound
	}
	delete(m.bookings, id)
	kept := m.events[:0]
	for _, e := range m.events {
		if e.BookingID != id {
			kept = append(kept, e)
		}
	}
	m.events = kept
	return nil
}

func (m *MemoryStore) AppendEvent(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev := *e
	m.lastEvID++
	ev.ID = m.lastEvID
	m.events = append(m.events, ev)
	return nil
}

// Events returns the status history recorded for id.
func (m *MemoryStore) Events(id types.ID) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Event
	for _, e := range m.events {
		if e.BookingID == id {
			out = append(out, e)
		}
	}
	return out
}
