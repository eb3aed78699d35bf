package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store persists per-client daily counters.
type Store interface {
	// Admit atomically checks and increments the counter for key on day.
	// A record from an earlier day is treated as a fresh zero count. When the
	// current count has reached limit the counter is left untouched and
	// allowed is false. expireAt is a hint for stores that can expire keys.
	Admit(ctx context.Context, key, day string, limit int64, expireAt time.Time) (count int64, allowed bool, err error)

	// Name identifies the backend in logs and metrics.
	Name() string
}

// Sweeper is implemented by stores that keep records from past days around
// until they are explicitly removed.
type Sweeper interface {
	// Sweep removes every record whose day is before day and reports how
	// many were removed.
	Sweep(ctx context.Context, day string) (int, error)
}

// Record is a client's usage on a single day.
type Record struct {
	Count int64
	Day   string
}

// MemoryStore keeps counters in process memory. Counts are lost on restart
// and are not shared between replicas.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Admit(_ context.Context, key, day string, limit int64, _ time.Time) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[key]
	if !ok || rec.Day != day {
		rec = &Record{Day: day}
		m.records[key] = rec
	}
	if rec.Count >= limit {
		return rec.Count, false, nil
	}
	rec.Count++
	return rec.Count, true, nil
}

func (m *MemoryStore) Sweep(_ context.Context, day string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, rec := range m.records {
		if rec.Day < day {
			delete(m.records, key)
			removed++
		}
	}
	return removed, nil
}

// Get returns a copy of the record for key.
func (m *MemoryStore) Get(key string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Len reports the number of tracked clients.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
