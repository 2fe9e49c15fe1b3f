package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Record is the fixed-window counter for one client/endpoint key
type Record struct {
	Count     int
	ResetTime time.Time
}

// Store persists window records.
//
// The in-memory implementation is the default; RedisStore lets several
// server replicas share one quota.
type Store interface {
	Get(ctx context.Context, key string) (Record, bool, error)
	Set(ctx context.Context, key string, rec Record) error
	Delete(ctx context.Context, key string) error

	// Sweep removes every record whose window ended before now and
	// returns how many were removed.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// MemoryStore keeps records in a process-local map. It starts empty.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Record, bool, error) {
	s.mu.Lock()
	rec, ok := s.records[key]
	s.mu.Unlock()
	return rec, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, rec Record) error {
	s.mu.Lock()
	s.records[key] = rec
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, rec := range s.records {
		if now.After(rec.ResetTime) {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of tracked keys
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
