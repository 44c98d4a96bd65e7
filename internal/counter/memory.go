// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package counter

import (
	"context"
	"sync"
	"time"

	"github.com/proctorlens/proctorlens/internal/metrics"
)

// memoryEntry is one counter or marker with its expiry.
type memoryEntry struct {
	value     int64
	expiresAt time.Time
}

// MemoryStore is an in-memory counter store for testing and single-run
// development. Entries are lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	closed  bool

	// now is swappable in tests
	now func() time.Time
}

// NewMemoryStore creates a new in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// live returns the entry at key if it exists and has not expired, pruning
// expired entries as a side effect. Caller must hold mu.
func (s *MemoryStore) live(key string) *memoryEntry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return nil
	}
	return e
}

// Increment atomically increments the counter at key.
func (s *MemoryStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		metrics.CounterStoreOperationsTotal.WithLabelValues("increment", "failure").Inc()
		return 0, ErrStoreClosed
	}

	e := s.live(key)
	if e == nil {
		e = &memoryEntry{value: 0, expiresAt: s.now().Add(ttl)}
		s.entries[key] = e
	}
	e.value++

	metrics.CounterStoreOperationsTotal.WithLabelValues("increment", "success").Inc()
	return e.value, nil
}

// Get returns the current counter value, or 0 if absent or expired.
func (s *MemoryStore) Get(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	e := s.live(key)
	if e == nil {
		return 0, nil
	}
	return e.value, nil
}

// SetIfAbsent atomically claims key if no live marker exists.
func (s *MemoryStore) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		metrics.CounterStoreOperationsTotal.WithLabelValues("set_if_absent", "failure").Inc()
		return false, ErrStoreClosed
	}

	if s.live(key) != nil {
		metrics.CounterStoreOperationsTotal.WithLabelValues("set_if_absent", "success").Inc()
		return false, nil
	}

	s.entries[key] = &memoryEntry{value: 1, expiresAt: s.now().Add(ttl)}
	metrics.CounterStoreOperationsTotal.WithLabelValues("set_if_absent", "success").Inc()
	return true, nil
}

// Close closes the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = nil
	return nil
}
