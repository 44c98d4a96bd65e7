// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package counter

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/proctorlens/proctorlens/internal/metrics"
)

// maxTxnRetries bounds retries on optimistic transaction conflicts.
const maxTxnRetries = 100

// BadgerStore is a BadgerDB-backed counter store for production use.
// Counters survive restarts and BadgerDB's native TTL handles expiry.
type BadgerStore struct {
	db      *badger.DB
	ownsDB  bool
	closed  bool
	mu      sync.RWMutex
	offDisk bool
}

// NewBadgerStore opens a BadgerDB at path and wraps it as a counter store.
// An empty path opens an in-memory BadgerDB, used by tests.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &BadgerStore{db: db, ownsDB: true, offDisk: path == ""}, nil
}

// NewBadgerStoreWithDB wraps an existing BadgerDB instance. The store does
// not close the DB on Close.
func NewBadgerStoreWithDB(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Increment atomically increments the counter at key. The TTL set on first
// increment is preserved on subsequent ones via the entry's remaining expiry.
func (s *BadgerStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		metrics.CounterStoreOperationsTotal.WithLabelValues("increment", "failure").Inc()
		return 0, ErrStoreClosed
	}
	s.mu.RUnlock()

	k := []byte(key)
	var newVal int64

	err := s.withRetry(ctx, func(txn *badger.Txn) error {
		var current int64
		entryTTL := ttl

		item, err := txn.Get(k)
		switch {
		case err == nil:
			if valErr := item.Value(func(val []byte) error {
				parsed, perr := strconv.ParseInt(string(val), 10, 64)
				if perr != nil {
					return perr
				}
				current = parsed
				return nil
			}); valErr != nil {
				return valErr
			}
			// Keep the window anchored at the first increment
			if exp := item.ExpiresAt(); exp > 0 {
				remaining := time.Until(time.Unix(int64(exp), 0))
				if remaining <= 0 {
					current = 0
				} else {
					entryTTL = remaining
				}
			}
		case errors.Is(err, badger.ErrKeyNotFound):
			current = 0
		default:
			return err
		}

		newVal = current + 1
		e := badger.NewEntry(k, []byte(strconv.FormatInt(newVal, 10))).WithTTL(entryTTL)
		return txn.SetEntry(e)
	})

	if err != nil {
		metrics.CounterStoreOperationsTotal.WithLabelValues("increment", "failure").Inc()
		return 0, err
	}

	metrics.CounterStoreOperationsTotal.WithLabelValues("increment", "success").Inc()
	return newVal, nil
}

// Get returns the current counter value, or 0 if absent or expired.
func (s *BadgerStore) Get(ctx context.Context, key string) (int64, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return 0, ErrStoreClosed
	}
	s.mu.RUnlock()

	var value int64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			parsed, perr := strconv.ParseInt(string(val), 10, 64)
			if perr != nil {
				return perr
			}
			value = parsed
			return nil
		})
	})

	return value, err
}

// SetIfAbsent atomically claims key if no live marker exists.
func (s *BadgerStore) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		metrics.CounterStoreOperationsTotal.WithLabelValues("set_if_absent", "failure").Inc()
		return false, ErrStoreClosed
	}
	s.mu.RUnlock()

	k := []byte(key)
	var claimed bool

	err := s.withRetry(ctx, func(txn *badger.Txn) error {
		claimed = false
		_, err := txn.Get(k)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		e := badger.NewEntry(k, []byte("1")).WithTTL(ttl)
		if err := txn.SetEntry(e); err != nil {
			return err
		}
		claimed = true
		return nil
	})

	if err != nil {
		metrics.CounterStoreOperationsTotal.WithLabelValues("set_if_absent", "failure").Inc()
		return false, err
	}

	metrics.CounterStoreOperationsTotal.WithLabelValues("set_if_absent", "success").Inc()
	return claimed, nil
}

// withRetry runs fn in an update transaction, retrying on optimistic
// concurrency conflicts.
func (s *BadgerStore) withRetry(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxTxnRetries; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		time.Sleep(time.Duration(i%10) * time.Millisecond)
	}
	return err
}

// RunGC runs one round of BadgerDB value log garbage collection.
// Returns nil when there is nothing to collect.
func (s *BadgerStore) RunGC() error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrStoreClosed
	}
	s.mu.RUnlock()

	if s.offDisk {
		return nil
	}

	err := s.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// Close closes the underlying DB when owned by this store.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
