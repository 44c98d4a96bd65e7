// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

// Package counter provides the sliding-window counter store backing the rule
// engine. Counters are bucketed per minute by their key and expire via TTL,
// so a window query is a sum over the live buckets.
//
// Two operations matter for correctness:
//   - Increment is atomic: concurrent increments of the same key never lose
//     updates, and the TTL set on first increment is preserved by later ones.
//   - SetIfAbsent is an atomic claim: exactly one caller wins for a given
//     key, which is how the rule engine guarantees at most one incident per
//     window bucket.
package counter

import (
	"context"
	"errors"
	"time"
)

// Store-level errors.
var (
	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("counter store is closed")
)

// Store is the sliding-window counter store interface.
type Store interface {
	// Increment atomically increments the counter at key by one and returns
	// the new value. When the key does not exist it is created with value 1
	// and the given TTL; when it exists the remaining TTL is preserved.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Get returns the current value of the counter at key, or 0 if the key
	// does not exist or has expired.
	Get(ctx context.Context, key string) (int64, error)

	// SetIfAbsent atomically stores a marker at key with the given TTL if no
	// live marker exists. Returns true if this call claimed the key.
	SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Close closes the store and releases resources.
	Close() error
}

