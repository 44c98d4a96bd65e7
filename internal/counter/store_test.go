// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package counter

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories lets the same suite run against both backends.
func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"badger": func(t *testing.T) Store {
			s, err := NewBadgerStore("")
			require.NoError(t, err)
			return s
		},
	}
}

func TestIncrementSequence(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()
			ctx := context.Background()

			for want := int64(1); want <= 5; want++ {
				got, err := s.Increment(ctx, "session:a:TAB_ABUSE:100", time.Minute)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}

			val, err := s.Get(ctx, "session:a:TAB_ABUSE:100")
			require.NoError(t, err)
			assert.Equal(t, int64(5), val)
		})
	}
}

func TestIncrementIsolatedKeys(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()
			ctx := context.Background()

			_, err := s.Increment(ctx, "session:a:PASTE:1", time.Minute)
			require.NoError(t, err)
			got, err := s.Increment(ctx, "session:b:PASTE:1", time.Minute)
			require.NoError(t, err)
			assert.Equal(t, int64(1), got, "different sessions must not share counters")
		})
	}
}

func TestSetIfAbsentSingleWinner(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()
			ctx := context.Background()

			first, err := s.SetIfAbsent(ctx, "session:a:incident:100", time.Minute)
			require.NoError(t, err)
			assert.True(t, first)

			second, err := s.SetIfAbsent(ctx, "session:a:incident:100", time.Minute)
			require.NoError(t, err)
			assert.False(t, second)
		})
	}
}

func TestConcurrentIncrementsLoseNothing(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()
			ctx := context.Background()

			const goroutines = 8
			const perGoroutine = 25

			var wg sync.WaitGroup
			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < perGoroutine; j++ {
						_, err := s.Increment(ctx, "hot-key", time.Minute)
						assert.NoError(t, err)
					}
				}()
			}
			wg.Wait()

			val, err := s.Get(ctx, "hot-key")
			require.NoError(t, err)
			assert.Equal(t, int64(goroutines*perGoroutine), val)
		})
	}
}

func TestConcurrentSetIfAbsentSingleWinner(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()
			ctx := context.Background()

			const goroutines = 16
			wins := make(chan bool, goroutines)

			var wg sync.WaitGroup
			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					claimed, err := s.SetIfAbsent(ctx, "contested-marker", time.Minute)
					assert.NoError(t, err)
					wins <- claimed
				}()
			}
			wg.Wait()
			close(wins)

			winners := 0
			for claimed := range wins {
				if claimed {
					winners++
				}
			}
			assert.Equal(t, 1, winners, "exactly one goroutine must claim the marker")
		})
	}
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			require.NoError(t, s.Close())
			ctx := context.Background()

			_, err := s.Increment(ctx, "k", time.Minute)
			assert.ErrorIs(t, err, ErrStoreClosed)
			_, err = s.SetIfAbsent(ctx, "k", time.Minute)
			assert.ErrorIs(t, err, ErrStoreClosed)
		})
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	_, err := s.Increment(ctx, "session:a:TAB_ABUSE:100", 2*time.Minute)
	require.NoError(t, err)
	_, err = s.Increment(ctx, "session:a:TAB_ABUSE:100", 2*time.Minute)
	require.NoError(t, err)

	// Advance past the TTL anchored at the first increment
	s.now = func() time.Time { return now.Add(3 * time.Minute) }

	val, err := s.Get(ctx, "session:a:TAB_ABUSE:100")
	require.NoError(t, err)
	assert.Equal(t, int64(0), val)

	// Counting restarts after expiry
	got, err := s.Increment(ctx, "session:a:TAB_ABUSE:100", 2*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)

	// Expired markers can be claimed again
	claimed, err := s.SetIfAbsent(ctx, "marker", time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)
	s.now = func() time.Time { return now.Add(10 * time.Minute) }
	claimed, err = s.SetIfAbsent(ctx, "marker", time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestBadgerStoreManyKeys(t *testing.T) {
	s, err := NewBadgerStore("")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("session:%d:PASTE:7", i)
		got, err := s.Increment(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got)
	}
}
