// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package services

import (
	"context"
	"time"

	"github.com/proctorlens/proctorlens/internal/logging"
)

// GarbageCollector matches the Badger counter store's RunGC method.
type GarbageCollector interface {
	RunGC() error
}

// CounterGCService runs the counter store's value-log garbage collection on
// an interval. GC errors are logged and do not crash the service; expired
// counters are already invisible to reads, GC only reclaims disk.
type CounterGCService struct {
	gc       GarbageCollector
	interval time.Duration
	name     string
}

// NewCounterGCService creates a counter GC service wrapper.
func NewCounterGCService(gc GarbageCollector, interval time.Duration) *CounterGCService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CounterGCService{
		gc:       gc,
		interval: interval,
		name:     "counter-gc",
	}
}

// Serve implements suture.Service.
func (s *CounterGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.gc.RunGC(); err != nil {
				logging.Warn().Err(err).Msg("Counter store GC failed")
			}
		}
	}
}

// String implements fmt.Stringer; suture uses it in log messages.
func (s *CounterGCService) String() string {
	return s.name
}
