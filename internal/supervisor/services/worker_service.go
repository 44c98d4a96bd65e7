// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// JobRunner matches the eventprocessor MessageHandler's Run method.
type JobRunner interface {
	// Run consumes messages until the context is canceled.
	Run(ctx context.Context) error
}

// WorkerService runs the snapshot classification consumer as a supervised
// service. Concurrency > 1 starts that many Run loops against the same
// queue-group subscription; JetStream balances jobs across them.
type WorkerService struct {
	runner      JobRunner
	concurrency int
	name        string
}

// NewWorkerService creates a classification worker service wrapper.
func NewWorkerService(runner JobRunner, concurrency int) *WorkerService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &WorkerService{
		runner:      runner,
		concurrency: concurrency,
		name:        "classify-worker",
	}
}

// Serve implements suture.Service. The first loop to fail with a real error
// cancels the rest; plain context cancellation is normal shutdown.
func (w *WorkerService) Serve(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, w.concurrency)
	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.runner.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
				cancel()
			}
		}()
	}
	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		return fmt.Errorf("classification worker failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer; suture uses it in log messages.
func (w *WorkerService) String() string {
	return w.name
}
