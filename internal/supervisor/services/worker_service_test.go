// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	started atomic.Int32
	err     error
}

func (f *fakeRunner) Run(ctx context.Context) error {
	f.started.Add(1)
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestWorkerServiceRunsConcurrentLoops(t *testing.T) {
	runner := &fakeRunner{}
	svc := NewWorkerService(runner, 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
	assert.Equal(t, int32(3), runner.started.Load())
}

func TestWorkerServicePropagatesRunnerError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("subscription lost")}
	svc := NewWorkerService(runner, 2)

	err := svc.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscription lost")
}

func TestWorkerServiceDefaultsConcurrency(t *testing.T) {
	runner := &fakeRunner{}
	svc := NewWorkerService(runner, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = svc.Serve(ctx)

	assert.Equal(t, int32(1), runner.started.Load())
	assert.Equal(t, "classify-worker", svc.String())
}
