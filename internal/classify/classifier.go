// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package classify

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/proctorlens/proctorlens/internal/models"
)

// Classifier counts faces in a snapshot. Implementations may fetch the
// underlying media via the snapshot's storage key.
type Classifier interface {
	Classify(ctx context.Context, snapshot *models.Snapshot) (int, error)
}

// StubClassifier is a placeholder face detector that samples a face count
// from a fixed distribution: 30% zero faces, 60% one face, 10% two faces.
// It stands in until a real vision backend is wired; the worker's incident
// logic is independent of which classifier produced the count.
type StubClassifier struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewStubClassifier creates a stub classifier. Seed 0 seeds from the clock;
// any other value gives a deterministic sequence for tests.
func NewStubClassifier(seed int64) *StubClassifier {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &StubClassifier{rng: rand.New(rand.NewSource(seed))}
}

// Classify samples a face count.
func (c *StubClassifier) Classify(ctx context.Context, snapshot *models.Snapshot) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch v := c.rng.Float64(); {
	case v < 0.30:
		return 0, nil
	case v < 0.90:
		return 1, nil
	default:
		return 2, nil
	}
}

// FixedClassifier always returns the same face count. Used by tests.
type FixedClassifier struct {
	Faces int
	Err   error
}

// Classify returns the fixed face count.
func (c FixedClassifier) Classify(ctx context.Context, snapshot *models.Snapshot) (int, error) {
	return c.Faces, c.Err
}
