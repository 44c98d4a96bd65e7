// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package eventprocessor

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockJetStream records calls and simulates stream existence.
type mockJetStream struct {
	exists    bool
	streamErr error
	created   []jetstream.StreamConfig
	updated   []jetstream.StreamConfig
	createErr error
	updateErr error
}

func (m *mockJetStream) Stream(ctx context.Context, name string) (jetstream.Stream, error) {
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	if !m.exists {
		return nil, jetstream.ErrStreamNotFound
	}
	return nil, nil
}

func (m *mockJetStream) CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, cfg)
	m.exists = true
	return nil, nil
}

func (m *mockJetStream) UpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	m.updated = append(m.updated, cfg)
	return nil, nil
}

func (m *mockJetStream) DeleteStream(ctx context.Context, name string) error {
	m.exists = false
	return nil
}

func streamConfigFixture() *StreamConfig {
	cfg := NewStreamConfig(natsConfigFixture())
	return &cfg
}

func TestNewStreamInitializerValidation(t *testing.T) {
	_, err := NewStreamInitializer(nil, streamConfigFixture())
	assert.Error(t, err)

	_, err = NewStreamInitializer(&mockJetStream{}, nil)
	assert.Error(t, err)
}

func TestEnsureStreamCreatesWhenMissing(t *testing.T) {
	js := &mockJetStream{}
	init, err := NewStreamInitializer(js, streamConfigFixture())
	require.NoError(t, err)

	_, err = init.EnsureStream(context.Background())
	require.NoError(t, err)
	require.Len(t, js.created, 1)
	assert.Equal(t, "SNAPSHOT_JOBS", js.created[0].Name)
	assert.Equal(t, []string{"snapshots.process"}, js.created[0].Subjects)
	assert.Equal(t, jetstream.FileStorage, js.created[0].Storage)
	assert.Empty(t, js.updated)
}

func TestEnsureStreamUpdatesWhenPresent(t *testing.T) {
	js := &mockJetStream{exists: true}
	init, err := NewStreamInitializer(js, streamConfigFixture())
	require.NoError(t, err)

	_, err = init.EnsureStream(context.Background())
	require.NoError(t, err)
	assert.Empty(t, js.created)
	assert.Len(t, js.updated, 1)
}

func TestEnsureStreamIdempotent(t *testing.T) {
	js := &mockJetStream{}
	init, err := NewStreamInitializer(js, streamConfigFixture())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = init.EnsureStream(ctx)
	require.NoError(t, err)
	_, err = init.EnsureStream(ctx)
	require.NoError(t, err)

	assert.Len(t, js.created, 1)
	assert.Len(t, js.updated, 1)
}

func TestEnsureStreamPropagatesUnexpectedErrors(t *testing.T) {
	js := &mockJetStream{streamErr: errors.New("connection lost")}
	init, err := NewStreamInitializer(js, streamConfigFixture())
	require.NoError(t, err)

	_, err = init.EnsureStream(context.Background())
	assert.ErrorContains(t, err, "connection lost")
}

func TestIsHealthy(t *testing.T) {
	js := &mockJetStream{exists: true}
	init, err := NewStreamInitializer(js, streamConfigFixture())
	require.NoError(t, err)
	assert.True(t, init.IsHealthy(context.Background()))

	js.exists = false
	assert.False(t, init.IsHealthy(context.Background()))
}
