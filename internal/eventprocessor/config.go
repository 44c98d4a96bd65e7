// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package eventprocessor

import (
	"time"

	"github.com/proctorlens/proctorlens/internal/config"
)

// PublisherConfig configures the classification job publisher.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool
}

// SubscriberConfig configures the durable classification job subscriber.
type SubscriberConfig struct {
	URL              string
	StreamName       string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	MaxReconnects    int
	ReconnectWait    time.Duration
	MaxDeliver       int
	MaxAckPending    int
	AckWaitTimeout   time.Duration
	CloseTimeout     time.Duration
}

// StreamConfig configures the JetStream stream holding classification jobs.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// ServerConfig configures the embedded NATS server.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// NewPublisherConfig derives publisher settings from the application config.
func NewPublisherConfig(cfg *config.NATSConfig) PublisherConfig {
	return PublisherConfig{
		URL:              cfg.URL,
		MaxReconnects:    -1, // Reconnect forever
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024,
		EnableTrackMsgID: true,
	}
}

// NewSubscriberConfig derives subscriber settings from the application config.
// SubscribersCount stays at 1: worker concurrency is the supervised worker
// service's dimension, which runs one consume loop per worker.
func NewSubscriberConfig(cfg *config.NATSConfig) SubscriberConfig {
	ackWait := cfg.AckWaitTimeout
	if ackWait <= 0 {
		ackWait = 30 * time.Second
	}
	return SubscriberConfig{
		URL:              cfg.URL,
		StreamName:       cfg.StreamName,
		DurableName:      cfg.DurableName,
		QueueGroup:       cfg.QueueGroup,
		SubscribersCount: 1,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		MaxDeliver:       5,
		MaxAckPending:    256,
		AckWaitTimeout:   ackWait,
		CloseTimeout:     30 * time.Second,
	}
}

// NewStreamConfig derives stream settings from the application config.
func NewStreamConfig(cfg *config.NATSConfig) StreamConfig {
	return StreamConfig{
		Name:            cfg.StreamName,
		Subjects:        []string{cfg.Topic},
		MaxAge:          7 * 24 * time.Hour,
		MaxBytes:        cfg.MaxStore,
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// NewServerConfig derives embedded server settings from the application
// config.
func NewServerConfig(cfg *config.NATSConfig) ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          cfg.StoreDir,
		JetStreamMaxMem:   cfg.MaxMemory,
		JetStreamMaxStore: cfg.MaxStore,
	}
}
