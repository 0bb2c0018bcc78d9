// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supoclip/supoclip/internal/jobqueue"
	"github.com/supoclip/supoclip/internal/models"
)

func newTestClient(hub *Hub) *Client {
	return &Client{hub: hub, send: make(chan Message, 8)}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc, chan error) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()
	return hub, cancel, done
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("hub never reached %d clients (have %d)", want, hub.ClientCount())
}

func TestHubRegisterBroadcastUnregister(t *testing.T) {
	hub, cancel, done := startHub(t)
	defer cancel()

	client := newTestClient(hub)
	hub.Register <- client
	waitForClients(t, hub, 1)

	event := &jobqueue.ProgressEvent{
		TaskID:    "task-1",
		Status:    string(models.StatusClipping),
		Timestamp: time.Now().UTC(),
	}
	hub.BroadcastProgress(event)

	select {
	case msg := <-client.send:
		assert.Equal(t, MessageTypeProgress, msg.Type)
		got, ok := msg.Data.(*jobqueue.ProgressEvent)
		require.True(t, ok)
		assert.Equal(t, "task-1", got.TaskID)
	case <-time.After(2 * time.Second):
		t.Fatal("no broadcast received")
	}

	hub.Unregister <- client
	waitForClients(t, hub, 0)

	// Unregister closes the send channel.
	select {
	case _, open := <-client.send:
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("send channel not closed")
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestHubSlowConsumerDoesNotBlock(t *testing.T) {
	hub, cancel, done := startHub(t)
	defer cancel()

	slow := &Client{hub: hub, send: make(chan Message)} // no buffer, nobody reading
	hub.Register <- slow
	waitForClients(t, hub, 1)

	for i := 0; i < 10; i++ {
		hub.BroadcastProgress(&jobqueue.ProgressEvent{TaskID: "t", Status: string(models.StatusPending), Timestamp: time.Now()})
	}

	// The hub must stay responsive to lifecycle events.
	other := newTestClient(hub)
	hub.Register <- other
	waitForClients(t, hub, 2)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub, cancel, done := startHub(t)

	a := newTestClient(hub)
	b := newTestClient(hub)
	hub.Register <- a
	hub.Register <- b
	waitForClients(t, hub, 2)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 0, hub.ClientCount())

	for _, c := range []*Client{a, b} {
		select {
		case _, open := <-c.send:
			assert.False(t, open)
		case <-time.After(2 * time.Second):
			t.Fatal("client send channel not closed on shutdown")
		}
	}
}
