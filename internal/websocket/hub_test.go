package websocket

import (
	"context"
	"testing"
	"time"

	"rfp-answer-engine/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversOnlyToProjectWatchers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run(ctx)

	projectA, projectB := uuid.New(), uuid.New()
	watcherA := &Client{Hub: hub, ProjectId: projectA, Send: make(chan []byte, 4)}
	watcherB := &Client{Hub: hub, ProjectId: projectB, Send: make(chan []byte, 4)}
	hub.register <- watcherA
	hub.register <- watcherB

	require.Eventually(t, func() bool {
		return hub.ClientCount(projectA) == 1 && hub.ClientCount(projectB) == 1
	}, time.Second, 5*time.Millisecond)

	hub.Publish(ctx, projectA, []byte(`{"stage":"GENERATING"}`))

	select {
	case msg := <-watcherA.Send:
		assert.JSONEq(t, `{"stage":"GENERATING"}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("watcher of project A got nothing")
	}
	assert.Len(t, watcherB.Send, 0)
}

func TestHubUnregisterClosesSendOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run(ctx)

	projectId := uuid.New()
	client := &Client{Hub: hub, ProjectId: projectId, Send: make(chan []byte, 1)}
	hub.register <- client
	hub.unregister <- client
	hub.unregister <- client

	require.Eventually(t, func() bool { return hub.ClientCount(projectId) == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-client.Send
	assert.False(t, open)
}

func TestHubPublishWhileClientsDisconnect(t *testing.T) {
	hub := NewHub(nil, logger.NewNopLogger())
	projectId := uuid.New()

	for round := 0; round < 200; round++ {
		clients := make([]*Client, 8)
		for i := range clients {
			clients[i] = &Client{Hub: hub, ProjectId: projectId, Send: make(chan []byte, 64)}
			hub.mu.Lock()
			hub.clients[projectId] = append(hub.clients[projectId], clients[i])
			hub.mu.Unlock()
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			for _, c := range clients {
				hub.removeClient(c)
			}
		}()
		for i := 0; i < 16; i++ {
			assert.NotPanics(t, func() { hub.Publish(context.Background(), projectId, []byte(`{}`)) })
		}
		<-done
	}
	assert.Equal(t, 0, hub.ClientCount(projectId))
}
