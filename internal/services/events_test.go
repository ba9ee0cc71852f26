package services_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"citymap-backend-go/internal/services"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestEventHubFansOutToSockets(t *testing.T) {
	hub := services.NewEventHub(zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	added := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Add(conn)
		close(added)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-added:
	case <-time.After(2 * time.Second):
		t.Fatal("socket was not registered")
	}
	assert.Equal(t, 1, hub.Clients())

	hub.Publish(services.Event{Type: services.EventPointApproved, PointID: "p-1", ActorID: "mod-1"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got services.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, services.EventPointApproved, got.Type)
	assert.Equal(t, "p-1", got.PointID)
}

func TestEventHubPublishNeverBlocks(t *testing.T) {
	hub := services.NewEventHub(zaptest.NewLogger(t))
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Publish(services.Event{Type: services.EventVoteCast})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked without a running hub")
	}
}
