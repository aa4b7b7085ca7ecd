package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/order"
)

func dial(t *testing.T, h *Hub, userID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.Serve(w, r, userID)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Clients() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_Broadcast(t *testing.T) {
	h := NewHub(zap.NewNop(), nil)
	admin := dial(t, h, "")
	owner := dial(t, h, "u1")
	waitClients(t, h, 2)

	h.Publish(context.Background(), order.Event{
		Type:     order.EventPlaced,
		PublicID: "ORD-20250101-1234",
		UserID:   "u2",
		Status:   order.StatusPlaced,
	})
	h.Publish(context.Background(), order.Event{
		Type:     order.EventCancelled,
		PublicID: "ORD-20250101-5678",
		UserID:   "u1",
		Status:   order.StatusCancelled,
	})

	var e order.Event
	_ = admin.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := admin.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &e))
	assert.Equal(t, "ORD-20250101-1234", e.PublicID)

	// The owner stream skips other users' orders.
	_ = owner.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err = owner.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &e))
	assert.Equal(t, "ORD-20250101-5678", e.PublicID)
	assert.Equal(t, order.EventCancelled, e.Type)
}

func TestHub_Disconnect(t *testing.T) {
	h := NewHub(zap.NewNop(), nil)
	conn := dial(t, h, "")
	waitClients(t, h, 1)

	require.NoError(t, conn.Close())
	waitClients(t, h, 0)

	// Publishing with no clients is a no-op.
	h.Publish(context.Background(), order.Event{Type: order.EventPlaced})
}

func TestHub_SlowClientDoesNotBlock(t *testing.T) {
	h := NewHub(zap.NewNop(), nil)
	_ = dial(t, h, "")
	waitClients(t, h, 1)

	done := make(chan struct{})
	go func() {
		for range sendBuffer * 4 {
			h.Publish(context.Background(), order.Event{Type: order.EventPlaced})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow client")
	}
}
