package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	"github.com/Sarcastic-Soul/blog-app/internal/logger"
	"github.com/Sarcastic-Soul/blog-app/internal/store"
)

func startHub(t *testing.T) *Hub {
	t.Helper()

	hub := NewHub(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Start(ctx)
	t.Cleanup(cancel)
	return hub
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg := <-c.Messages:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func assertNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Messages:
		t.Fatalf("unexpected message %q", msg.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_Filtering(t *testing.T) {
	hub := startHub(t)

	anon, err := hub.Connect("", false)
	require.NoError(t, err)
	daffy, err := hub.Connect("user-daffy", false)
	require.NoError(t, err)
	admin, err := hub.Connect("user-admin", true)
	require.NoError(t, err)
	assert.Equal(t, 3, hub.ClientCount())

	// Session events reach their user only.
	hub.Emit(store.Event{Type: store.EventSessionDeleted, UserID: "user-daffy", Data: map[string]string{"id": "sess-1"}})
	assert.Equal(t, store.EventSessionDeleted, receive(t, daffy).Type)
	assertNothing(t, anon)
	assertNothing(t, admin)

	// Drafts reach admins only.
	hub.Emit(store.Event{Type: store.EventPostUpdated, Data: &domain.Post{ID: "post-1"}})
	assert.Equal(t, store.EventPostUpdated, receive(t, admin).Type)
	assertNothing(t, anon)
	assertNothing(t, daffy)

	// Published posts reach everyone.
	hub.Emit(store.Event{Type: store.EventPostCreated, Data: &domain.Post{ID: "post-2", IsPublished: true}})
	for _, c := range []*Client{anon, daffy, admin} {
		assert.Equal(t, store.EventPostCreated, receive(t, c).Type)
	}

	hub.Disconnect(daffy.ID)
	hub.Disconnect(daffy.ID)
	assert.Equal(t, 2, hub.ClientCount())
	<-daffy.Done
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub(logger.Discard())
	go hub.Start(context.Background())

	c, err := hub.Connect("", false)
	require.NoError(t, err)

	// Once the loop is running, queued events are delivered before close.
	hub.Emit(store.Event{Type: store.EventPostDeleted, Data: map[string]string{"id": "post-0"}})
	receive(t, c)
	hub.Emit(store.Event{Type: store.EventPostDeleted, Data: map[string]string{"id": "post-1"}})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, hub.Shutdown(ctx))

	assert.Equal(t, store.EventPostDeleted, receive(t, c).Type)
	select {
	case <-c.Done:
	case <-time.After(time.Second):
		t.Fatal("client not closed")
	}

	// Emitting after shutdown is a no-op.
	hub.Emit(store.Event{Type: store.EventPostDeleted})
	assert.Zero(t, hub.ClientCount())
}

func TestHandler_StreamsEvents(t *testing.T) {
	hub := startHub(t)

	viewer := func(r *http.Request) (string, bool) {
		return r.Header.Get("X-Test-User"), false
	}
	srv := httptest.NewServer(NewHandler(hub, viewer, nil, logger.Discard()))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{"X-Test-User": {"user-daffy"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var hello Message
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, TypeConnected, hello.Type)

	hub.Emit(store.Event{Type: store.EventSessionDeleted, UserID: "someone-else"})
	hub.Emit(store.Event{Type: store.EventSessionDeleted, UserID: "user-daffy", Data: map[string]string{"id": "sess-9"}})

	var got Message
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, store.EventSessionDeleted, got.Type)
	data, ok := got.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sess-9", data["id"])
}
