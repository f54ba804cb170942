// Package realtime pushes store change events to websocket clients.
package realtime

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	"github.com/Sarcastic-Soul/blog-app/internal/id"
	"github.com/Sarcastic-Soul/blog-app/internal/store"
)

// Message types sent by the hub itself.
const (
	TypeConnected = "connected"
	TypeHeartbeat = "heartbeat"
)

// Message is the JSON frame written to clients.
type Message struct {
	Type string    `json:"type"`
	Data any       `json:"data,omitempty"`
	At   time.Time `json:"at"`
}

// Client is one connected websocket.
type Client struct {
	ID          string
	UserID      string // empty for anonymous readers
	IsAdmin     bool
	ConnectedAt time.Time
	Messages    chan Message
	Done        chan struct{}
}

// Hub fans store events out to connected clients.
type Hub struct {
	clients           map[string]*Client
	events            chan store.Event
	logger            *slog.Logger
	wg                sync.WaitGroup
	heartbeatInterval time.Duration
	mu                sync.RWMutex

	shutdownMu sync.RWMutex
	shutdown   bool
}

var _ store.EventEmitter = (*Hub)(nil)

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:           make(map[string]*Client),
		events:            make(chan store.Event, 1000),
		logger:            logger,
		heartbeatInterval: 30 * time.Second,
	}
}

// Start runs the broadcast loop until ctx is cancelled or Shutdown is called.
func (h *Hub) Start(ctx context.Context) {
	h.wg.Add(1)
	defer h.wg.Done()

	h.logger.Info("realtime hub starting")

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case event, ok := <-h.events:
			if !ok {
				return
			}
			h.broadcast(event)

		case <-heartbeat.C:
			h.broadcast(store.Event{Type: TypeHeartbeat})

		case <-ctx.Done():
			h.logger.Info("realtime hub stopping")
			h.closeAllClients()
			return
		}
	}
}

// Shutdown stops accepting events, delivers the queued ones and closes
// every client.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.shutdownMu.Lock()
	if h.shutdown {
		h.shutdownMu.Unlock()
		return nil
	}
	h.shutdown = true
	close(h.events)
	h.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		for event := range h.events {
			h.broadcast(event)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		h.logger.Warn("realtime drain timeout, some events may be lost")
	}

	h.closeAllClients()
	h.logger.Info("realtime hub shutdown complete")
	return nil
}

// Emit queues an event for delivery. Implements store.EventEmitter.
func (h *Hub) Emit(event store.Event) {
	h.shutdownMu.RLock()
	defer h.shutdownMu.RUnlock()

	if h.shutdown {
		return
	}

	select {
	case h.events <- event:
	default:
		h.logger.Error("realtime event queue full, dropping event", "event_type", event.Type)
	}
}

// Connect registers a client. userID scopes user events to it; empty means
// an anonymous reader.
func (h *Hub) Connect(userID string, isAdmin bool) (*Client, error) {
	clientID, err := id.Generate("ws")
	if err != nil {
		return nil, err
	}

	client := &Client{
		ID:          clientID,
		UserID:      userID,
		IsAdmin:     isAdmin,
		ConnectedAt: time.Now(),
		Messages:    make(chan Message, 100),
		Done:        make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("realtime client connected",
		slog.String("client_id", clientID),
		slog.String("user_id", userID),
		slog.Int("total_clients", total))
	return client, nil
}

// Disconnect removes a client.
func (h *Hub) Disconnect(clientID string) {
	h.mu.Lock()
	client, ok := h.clients[clientID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, clientID)
	total := len(h.clients)
	h.mu.Unlock()

	close(client.Done)

	h.logger.Debug("realtime client disconnected",
		slog.String("client_id", clientID),
		slog.Duration("duration", time.Since(client.ConnectedAt)),
		slog.Int("total_clients", total))
}

// Clients returns an iterator over connected clients.
func (h *Hub) Clients() iter.Seq[*Client] {
	return func(yield func(*Client) bool) {
		h.mu.RLock()
		defer h.mu.RUnlock()
		for _, c := range h.clients {
			if !yield(c) {
				return
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// visible reports whether client may receive event. User events go to that
// user only; draft posts go to admins only.
func visible(client *Client, event store.Event) bool {
	if event.UserID != "" && event.UserID != client.UserID {
		return false
	}
	if p, ok := event.Data.(*domain.Post); ok && !p.IsPublished && !client.IsAdmin {
		return false
	}
	return true
}

func (h *Hub) broadcast(event store.Event) {
	msg := Message{Type: event.Type, Data: event.Data, At: time.Now().UTC()}

	var delivered, dropped, filtered int

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if !visible(client, event) {
			filtered++
			continue
		}
		select {
		case client.Messages <- msg:
			delivered++
		default:
			dropped++
			h.logger.Warn("dropped event for slow client",
				slog.String("client_id", client.ID),
				slog.String("event_type", event.Type))
		}
	}

	if event.Type != TypeHeartbeat {
		h.logger.Debug("event broadcast",
			slog.String("event_type", event.Type),
			slog.Group("stats",
				slog.Int("delivered", delivered),
				slog.Int("filtered", filtered),
				slog.Int("dropped", dropped)))
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.Done)
	}
	h.clients = make(map[string]*Client)
}
