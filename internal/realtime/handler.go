package realtime

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Viewer identifies the caller of a websocket request. Anonymous callers
// return an empty userID.
type Viewer func(r *http.Request) (userID string, isAdmin bool)

// Handler upgrades GET requests to websockets and streams hub messages.
type Handler struct {
	hub      *Hub
	viewer   Viewer
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new websocket handler. checkOrigin may be nil to
// accept same-host origins only.
func NewHandler(hub *Hub, viewer Viewer, checkOrigin func(r *http.Request) bool, logger *slog.Logger) *Handler {
	return &Handler{
		hub:    hub,
		viewer: viewer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

// ServeHTTP handles one websocket connection until either side closes it.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, isAdmin := "", false
	if h.viewer != nil {
		userID, isAdmin = h.viewer(r)
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	client, err := h.hub.Connect(userID, isAdmin)
	if err != nil {
		h.logger.Error("failed to register realtime client", "error", err)
		_ = conn.Close()
		return
	}

	clientLogger := h.logger.With(slog.String("client_id", client.ID))

	go h.readPump(conn, client)
	h.writePump(conn, client, clientLogger)
}

// readPump discards client frames and notices disconnects.
func (h *Handler) readPump(conn *websocket.Conn, client *Client) {
	defer h.hub.Disconnect(client.ID)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, client *Client, logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	if err := h.write(conn, Message{Type: TypeConnected, Data: map[string]string{"client_id": client.ID}, At: time.Now().UTC()}); err != nil {
		logger.Debug("failed to send connected message", "error", err)
		return
	}

	for {
		select {
		case msg := <-client.Messages:
			if err := h.write(conn, msg); err != nil {
				logger.Debug("client disconnected during send", "error", err)
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-client.Done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"))
			return
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, msg Message) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
