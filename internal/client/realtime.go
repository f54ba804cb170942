package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	domainerrors "github.com/Sarcastic-Soul/blog-app/internal/errors"
)

// Event types pushed by the server.
const (
	EventConnected      = "connected"
	EventHeartbeat      = "heartbeat"
	EventPostCreated    = "post.created"
	EventPostUpdated    = "post.updated"
	EventPostDeleted    = "post.deleted"
	EventSessionDeleted = "session.deleted"
)

// Event is one realtime message.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
	At   time.Time       `json:"at"`
}

// Subscribe streams realtime events to handle until ctx is cancelled or the
// connection drops. It does not reconnect. A cancelled ctx returns nil.
func (c *Client) Subscribe(ctx context.Context, handle func(Event)) error {
	target := *c.base
	switch target.Scheme {
	case "https":
		target.Scheme = "wss"
	default:
		target.Scheme = "ws"
	}
	target.Path = c.base.Path + "/api/v1/realtime"

	header := http.Header{}
	header.Set("User-Agent", c.userAgent)
	c.authorize(header)

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.http.Timeout,
		Jar:              c.http.Jar,
	}
	conn, resp, err := dialer.DialContext(ctx, target.String(), header)
	if err != nil {
		if resp != nil {
			return domainerrors.New(domainerrors.CodeFromStatus(resp.StatusCode), "realtime connection refused")
		}
		return domainerrors.Unavailable("realtime connection failed", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				c.logger.Warn("skipping malformed realtime message", "error", err)
				continue
			}
			return domainerrors.Unavailable("realtime connection lost", err)
		}
		if ev.Type == EventHeartbeat {
			continue
		}
		handle(ev)
	}
}
