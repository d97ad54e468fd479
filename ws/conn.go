// Package ws is the duplex transport of the collaboration layer. Each
// upgraded connection owns a buffered outbound channel drained by a single
// writer goroutine; the hub talks to connections only through the
// contract.EventSink interface.
package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"live-docs/domain/event"
	"live-docs/errors"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // editor deltas may embed images
)

// Conn wraps one websocket connection. It is the EventSink registered in
// the hub: Consume never blocks, a full buffer drops the event and the
// connection stays usable.
type Conn struct {
	id       string
	userID   string
	username string
	ws       *websocket.Conn
	out      chan event.Envelope
	log      *slog.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

func newConn(wsConn *websocket.Conn, userID, username string, bufferSize int, log *slog.Logger) *Conn {
	return &Conn{
		id:       uuid.NewString(),
		userID:   userID,
		username: username,
		ws:       wsConn,
		out:      make(chan event.Envelope, bufferSize),
		log:      log,
		closed:   make(chan struct{}),
	}
}

func (c *Conn) ID() string { return c.id }

// Consume enqueues a server event for delivery. Delivery order per sender
// is the enqueue order; there is no retry and no acknowledgement.
func (c *Conn) Consume(ctx context.Context, e event.Envelope) error {
	select {
	case <-c.closed:
		return errors.ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	case c.out <- e:
		return nil
	default:
		return errors.ErrSlowConsumer
	}
}

// writePump is the only goroutine writing to the websocket. It also keeps
// the connection alive with periodic pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.closed:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case e := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(e); err != nil {
				c.log.Debug("write failed, closing connection", "socket_id", c.id, "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}
