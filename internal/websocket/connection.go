package websocket

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chatrelay/internal/domain"
	"chatrelay/pkg/logger"
	"chatrelay/service"
)

// Connection is one live WebSocket session. The read pump is the only
// reader, so a client's join/message sequence is processed strictly in the
// order it was sent; the write pump is the only writer.
type Connection struct {
	id   string
	ws   *websocket.Conn
	chat service.ChatService
	log  logger.Logger

	mu     sync.Mutex
	closed bool
	send   chan domain.Event
}

func NewConnection(ws *websocket.Conn, chat service.ChatService, log logger.Logger) *Connection {
	id := uuid.NewString()
	return &Connection{
		id:   id,
		ws:   ws,
		chat: chat,
		log:  log.WithFields(map[string]interface{}{"conn": id}),
		send: make(chan domain.Event, 256),
	}
}

func (c *Connection) ID() string {
	return c.id
}

// Send queues an event for this client only. Events for a closed or
// saturated connection are dropped; broadcasts fan out through the session
// registry, so nothing retries on behalf of a gone client.
func (c *Connection) Send(event domain.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	select {
	case c.send <- event:
	default:
		c.log.Warnf("send buffer full, dropping %s event", event.Type)
	}
}

// Run starts the write pump and blocks in the read pump until the client
// goes away.
func (c *Connection) Run(ctx context.Context) {
	go c.writePump()
	c.readPump(ctx)
}

// readPump dispatches inbound events one at a time. Every error stays
// local to this connection: a bad event is answered or logged and the loop
// keeps going.
func (c *Connection) readPump(ctx context.Context) {
	defer func() {
		c.chat.Disconnect(ctx, c)
		c.close()
		c.ws.Close()
	}()

	for {
		var event domain.Event
		if err := c.ws.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Errorf("read error: %v", err)
			}
			return
		}

		switch event.Type {
		case domain.EventTypeJoin:
			c.chat.Join(ctx, c, event.Room, event.Username)
		case domain.EventTypeChat:
			c.chat.SendMessage(ctx, c, event.Room, event.Username, event.Message)
		case domain.EventTypeUsers:
			c.chat.ListUsers(ctx, c)
		case domain.EventTypeRooms:
			c.chat.ListRooms(ctx, c)
		default:
			c.log.Debugf("ignoring unknown event type %q", event.Type)
		}
	}
}

func (c *Connection) writePump() {
	defer c.ws.Close()

	for event := range c.send {
		if err := c.ws.WriteJSON(event); err != nil {
			c.log.Errorf("write error: %v", err)
			return
		}
	}
}

// close marks the connection dead and releases the write pump. Late
// deliveries from in-flight operations hit the closed flag and are
// discarded.
func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
