package nats

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"chatrelay/internal/domain"
)

// roomSubject builds the per-room subject. Every room gets its own subject,
// so ordering within a room is the subject's publish order and two rooms
// never contend.
func roomSubject(room string) string {
	return fmt.Sprintf("chat.room.%s", room)
}

// Client wraps the NATS connection and tracks one subscription per
// subscriber key (connection ID).
type Client struct {
	conn *nats.Conn

	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

func NewClient(url string) (*Client, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Client{
		conn: nc,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

// PublishRoom publishes an event to a room's subject.
func (c *Client) PublishRoom(room string, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}
	return c.conn.Publish(roomSubject(room), data)
}

// SubscribeRoom subscribes key (a connection ID) to a room's subject,
// decoding each message and handing it to handle. Subscribing the same key
// twice is a no-op; callers switch rooms by unsubscribing first.
func (c *Client) SubscribeRoom(room, key string, handle func(domain.Event)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.subs[key]; exists {
		return nil
	}

	sub, err := c.conn.Subscribe(roomSubject(room), func(msg *nats.Msg) {
		var event domain.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return // skip invalid payloads
		}
		handle(event)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to room %s: %w", room, err)
	}

	c.subs[key] = sub
	return nil
}

// Unsubscribe removes key's subscription. Unknown keys are a no-op.
func (c *Client) Unsubscribe(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, exists := c.subs[key]
	if !exists {
		return nil
	}
	delete(c.subs, key)

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	return nil
}

// CleanupSubscriptions drops every active subscription. Used on shutdown;
// unsubscribe errors are ignored so cleanup always completes.
func (c *Client) CleanupSubscriptions() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, sub := range c.subs {
		_ = sub.Unsubscribe()
		delete(c.subs, key)
	}
}

// Flush round-trips the connection, forcing delivery of everything published
// so far. Tests use it to avoid sleeping.
func (c *Client) Flush() error {
	return c.conn.Flush()
}

func (c *Client) Close() {
	c.CleanupSubscriptions()
	c.conn.Close()
}
