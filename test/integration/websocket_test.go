package integration

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/api/ws"
	"chatrelay/internal/domain"
	"chatrelay/internal/guard"
	"chatrelay/internal/presence"
	"chatrelay/internal/registry"
	"chatrelay/internal/store"
	"chatrelay/pkg/logger"
	"chatrelay/service"
)

type testClient struct {
	conn *websocket.Conn
	t    *testing.T
}

// setupServer wires the full relay around a live NATS bus, with the
// in-memory store standing in for MongoDB.
func setupServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()

	bus := requireNATS(t)

	mem := store.NewMemoryStore()
	mem.ProvisionRoom("general", []string{"alice", "bob"})

	chat := service.NewChatService(
		guard.New(mem),
		mem,
		registry.New(bus),
		presence.NewMemoryTracker(),
		testLogger(),
	)

	ctx := logger.NewContext(context.Background(), testLogger())
	server := httptest.NewServer(ws.SetupWebSocketRoutes(ws.WSConfig{
		ChatService: chat,
		RootCtx:     ctx,
	}))
	t.Cleanup(server.Close)

	return server, mem
}

func connect(t *testing.T, server *httptest.Server) *testClient {
	t.Helper()

	wsURL := "ws" + server.URL[4:] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &testClient{conn: conn, t: t}
}

func (c *testClient) send(event domain.Event) {
	require.NoError(c.t, c.conn.WriteJSON(event))
}

// receiveType reads events until one of the wanted type arrives, skipping
// system notices and other interleaved traffic.
func (c *testClient) receiveType(want domain.EventType) domain.Event {
	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(c.t, c.conn.SetReadDeadline(deadline))
		var event domain.Event
		require.NoError(c.t, c.conn.ReadJSON(&event))
		if event.Type == want {
			return event
		}
	}
}

// expectNoChat asserts that no chat message arrives within the window.
func (c *testClient) expectNoChat(window time.Duration) {
	_ = c.conn.SetReadDeadline(time.Now().Add(window))
	for {
		var event domain.Event
		if err := c.conn.ReadJSON(&event); err != nil {
			return // timeout: nothing arrived
		}
		require.NotEqual(c.t, domain.EventTypeChat, event.Type, "unexpected chat delivery")
	}
}

func TestJoinDeniedOverWire(t *testing.T) {
	server, _ := setupServer(t)
	client := connect(t, server)

	client.send(domain.Event{Type: domain.EventTypeJoin, Room: "general", Username: "carol"})

	event := client.receiveType(domain.EventTypeError)
	assert.Equal(t, "Access Denied", event.Message)
}

func TestJoinHistoryAndChatFlow(t *testing.T) {
	server, mem := setupServer(t)
	ctx := context.Background()

	_, err := mem.AppendMessage(ctx, "general", "bob", "earlier")
	require.NoError(t, err)

	// Mixed case in the join payload normalizes to general/alice.
	alice := connect(t, server)
	alice.send(domain.Event{Type: domain.EventTypeJoin, Room: "General", Username: "Alice"})

	history := alice.receiveType(domain.EventTypeHistory)
	require.Len(t, history.History, 1)
	assert.Equal(t, "earlier", history.History[0].Message)
	assert.Equal(t, "bob", history.History[0].Username)

	bob := connect(t, server)
	bob.send(domain.Event{Type: domain.EventTypeJoin, Room: "general", Username: "bob"})
	_ = bob.receiveType(domain.EventTypeHistory)

	alice.send(domain.Event{Type: domain.EventTypeChat, Room: "general", Username: "alice", Message: "hi"})

	for _, client := range []*testClient{alice, bob} {
		chat := client.receiveType(domain.EventTypeChat)
		assert.Equal(t, "alice", chat.Username)
		assert.Equal(t, "hi", chat.Message)
		assert.False(t, chat.Timestamp.IsZero())
	}

	// The send was persisted behind the broadcast.
	history2, err := mem.GetHistory(ctx, "general")
	require.NoError(t, err)
	require.Len(t, history2, 2)
	assert.Equal(t, "hi", history2[1].Message)
}

func TestDeniedJoinSeesNoRoomTraffic(t *testing.T) {
	server, _ := setupServer(t)

	alice := connect(t, server)
	alice.send(domain.Event{Type: domain.EventTypeJoin, Room: "general", Username: "alice"})
	_ = alice.receiveType(domain.EventTypeHistory)

	carol := connect(t, server)
	carol.send(domain.Event{Type: domain.EventTypeJoin, Room: "general", Username: "carol"})
	_ = carol.receiveType(domain.EventTypeError)

	alice.send(domain.Event{Type: domain.EventTypeChat, Room: "general", Username: "alice", Message: "secret"})
	_ = alice.receiveType(domain.EventTypeChat)

	carol.expectNoChat(500 * time.Millisecond)
}

func TestDisconnectStopsDelivery(t *testing.T) {
	server, _ := setupServer(t)

	alice := connect(t, server)
	alice.send(domain.Event{Type: domain.EventTypeJoin, Room: "general", Username: "alice"})
	_ = alice.receiveType(domain.EventTypeHistory)

	bob := connect(t, server)
	bob.send(domain.Event{Type: domain.EventTypeJoin, Room: "general", Username: "bob"})
	_ = bob.receiveType(domain.EventTypeHistory)

	require.NoError(t, bob.conn.Close())
	time.Sleep(100 * time.Millisecond) // let the server unregister bob

	// Delivery to the remaining member still works; nothing errors out on
	// the removed one.
	alice.send(domain.Event{Type: domain.EventTypeChat, Room: "general", Username: "alice", Message: "still here"})
	chat := alice.receiveType(domain.EventTypeChat)
	assert.Equal(t, "still here", chat.Message)
}

func TestPerRoomOrderingPreserved(t *testing.T) {
	server, _ := setupServer(t)

	alice := connect(t, server)
	alice.send(domain.Event{Type: domain.EventTypeJoin, Room: "general", Username: "alice"})
	_ = alice.receiveType(domain.EventTypeHistory)

	bob := connect(t, server)
	bob.send(domain.Event{Type: domain.EventTypeJoin, Room: "general", Username: "bob"})
	_ = bob.receiveType(domain.EventTypeHistory)

	sent := []string{"one", "two", "three", "four", "five"}
	for _, text := range sent {
		alice.send(domain.Event{Type: domain.EventTypeChat, Room: "general", Username: "alice", Message: text})
	}

	// A single sender's messages arrive at an observer in send order:
	// each broadcast happens only after its own append completed, and the
	// room's subject preserves publish order.
	for _, want := range sent {
		chat := bob.receiveType(domain.EventTypeChat)
		assert.Equal(t, want, chat.Message)
	}
}

func TestRevocationOverWire(t *testing.T) {
	server, mem := setupServer(t)

	alice := connect(t, server)
	alice.send(domain.Event{Type: domain.EventTypeJoin, Room: "general", Username: "alice"})
	_ = alice.receiveType(domain.EventTypeHistory)

	mem.RevokeUser("general", "alice")

	alice.send(domain.Event{Type: domain.EventTypeChat, Room: "general", Username: "alice", Message: "locked out?"})
	event := alice.receiveType(domain.EventTypeError)
	assert.Equal(t, "Access Denied", event.Message)
}
