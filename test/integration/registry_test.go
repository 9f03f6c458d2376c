package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/domain"
	"chatrelay/internal/registry"
)

func TestBroadcastReachesRoomMembers(t *testing.T) {
	bus := requireNATS(t)
	reg := registry.New(bus)

	received := make(chan string, 2)
	require.NoError(t, reg.Join("general", "conn-a", func(e domain.Event) {
		received <- "a:" + e.Message
	}))
	require.NoError(t, reg.Join("general", "conn-b", func(e domain.Event) {
		received <- "b:" + e.Message
	}))
	require.NoError(t, bus.Flush())

	require.NoError(t, reg.Broadcast("general", domain.Event{
		Type:    domain.EventTypeChat,
		Room:    "general",
		Message: "hello",
	}))

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case r := <-received:
			got[r] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for broadcast")
		}
	}
	assert.True(t, got["a:hello"])
	assert.True(t, got["b:hello"])
}

func TestRoomsDoNotCrossDeliver(t *testing.T) {
	bus := requireNATS(t)
	reg := registry.New(bus)

	general := make(chan domain.Event, 1)
	random := make(chan domain.Event, 1)
	require.NoError(t, reg.Join("general", "conn-a", func(e domain.Event) { general <- e }))
	require.NoError(t, reg.Join("random", "conn-b", func(e domain.Event) { random <- e }))
	require.NoError(t, bus.Flush())

	require.NoError(t, reg.Broadcast("general", domain.Event{Type: domain.EventTypeChat, Message: "general only"}))
	require.NoError(t, bus.Flush())

	select {
	case e := <-general:
		assert.Equal(t, "general only", e.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("general member did not receive the broadcast")
	}

	select {
	case e := <-random:
		t.Fatalf("random member unexpectedly received %q", e.Message)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestJoinReplacesMembership(t *testing.T) {
	bus := requireNATS(t)
	reg := registry.New(bus)

	events := make(chan domain.Event, 4)
	deliver := func(e domain.Event) { events <- e }

	require.NoError(t, reg.Join("general", "conn-a", deliver))
	require.NoError(t, reg.Join("random", "conn-a", deliver))
	require.NoError(t, bus.Flush())

	room, ok := reg.Room("conn-a")
	require.True(t, ok)
	assert.Equal(t, "random", room)
	assert.Equal(t, 0, reg.Members("general"))

	// Old room traffic no longer reaches the connection.
	require.NoError(t, reg.Broadcast("general", domain.Event{Message: "stale"}))
	require.NoError(t, reg.Broadcast("random", domain.Event{Message: "fresh"}))

	select {
	case e := <-events:
		assert.Equal(t, "fresh", e.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestLeaveStopsDelivery(t *testing.T) {
	bus := requireNATS(t)
	reg := registry.New(bus)

	events := make(chan domain.Event, 1)
	require.NoError(t, reg.Join("general", "conn-a", func(e domain.Event) { events <- e }))
	require.NoError(t, bus.Flush())

	reg.Leave("conn-a")
	require.NoError(t, bus.Flush())

	require.NoError(t, reg.Broadcast("general", domain.Event{Message: "anyone?"}))
	require.NoError(t, bus.Flush())

	select {
	case e := <-events:
		t.Fatalf("removed member unexpectedly received %q", e.Message)
	case <-time.After(200 * time.Millisecond):
	}

	// Leaving again is a no-op.
	reg.Leave("conn-a")
}

func TestInvalidRoomRejected(t *testing.T) {
	bus := requireNATS(t)
	reg := registry.New(bus)

	err := reg.Join("no spaces allowed", "conn-a", func(domain.Event) {})
	assert.ErrorIs(t, err, registry.ErrInvalidRoom)

	err = reg.Broadcast("../escape", domain.Event{})
	assert.ErrorIs(t, err, registry.ErrInvalidRoom)
}
