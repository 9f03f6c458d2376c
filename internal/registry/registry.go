// Package registry tracks which live connection belongs to which room and
// fans broadcasts out to a room's current members.
package registry

import (
	"errors"
	"fmt"
	"regexp"
	"sync"

	"chatrelay/internal/domain"
	"chatrelay/internal/nats"
)

// Room names become NATS subject tokens, so only a fixed shape is accepted.
// Anything else is rejected before it reaches the wire or a subject name.
var validRoom = regexp.MustCompile(`^[a-z0-9_-]+$`)

// ErrInvalidRoom rejects room names that cannot be used as subject tokens.
var ErrInvalidRoom = errors.New("invalid room name")

// Registry is the session registry: the one shared mutable structure of the
// relay. Fan-out itself rides on per-room NATS subjects, so two rooms never
// block each other; the registry only guards the connID→room map.
type Registry struct {
	bus *nats.Client

	mu    sync.RWMutex
	rooms map[string]string // connID -> current room
}

func New(bus *nats.Client) *Registry {
	return &Registry{
		bus:   bus,
		rooms: make(map[string]string),
	}
}

// Join adds connID to room and wires deliver to the room's broadcast stream.
// A connection belongs to at most one room: joining a new room leaves the
// old one first. Re-joining the current room is a no-op.
func (r *Registry) Join(room, connID string, deliver func(domain.Event)) error {
	if !validRoom.MatchString(room) {
		return fmt.Errorf("%w: %q", ErrInvalidRoom, room)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.rooms[connID]; ok {
		if current == room {
			return nil
		}
		// Explicit single-room policy: replace membership, not accumulate.
		if err := r.bus.Unsubscribe(connID); err != nil {
			return fmt.Errorf("failed to leave room %s: %w", current, err)
		}
		delete(r.rooms, connID)
	}

	if err := r.bus.SubscribeRoom(room, connID, deliver); err != nil {
		return err
	}
	r.rooms[connID] = room
	return nil
}

// Leave removes connID from whatever room it belongs to. Calling it for a
// connection that never joined is a no-op.
func (r *Registry) Leave(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[connID]; !ok {
		return
	}
	_ = r.bus.Unsubscribe(connID)
	delete(r.rooms, connID)
}

// Broadcast delivers event to every connection currently joined to room.
// Members removed before delivery are skipped naturally: their subscription
// is already gone.
func (r *Registry) Broadcast(room string, event domain.Event) error {
	if !validRoom.MatchString(room) {
		return fmt.Errorf("%w: %q", ErrInvalidRoom, room)
	}
	return r.bus.PublishRoom(room, event)
}

// Room returns connID's current room, if any.
func (r *Registry) Room(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[connID]
	return room, ok
}

// Members returns how many connections this instance has in room. Used by
// logs and tests.
func (r *Registry) Members(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, joined := range r.rooms {
		if joined == room {
			n++
		}
	}
	return n
}
