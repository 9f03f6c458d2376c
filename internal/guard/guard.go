package guard

import (
	"context"
	"errors"
	"fmt"

	"chatrelay/internal/domain"
	"chatrelay/internal/store"
)

// Guard decides room admission by consulting the room directory. It is
// consulted on join and again on every send; decisions are never cached, so
// a revocation takes effect on the next message.
type Guard struct {
	directory store.RoomDirectory
}

func New(directory store.RoomDirectory) *Guard {
	return &Guard{directory: directory}
}

// IsAuthorized reports whether username may join or post in room. An unknown
// room is a plain deny. A directory failure is also a deny, but the error is
// surfaced so the caller can log it; it must never be read as an allow.
func (g *Guard) IsAuthorized(ctx context.Context, room, username string) (bool, error) {
	room = domain.Normalize(room)
	username = domain.Normalize(username)

	users, err := g.directory.GetAuthorizedUsers(ctx, room)
	if errors.Is(err, store.ErrRoomNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("authorization lookup for room %q: %w", room, err)
	}

	for _, u := range users {
		if domain.Normalize(u) == username {
			return true, nil
		}
	}
	return false, nil
}
