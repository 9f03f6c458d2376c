package store

import (
	"context"
	"errors"

	"chatrelay/internal/domain"
)

// ErrRoomNotFound is returned by RoomDirectory lookups for rooms that were
// never provisioned. Callers treat it as a deny, not as a store failure.
var ErrRoomNotFound = errors.New("room not found")

// RoomDirectory maps a room name to its authorized username set. Membership
// is provisioned externally and read-only at runtime.
type RoomDirectory interface {
	GetAuthorizedUsers(ctx context.Context, room string) ([]string, error)
}

// MessageStore is the append-only per-room chat log. AppendMessage assigns
// the timestamp at persistence time; GetHistory returns messages ordered by
// timestamp ascending.
type MessageStore interface {
	AppendMessage(ctx context.Context, room, username, message string) (domain.ChatMessage, error)
	GetHistory(ctx context.Context, room string) ([]domain.ChatMessage, error)
}

// Store bundles both faces of the durable backend.
type Store interface {
	RoomDirectory
	MessageStore
}
