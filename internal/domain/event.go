package domain

import (
	"strings"
	"time"
)

type EventType string

const (
	// Inbound events.
	EventTypeJoin  EventType = "join_room"
	EventTypeChat  EventType = "chat_message"
	EventTypeUsers EventType = "list_users"
	EventTypeRooms EventType = "list_rooms"

	// Outbound events.
	EventTypeError   EventType = "error"
	EventTypeHistory EventType = "chat_history"
	EventTypeSystem  EventType = "system_message"
)

// Event is the wire envelope exchanged over a WebSocket connection.
// Inbound events carry room/username/message as supplied by the client;
// outbound chat events carry the persisted record.
type Event struct {
	Type      EventType     `json:"type"`
	Room      string        `json:"room,omitempty"`
	Username  string        `json:"username,omitempty"`
	Message   string        `json:"message,omitempty"`
	Timestamp time.Time     `json:"timestamp,omitempty"`
	History   []ChatMessage `json:"history,omitempty"`
}

// ChatMessage is a persisted chat record. Immutable once written; the
// timestamp is assigned by the message store at append time, never by
// the client.
type ChatMessage struct {
	Room      string    `json:"room,omitempty" bson:"room"`
	Username  string    `json:"username" bson:"username"`
	Message   string    `json:"message" bson:"message"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Normalize lowercases a room or username. Room identity and membership
// are case-insensitive everywhere; callers normalize before any lookup.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
