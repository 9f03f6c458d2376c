package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"chatrelay/internal/domain"
	"chatrelay/internal/guard"
	"chatrelay/internal/presence"
	"chatrelay/internal/store"
	"chatrelay/pkg/logger"
)

// accessDeniedReason is the one reason ever shown for a failed join or send.
// Unknown room and unauthorized user are deliberately indistinguishable to
// the client.
const accessDeniedReason = "Access Denied"

// Registry is the session registry the service fans broadcasts through.
// Implemented by internal/registry on top of per-room NATS subjects.
type Registry interface {
	Join(room, connID string, deliver func(domain.Event)) error
	Leave(connID string)
	Broadcast(room string, event domain.Event) error
}

// Session is the service's view of one live connection: a stable identity
// plus a private outbound channel back to that client only.
type Session interface {
	ID() string
	Send(event domain.Event)
}

// ChatService drives the per-connection protocol: join, message, disconnect.
// Authorization is re-evaluated on every event and never cached.
type ChatService interface {
	Join(ctx context.Context, sess Session, room, username string)
	SendMessage(ctx context.Context, sess Session, room, username, message string)
	Disconnect(ctx context.Context, sess Session)
	ListUsers(ctx context.Context, sess Session)
	ListRooms(ctx context.Context, sess Session)
}

type membership struct {
	room     string
	username string
}

type chatService struct {
	guard    *guard.Guard
	messages store.MessageStore
	registry Registry
	presence presence.Tracker
	logger   logger.Logger

	mu     sync.Mutex
	joined map[string]membership // connID -> current membership
}

func NewChatService(
	g *guard.Guard,
	messages store.MessageStore,
	reg Registry,
	tracker presence.Tracker,
	logg logger.Logger,
) ChatService {
	return &chatService{
		guard:    g,
		messages: messages,
		registry: reg,
		presence: tracker,
		logger:   logg,
		joined:   make(map[string]membership),
	}
}

// Join admits sess into room after consulting the access guard. On success
// the prior history is delivered privately, then the room is notified. A
// history fetch failure is logged and does not revert the join.
func (s *chatService) Join(ctx context.Context, sess Session, room, username string) {
	room = domain.Normalize(room)
	username = domain.Normalize(username)

	allowed, err := s.guard.IsAuthorized(ctx, room, username)
	if err != nil {
		s.logger.Errorf("join authorization failed for %s/%s: %v", room, username, err)
	}
	if !allowed {
		s.deny(sess)
		return
	}

	// Single room per connection: leaving the previous room is explicit
	// policy, announced like any other leave.
	s.leaveCurrent(ctx, sess)

	if err := s.registry.Join(room, sess.ID(), sess.Send); err != nil {
		s.logger.Errorf("failed to register %s in room %s: %v", sess.ID(), room, err)
		s.deny(sess)
		return
	}

	s.mu.Lock()
	s.joined[sess.ID()] = membership{room: room, username: username}
	s.mu.Unlock()

	if err := s.presence.AddActiveUser(ctx, username); err != nil {
		s.logger.Errorf("failed to track active user %s: %v", username, err)
	}
	if err := s.presence.AddRoomMember(ctx, room, username); err != nil {
		s.logger.Errorf("failed to track %s in room %s: %v", username, room, err)
	}

	// History goes to the joiner only, never broadcast. A store failure
	// here degrades to an empty history; the join stands.
	history, err := s.messages.GetHistory(ctx, room)
	if err != nil {
		s.logger.Errorf("failed to fetch history for room %s: %v", room, err)
		history = nil
	}
	sess.Send(domain.Event{
		Type:    domain.EventTypeHistory,
		Room:    room,
		History: history,
	})

	s.logger.Infof("%s joined room %s", username, room)
	s.notifyRoom(room, fmt.Sprintf("%s joined the room", username))
}

// SendMessage persists one message and, only after the append succeeds,
// broadcasts the stored record to the room including the sender. The guard
// runs again on every send so a revocation takes effect immediately; the
// check is driven by the event's own room and username, independent of any
// prior join.
func (s *chatService) SendMessage(ctx context.Context, sess Session, room, username, message string) {
	room = domain.Normalize(room)
	username = domain.Normalize(username)

	if message == "" {
		s.logger.Debugf("dropping empty message from %s", username)
		return
	}

	allowed, err := s.guard.IsAuthorized(ctx, room, username)
	if err != nil {
		s.logger.Errorf("send authorization failed for %s/%s: %v", room, username, err)
	}
	if !allowed {
		s.deny(sess)
		return
	}

	msg, err := s.messages.AppendMessage(ctx, room, username, message)
	if err != nil {
		// The message is lost from the real-time view; other clients are
		// not told.
		s.logger.Errorf("failed to persist message in room %s: %v", room, err)
		return
	}

	if err := s.registry.Broadcast(room, domain.Event{
		Type:      domain.EventTypeChat,
		Room:      msg.Room,
		Username:  msg.Username,
		Message:   msg.Message,
		Timestamp: msg.Timestamp,
	}); err != nil {
		s.logger.Errorf("failed to broadcast message in room %s: %v", room, err)
	}
}

// Disconnect removes sess from its room and presence state. Terminal; safe
// to call for connections that never joined anything.
func (s *chatService) Disconnect(ctx context.Context, sess Session) {
	s.leaveCurrent(ctx, sess)
}

// ListUsers answers with the currently connected users, privately.
func (s *chatService) ListUsers(ctx context.Context, sess Session) {
	users, err := s.presence.ListActiveUsers(ctx)
	if err != nil {
		s.logger.Errorf("failed to list active users: %v", err)
		return
	}
	sess.Send(domain.Event{
		Type:      domain.EventTypeSystem,
		Message:   fmt.Sprintf("Active users: %s", strings.Join(users, ", ")),
		Timestamp: time.Now().UTC(),
	})
}

// ListRooms answers with the rooms that currently have members, privately.
func (s *chatService) ListRooms(ctx context.Context, sess Session) {
	rooms, err := s.presence.ListRooms(ctx)
	if err != nil {
		s.logger.Errorf("failed to list rooms: %v", err)
		return
	}
	sess.Send(domain.Event{
		Type:      domain.EventTypeSystem,
		Message:   fmt.Sprintf("Active rooms: %s", strings.Join(rooms, ", ")),
		Timestamp: time.Now().UTC(),
	})
}

func (s *chatService) deny(sess Session) {
	sess.Send(domain.Event{
		Type:    domain.EventTypeError,
		Message: accessDeniedReason,
	})
}

// leaveCurrent drops sess's current membership, if any, and announces the
// departure to the remaining members.
func (s *chatService) leaveCurrent(ctx context.Context, sess Session) {
	s.mu.Lock()
	m, ok := s.joined[sess.ID()]
	delete(s.joined, sess.ID())
	s.mu.Unlock()

	if !ok {
		return
	}

	s.registry.Leave(sess.ID())

	if err := s.presence.RemoveRoomMember(ctx, m.room, m.username); err != nil {
		s.logger.Errorf("failed to untrack %s in room %s: %v", m.username, m.room, err)
	}
	if err := s.presence.RemoveActiveUser(ctx, m.username); err != nil {
		s.logger.Errorf("failed to untrack active user %s: %v", m.username, err)
	}

	s.logger.Infof("%s left room %s", m.username, m.room)
	s.notifyRoom(m.room, fmt.Sprintf("%s left the room", m.username))
}

func (s *chatService) notifyRoom(room, text string) {
	if err := s.registry.Broadcast(room, domain.Event{
		Type:      domain.EventTypeSystem,
		Room:      room,
		Message:   text,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		s.logger.Errorf("failed to notify room %s: %v", room, err)
	}
}
