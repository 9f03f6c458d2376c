package store

import (
	"context"
	"sync"
	"time"

	"chatrelay/internal/domain"
)

// MemoryStore is an in-memory Store used by tests and local development.
// It mirrors the MongoDB implementation's semantics: case-insensitive room
// identity, store-assigned timestamps, ascending history.
type MemoryStore struct {
	mu       sync.RWMutex
	rooms    map[string][]string
	messages map[string][]domain.ChatMessage

	// failWith, when set, makes every operation fail. Lets tests exercise
	// the StoreUnavailable paths.
	failWith error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:    make(map[string][]string),
		messages: make(map[string][]domain.ChatMessage),
	}
}

// ProvisionRoom replaces a room's authorized user set.
func (s *MemoryStore) ProvisionRoom(room string, users []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := make([]string, 0, len(users))
	for _, u := range users {
		normalized = append(normalized, domain.Normalize(u))
	}
	s.rooms[domain.Normalize(room)] = normalized
}

// RevokeUser removes one username from a room's authorized set.
func (s *MemoryStore) RevokeUser(room, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room = domain.Normalize(room)
	username = domain.Normalize(username)
	kept := s.rooms[room][:0]
	for _, u := range s.rooms[room] {
		if u != username {
			kept = append(kept, u)
		}
	}
	s.rooms[room] = kept
}

// FailWith forces every subsequent operation to return err. Pass nil to
// restore normal behavior.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *MemoryStore) GetAuthorizedUsers(ctx context.Context, room string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failWith != nil {
		return nil, s.failWith
	}

	users, ok := s.rooms[domain.Normalize(room)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	out := make([]string, len(users))
	copy(out, users)
	return out, nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, room, username, message string) (domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return domain.ChatMessage{}, s.failWith
	}

	msg := domain.ChatMessage{
		Room:      domain.Normalize(room),
		Username:  domain.Normalize(username),
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	s.messages[msg.Room] = append(s.messages[msg.Room], msg)
	return msg, nil
}

func (s *MemoryStore) GetHistory(ctx context.Context, room string) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failWith != nil {
		return nil, s.failWith
	}

	stored := s.messages[domain.Normalize(room)]
	out := make([]domain.ChatMessage, len(stored))
	copy(out, stored)
	return out, nil
}
