package presence

import (
	"context"
	"sort"
	"sync"
)

// MemoryTracker is the in-process Tracker used by tests and local runs
// without Redis.
type MemoryTracker struct {
	mu    sync.Mutex
	users map[string]int // username -> connection count
	rooms map[string]map[string]struct{}
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		users: make(map[string]int),
		rooms: make(map[string]map[string]struct{}),
	}
}

func (m *MemoryTracker) AddActiveUser(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[username]++
	return nil
}

func (m *MemoryTracker) RemoveActiveUser(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users[username] > 1 {
		m.users[username]--
	} else {
		delete(m.users, username)
	}
	return nil
}

func (m *MemoryTracker) ListActiveUsers(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.users))
	for u := range m.users {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryTracker) AddRoomMember(_ context.Context, room, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rooms[room] == nil {
		m.rooms[room] = make(map[string]struct{})
	}
	m.rooms[room][username] = struct{}{}
	return nil
}

func (m *MemoryTracker) RemoveRoomMember(_ context.Context, room, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if members, ok := m.rooms[room]; ok {
		delete(members, username)
		if len(members) == 0 {
			delete(m.rooms, room)
		}
	}
	return nil
}

func (m *MemoryTracker) ListRooms(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.rooms))
	for r := range m.rooms {
		out = append(out, r)
	}
	sort.Strings(out)
	return out, nil
}
