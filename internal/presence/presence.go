// Package presence tracks which users are currently connected and which
// rooms currently have members. Presence is advisory state for the
// list_users / list_rooms commands; it is never consulted for authorization.
package presence

import "context"

type Tracker interface {
	AddActiveUser(ctx context.Context, username string) error
	RemoveActiveUser(ctx context.Context, username string) error
	ListActiveUsers(ctx context.Context) ([]string, error)

	AddRoomMember(ctx context.Context, room, username string) error
	RemoveRoomMember(ctx context.Context, room, username string) error
	ListRooms(ctx context.Context) ([]string, error)
}
