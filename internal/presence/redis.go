package presence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	activeUsersKey = "active_users"
	allRoomsKey    = "all_rooms"
	roomKeyPrefix  = "room:"
)

// RedisTracker implements Tracker on Redis sets.
type RedisTracker struct {
	client *redis.Client
}

func NewRedisTracker(ctx context.Context, redisURL string) (*RedisTracker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisTracker{client: client}, nil
}

func (r *RedisTracker) AddActiveUser(ctx context.Context, username string) error {
	return r.client.SAdd(ctx, activeUsersKey, username).Err()
}

func (r *RedisTracker) RemoveActiveUser(ctx context.Context, username string) error {
	return r.client.SRem(ctx, activeUsersKey, username).Err()
}

func (r *RedisTracker) ListActiveUsers(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, activeUsersKey).Result()
}

// AddRoomMember records username in the room's member set and tracks the
// room in the all_rooms set.
func (r *RedisTracker) AddRoomMember(ctx context.Context, room, username string) error {
	if err := r.client.SAdd(ctx, roomKeyPrefix+room, username).Err(); err != nil {
		return err
	}
	return r.client.SAdd(ctx, allRoomsKey, room).Err()
}

// RemoveRoomMember removes username from the room's member set, dropping
// the room from all_rooms once it empties.
func (r *RedisTracker) RemoveRoomMember(ctx context.Context, room, username string) error {
	key := roomKeyPrefix + room
	if err := r.client.SRem(ctx, key, username).Err(); err != nil {
		return err
	}

	remaining, err := r.client.SCard(ctx, key).Result()
	if err != nil {
		return err
	}
	if remaining == 0 {
		return r.client.SRem(ctx, allRoomsKey, room).Err()
	}
	return nil
}

func (r *RedisTracker) ListRooms(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, allRoomsKey).Result()
}

// FlushAll clears the whole database. Test helper.
func (r *RedisTracker) FlushAll(ctx context.Context) error {
	return r.client.FlushAll(ctx).Err()
}

func (r *RedisTracker) Close() error {
	return r.client.Close()
}
