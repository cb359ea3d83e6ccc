package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	activeRoomsKey  = "activeRooms"
	roomKeyPrefix   = "room:"
	chatKeyPrefix   = "chat:"
	connectAttempts = 10
)

// Redis implements Store on a Redis server, one hash per room and one list
// per chat log. The list is built with LPUSH, so stored order is newest
// first.
type Redis struct {
	client *redis.Client
}

// OpenRedis connects to the Redis server at the given URL, retrying for a
// short while so the server can start before its container dependencies.
func OpenRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("store: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	for i := 0; i < connectAttempts; i++ {
		if err = client.Ping(ctx).Err(); err == nil {
			return &Redis{client: client}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(500+i*200) * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("store: connect redis: %w", err)
}

// NewRedis wraps an existing client, for tests.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (s *Redis) RegisterRoom(ctx context.Context, roomID string) error {
	if err := s.client.SAdd(ctx, activeRoomsKey, roomID).Err(); err != nil {
		return fmt.Errorf("store: sadd: %w", err)
	}
	return nil
}

func (s *Redis) RoomExists(ctx context.Context, roomID string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, activeRoomsKey, roomID).Result()
	if err != nil {
		return false, fmt.Errorf("store: sismember: %w", err)
	}
	return ok, nil
}

func (s *Redis) SetPlayback(ctx context.Context, roomID string, fields map[string]string) error {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	if err := s.client.HSet(ctx, roomKeyPrefix+roomID, args...).Err(); err != nil {
		return fmt.Errorf("store: hset: %w", err)
	}
	return nil
}

func (s *Redis) GetPlayback(ctx context.Context, roomID string) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, roomKeyPrefix+roomID).Result()
	if err != nil {
		return nil, fmt.Errorf("store: hgetall: %w", err)
	}
	return fields, nil
}

func (s *Redis) AppendChat(ctx context.Context, roomID string, raw []byte, keep int64) error {
	key := chatKeyPrefix + roomID
	if err := s.client.LPush(ctx, key, raw).Err(); err != nil {
		return fmt.Errorf("store: lpush: %w", err)
	}
	if keep > 0 {
		if err := s.client.LTrim(ctx, key, 0, keep-1).Err(); err != nil {
			return fmt.Errorf("store: ltrim: %w", err)
		}
	}
	return nil
}

func (s *Redis) ChatHistory(ctx context.Context, roomID string) ([][]byte, error) {
	entries, err := s.client.LRange(ctx, chatKeyPrefix+roomID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("store: lrange: %w", err)
	}
	out := make([][]byte, len(entries))
	for i, e := range entries {
		out[i] = []byte(e)
	}
	return out, nil
}

func (s *Redis) PurgeRoom(ctx context.Context, roomID string) error {
	if err := s.client.SRem(ctx, activeRoomsKey, roomID).Err(); err != nil {
		return fmt.Errorf("store: srem: %w", err)
	}
	if err := s.client.Del(ctx, roomKeyPrefix+roomID, chatKeyPrefix+roomID).Err(); err != nil {
		return fmt.Errorf("store: del: %w", err)
	}
	return nil
}

func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Redis) Close() error {
	return s.client.Close()
}
