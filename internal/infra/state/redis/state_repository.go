// Package redisstate implements the ephemeral room state on Redis: presence
// sets, the per-room message sequence counter, and the AI typing flag.
package redisstate

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStateRepository implements repository.PresenceRepository and
// repository.SequenceRepository.
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStateRepository creates a RedisStateRepository.
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "chat:"
	}
	return &RedisStateRepository{client: client, keyPrefix: keyPrefix}
}

func (r *RedisStateRepository) roomSeqKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s:seq", r.keyPrefix, roomID)
}

func (r *RedisStateRepository) roomPresenceKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s:online", r.keyPrefix, roomID)
}

func (r *RedisStateRepository) roomAITypingKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s:ai_typing", r.keyPrefix, roomID)
}

// NextSeq atomically increments and returns the room's message sequence.
func (r *RedisStateRepository) NextSeq(ctx context.Context, roomID string) (uint64, error) {
	key := r.roomSeqKey(roomID)
	seq, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: failed to increment message seq for room %s on key %s: %w", roomID, key, err)
	}
	return uint64(seq), nil
}

func (r *RedisStateRepository) MarkOnline(ctx context.Context, roomID, userID string) error {
	key := r.roomPresenceKey(roomID)
	pipe := r.client.Pipeline()
	pipe.SAdd(ctx, key, userID)
	pipe.Expire(ctx, key, 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: failed to mark user %s online in room %s: %w", userID, roomID, err)
	}
	return nil
}

func (r *RedisStateRepository) MarkOffline(ctx context.Context, roomID, userID string) error {
	key := r.roomPresenceKey(roomID)
	if err := r.client.SRem(ctx, key, userID).Err(); err != nil {
		return fmt.Errorf("redis: failed to mark user %s offline in room %s: %w", userID, roomID, err)
	}
	return nil
}

func (r *RedisStateRepository) OnlineUsers(ctx context.Context, roomID string) ([]string, error) {
	key := r.roomPresenceKey(roomID)
	users, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to list online users of room %s: %w", roomID, err)
	}
	return users, nil
}

// SetAITyping flips the AI typing flag. The key carries a short TTL so a
// crashed worker can never leave a room stuck in the typing state.
func (r *RedisStateRepository) SetAITyping(ctx context.Context, roomID string, typing bool) error {
	key := r.roomAITypingKey(roomID)
	var err error
	if typing {
		err = r.client.Set(ctx, key, "1", 2*time.Minute).Err()
	} else {
		err = r.client.Del(ctx, key).Err()
	}
	if err != nil {
		return fmt.Errorf("redis: failed to set ai typing flag for room %s: %w", roomID, err)
	}
	return nil
}
