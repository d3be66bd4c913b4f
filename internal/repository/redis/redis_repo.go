package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheTTL = time.Hour

// RedisRepo caches the live status and progress of videos so clients can
// re-fetch state cheaply after a reconnect.
type RedisRepo struct {
	Client *redis.Client
}

func NewRedisRepo(client *redis.Client) *RedisRepo {
	return &RedisRepo{Client: client}
}

func (r *RedisRepo) SetStatus(ctx context.Context, videoID, status string) error {
	return r.Client.Set(ctx, "video_status:"+videoID, status, cacheTTL).Err()
}

func (r *RedisRepo) GetStatus(ctx context.Context, videoID string) (string, error) {
	return r.Client.Get(ctx, "video_status:"+videoID).Result()
}

func (r *RedisRepo) SetProgress(ctx context.Context, videoID string, progress int) error {
	return r.Client.Set(ctx, "video_progress:"+videoID, progress, cacheTTL).Err()
}

func (r *RedisRepo) GetProgress(ctx context.Context, videoID string) (int, bool, error) {
	val, err := r.Client.Get(ctx, "video_progress:"+videoID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	progress, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, err
	}
	return progress, true, nil
}
