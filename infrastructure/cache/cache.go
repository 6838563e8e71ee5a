package cache

import (
	"context"
	"fmt"

	"social-publisher/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

// NewCache connects to redis and pings it so a bad address fails at startup
// rather than on the first authorization flow.
func NewCache(ctx context.Context, addr string, username string, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while connecting to Redis")
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}
