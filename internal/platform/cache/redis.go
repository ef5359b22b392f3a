package cache

import (
	"context"
	"fmt"
	"time"

	"bitscode/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

var RDB *redis.Client

// ConnectRedis dials the server described by config.AppConfig and pings it.
func ConnectRedis(ctx context.Context) error {
	RDB = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := RDB.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	return nil
}

func CloseRedis() {
	if RDB != nil {
		RDB.Close()
	}
}
