package storage

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

var (
	rdb *redis.Client
	ctx = context.Background()
)

func InitRedis(c Config) error {
	rdb = redis.NewClient(&redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})
	return rdb.Ping(ctx).Err()
}

// Enabled reports whether the redis mirror was configured.
func Enabled() bool { return rdb != nil }
