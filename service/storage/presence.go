package storage

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// presence key: im:presence:<user>
// Value: session id of the live connection, TTL controls the online validity
// period. The in-process registry stays the source of truth for routing; this
// mirror only makes presence observable outside the gateway process.
func presenceKey(user string) string { return "im:presence:" + user }

// PresenceOnline marks the user online and renews the TTL.
func PresenceOnline(user, sessionID string, ttl time.Duration) error {
	if rdb == nil {
		return fmt.Errorf("redis not initialized")
	}
	return rdb.Set(ctx, presenceKey(user), sessionID, ttl).Err()
}

// PresenceOffline actively marks the user offline (deletes the key).
func PresenceOffline(user string) error {
	if rdb == nil {
		return fmt.Errorf("redis not initialized")
	}
	return rdb.Del(ctx, presenceKey(user)).Err()
}

// PresenceLookup checks whether the user is online.
func PresenceLookup(user string) (sessionID string, online bool, err error) {
	if rdb == nil {
		return "", false, fmt.Errorf("redis not initialized")
	}
	val, err := rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
