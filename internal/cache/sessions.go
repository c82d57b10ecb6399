package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/amevide998/lms/internal/domain/user"
	"github.com/redis/go-redis/v9"
)

// SessionCache keeps a denormalized user snapshot keyed by user id for
// fast session-state reads. The credential store stays authoritative;
// entries age out with the refresh-token lifetime.
type SessionCache struct {
	redisdb *redis.Client
	ttl     time.Duration
}

func NewSessionCache(client *Client, ttl time.Duration) *SessionCache {
	return &SessionCache{
		redisdb: client.Raw(),
		ttl:     ttl,
	}
}

// Put unconditionally overwrites any existing entry for the user.
// The serialized form never includes the password hash.
func (s *SessionCache) Put(ctx context.Context, userID string, u user.User) error {
	payload, err := json.Marshal(u)

	if err != nil {
		return err
	}

	return s.redisdb.Set(ctx, sessionKey(userID), payload, s.ttl).Err()
}

func (s *SessionCache) Get(ctx context.Context, userID string) (user.User, bool, error) {
	payload, err := s.redisdb.Get(ctx, sessionKey(userID)).Bytes()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return user.User{}, false, nil
		}

		return user.User{}, false, err
	}

	var u user.User

	err = json.Unmarshal(payload, &u)

	if err != nil {
		return user.User{}, false, err
	}

	return u, true, nil
}

func (s *SessionCache) Delete(ctx context.Context, userID string) error {
	return s.redisdb.Del(ctx, sessionKey(userID)).Err()
}

func sessionKey(userID string) string {
	return "session:" + userID
}
