package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"yourvocab/internal/quiz"
	"yourvocab/internal/security"
)

const (
	sessionKeyPrefix = "quiz:session:"
	lockKeyPrefix    = "quiz:lock:"

	defaultLockTTL   = 10 * time.Second
	lockPollInterval = 20 * time.Millisecond
)

// releaseScript deletes the lock only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore keeps sessions as JSON values with a TTL
type RedisStore struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

// NewRedisStore creates a store on client; ttl zero keeps sessions forever
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client:  client,
		ttl:     ttl,
		lockTTL: defaultLockTTL,
	}
}

// Get loads the session stored under id
func (r *RedisStore) Get(ctx context.Context, id string) (*quiz.Session, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, quiz.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var s quiz.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &s, nil
}

// Save writes the session and resets its TTL
func (r *RedisStore) Save(ctx context.Context, s *quiz.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, sessionKeyPrefix+s.ID, data, r.ttl).Err()
}

// Lock acquires a SET NX lock on the session, polling until ctx ends.
// The lock expires by itself after lockTTL if the holder dies.
func (r *RedisStore) Lock(ctx context.Context, id string) (func(), error) {
	key := lockKeyPrefix + id
	token := security.GenerateSessionID()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}

		t := time.NewTimer(lockPollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		// a lock left behind expires after lockTTL
		_ = releaseScript.Run(ctx, r.client, []string{key}, token).Err()
	}, nil
}

// Close closes the underlying client
func (r *RedisStore) Close() error {
	return r.client.Close()
}
