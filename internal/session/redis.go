package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key under which RedisStore keeps the session.
const DefaultRedisKey = "candidash:session"

// RedisStore keeps the session as one JSON value in Redis, so several
// processes on a shared runner see the same login.
type RedisStore struct {
	client redis.Cmdable
	key    string
	now    func() time.Time
}

// NewRedisStore creates a store using client. An empty key selects DefaultRedisKey.
func NewRedisStore(client redis.Cmdable, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key, now: time.Now}
}

// OpenRedisStore parses a redis:// URL, verifies connectivity and returns a store.
// The returned close function releases the connection pool.
func OpenRedisStore(ctx context.Context, url, key string) (*RedisStore, func() error, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis not reachable: %w", err)
	}

	return NewRedisStore(client, key), client.Close, nil
}

// Save writes the whole session with a single SET. When the session has a
// known expiry the key expires with it, and a session already past it is
// rejected with ErrExpired.
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	if s == nil {
		return errors.New("session: cannot save nil session")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	var ttl time.Duration
	if !s.ExpiresAt.IsZero() {
		ttl = s.ExpiresAt.Sub(r.now())
		if ttl <= 0 {
			return fmt.Errorf("%w: expired at %s", ErrExpired, s.ExpiresAt.Format(time.RFC3339))
		}
	}

	if err := r.client.Set(ctx, r.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load reads the session value.
func (r *RedisStore) Load(ctx context.Context) (*Session, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if s.Token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrCorrupt)
	}
	return &s, nil
}

// Clear deletes the session key.
func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
