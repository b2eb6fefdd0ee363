package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/fileblog/internal/model"
)

var _ Store = (*RedisStore)(nil)

const keyPrefix = "fileblog:session:"

// NewRedisClient returns a go-redis client for a URL such as
// redis://localhost:6379/0, after checking the server answers PING.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("session: empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("session: parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("session: pinging redis: %w", err)
	}

	return client, nil
}

// RedisStore keeps each session as a JSON value whose TTL is the time left
// until ExpiresAt. Redis does the expiry; Get never sees a dead session.
type RedisStore struct {
	client redis.Cmdable
	now    func() time.Time
}

// NewRedisStore wraps an existing client. The caller owns the client and
// closes it.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (r *RedisStore) Save(ctx context.Context, s *model.Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encoding %s: %w", s.ID, err)
	}

	if err := r.client.Set(ctx, keyPrefix+s.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("session: saving %s: %w", s.ID, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*model.Session, error) {
	data, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: loading %s: %w", id, err)
	}

	var s model.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("session: decoding %s: %w", id, err)
	}
	// Clock skew between us and redis: trust our own view of expiry too.
	if s.Expired(r.now()) {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("session: deleting %s: %w", id, err)
	}
	return nil
}
