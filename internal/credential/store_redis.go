package credential

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps credentials in one Redis hash, field per identity. Used
// for multi-instance deployments where a shared directory is impractical.
type RedisStore struct {
	client *redis.Client
	key    string
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "geminicli2api"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &RedisStore{client: client, key: prefix + ":credentials"}, nil
}

// Ping verifies connectivity; called once at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.HKeys(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *RedisStore) Read(ctx context.Context, identity string) ([]byte, error) {
	data, err := s.client.HGet(ctx, s.key, identity).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read credential %s: %w", identity, err)
	}
	return data, nil
}

func (s *RedisStore) Write(ctx context.Context, identity string, data []byte) error {
	if identity == "" {
		return fmt.Errorf("credential identity is required")
	}
	if err := s.client.HSet(ctx, s.key, identity, data).Err(); err != nil {
		return fmt.Errorf("write credential %s: %w", identity, err)
	}
	return nil
}
