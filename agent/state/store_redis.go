package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var casRedisScript = redis.NewScript(casScript)

// RedisStore persists ConversationState in a directly reachable Redis.
type RedisStore struct {
	client redis.UniversalClient
	opts   storeOptions
}

type RedisConfig struct {
	URL string `envconfig:"URL"`
}

// NewRedisClient parses a redis:// or rediss:// URL.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis url is required")
	}
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}

func NewRedisStore(client redis.UniversalClient, opts ...StoreOption) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return &RedisStore{client: client, opts: o}, nil
}

func (s *RedisStore) Load(ctx context.Context, threadID string) (*ConversationState, error) {
	key, err := s.opts.key(threadID)
	if err != nil {
		return nil, err
	}
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return decodeState(payload)
}

func (s *RedisStore) Save(ctx context.Context, st *ConversationState) error {
	next, err := nextVersion(st, s.opts.clock())
	if err != nil {
		return err
	}
	key, err := s.opts.key(next.ThreadID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal conversation state: %w", err)
	}

	applied, err := casRedisScript.Run(ctx, s.client, []string{key},
		st.Version, string(payload), ttlSeconds(s.opts.ttl)).Int64()
	if err != nil {
		return fmt.Errorf("redis eval: %w", err)
	}
	if applied != 1 {
		return ErrVersionConflict
	}
	commit(st, next)
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, threadID string) error {
	key, err := s.opts.key(threadID)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
