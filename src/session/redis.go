package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	agent "github.com/Protocol-Lattice/research-agent"
)

const defaultKeyPrefix = "researchbot:session"

// RedisStore keeps each conversation in a Redis list of JSON encoded turns.
// Every write refreshes the list's TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStoreFromClient(client, opts.Prefix, opts.TTL), nil
}

func NewRedisStoreFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":" + id
}

func (s *RedisStore) History(ctx context.Context, id string) ([]agent.Message, error) {
	raw, err := s.client.LRange(ctx, s.key(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	out := make([]agent.Message, 0, len(raw))
	for _, item := range raw {
		var msg agent.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}

func (s *RedisStore) Append(ctx context.Context, id string, msg agent.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}
	key := s.key(id)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
