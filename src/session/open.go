package session

import (
	"context"
	"fmt"

	"github.com/Protocol-Lattice/research-agent/src/config"
)

// Open returns the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.SessionConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		store, err := NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.KeyPrefix,
			TTL:      cfg.TTL,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}
