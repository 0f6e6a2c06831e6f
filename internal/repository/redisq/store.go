package redisq

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetlink/notifier/internal/domain/bounce"
	"github.com/redis/go-redis/v9"
)

const bouncedPrefix = "bounced:"

// Store is the authoritative bounced-address record: one key per address
// with the configured TTL, so suppression ages out on its own.
type Store struct {
	c *redis.Client
}

var _ bounce.Store = (*Store)(nil)

func NewStore(c *redis.Client) *Store { return &Store{c: c} }

func (s *Store) Add(ctx context.Context, address string, ttl time.Duration) error {
	if err := s.c.Set(ctx, bouncedPrefix+address, "1", ttl).Err(); err != nil {
		return fmt.Errorf("set bounced address: %w", err)
	}
	return nil
}

func (s *Store) Contains(ctx context.Context, address string) (bool, error) {
	n, err := s.c.Exists(ctx, bouncedPrefix+address).Result()
	if err != nil {
		return false, fmt.Errorf("exists bounced address: %w", err)
	}
	return n > 0, nil
}

func (s *Store) Scan(ctx context.Context) ([]string, error) {
	var (
		out    []string
		cursor uint64
	)
	for {
		keys, next, err := s.c.Scan(ctx, cursor, bouncedPrefix+"*", 500).Result()
		if err != nil {
			return nil, fmt.Errorf("scan bounced addresses: %w", err)
		}
		for _, k := range keys {
			out = append(out, k[len(bouncedPrefix):])
		}
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}
