package bounce

import (
	"context"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/fleetlink/notifier/internal/domain/bounce"
	"go.uber.org/zap"
)

// CacheConfig tunes the two-tier membership structure.
type CacheConfig struct {
	// ExpectedInsertions sizes the bloom filter.
	ExpectedInsertions uint    `mapstructure:"expected_insertions"`
	FalsePositiveRate  float64 `mapstructure:"false_positive_rate"`
	// TTL bounds how long an address stays authoritatively suppressed,
	// which also bounds the lifetime of filter false positives.
	TTL time.Duration `mapstructure:"ttl"`
}

// Cache is the bounced-address membership set: a probabilistic pre-filter
// in front of an authoritative TTL store. A negative filter answer is
// final; a positive one is confirmed against the store.
type Cache struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
	store  bounce.Store
	ttl    time.Duration
	log    *zap.Logger
}

var _ bounce.Suppressor = (*Cache)(nil)

func NewCache(cfg CacheConfig, store bounce.Store, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.L()
	}
	if cfg.ExpectedInsertions == 0 {
		cfg.ExpectedInsertions = 100_000
	}
	if cfg.FalsePositiveRate <= 0 {
		cfg.FalsePositiveRate = 0.01
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 14 * 24 * time.Hour
	}
	return &Cache{
		filter: bloom.NewWithEstimates(cfg.ExpectedInsertions, cfg.FalsePositiveRate),
		store:  store,
		ttl:    cfg.TTL,
		log:    log.With(zap.String("component", "bounce.cache")),
	}
}

// Warm preloads the filter from the backing store so a fresh process
// does not miss addresses suppressed before it started.
func (c *Cache) Warm(ctx context.Context) error {
	addrs, err := c.store.Scan(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	for _, a := range addrs {
		c.filter.AddString(a)
	}
	c.mu.Unlock()
	c.log.Info("bounce filter warmed", zap.Int("addresses", len(addrs)))
	return nil
}

// Add marks an address permanently undeliverable.
func (c *Cache) Add(ctx context.Context, address string) error {
	c.mu.Lock()
	c.filter.AddString(address)
	c.mu.Unlock()

	if err := c.store.Add(ctx, address, c.ttl); err != nil {
		c.log.Warn("bounce store add failed", zap.String("address", address), zap.Error(err))
		return err
	}
	return nil
}

// IsSuppressed reports whether the address is known undeliverable. Store
// lookup failures fail open: mail is not blocked on cache trouble.
func (c *Cache) IsSuppressed(ctx context.Context, address string) bool {
	c.mu.RLock()
	hit := c.filter.TestString(address)
	c.mu.RUnlock()
	if !hit {
		return false
	}

	ok, err := c.store.Contains(ctx, address)
	if err != nil {
		c.log.Warn("bounce store lookup failed", zap.String("address", address), zap.Error(err))
		return false
	}
	return ok
}
