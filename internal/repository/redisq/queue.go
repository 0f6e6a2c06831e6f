package redisq

import (
	"context"
	"errors"
	"fmt"

	"github.com/fleetlink/notifier/internal/domain/bounce"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Config names the bounce queue and its connection.
type Config struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Queue    string `mapstructure:"queue"`
}

// Queue backs the named bounce queue with a redis list. Receive moves
// messages onto a processing list so a crashed consumer leaves them
// recoverable; Delete removes them from the processing list.
type Queue struct {
	c          *redis.Client
	name       string
	processing string
	log        *zap.Logger
}

var _ bounce.Queue = (*Queue)(nil)

func New(cfg Config, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.L()
	}
	return &Queue{
		c: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		name:       cfg.Queue,
		processing: cfg.Queue + ":processing",
		log:        log.With(zap.String("component", "redisq"), zap.String("queue", cfg.Queue)),
	}
}

// NewWithClient shares an existing client (queue and store on one
// connection pool).
func NewWithClient(c *redis.Client, queue string, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.L()
	}
	return &Queue{
		c:          c,
		name:       queue,
		processing: queue + ":processing",
		log:        log.With(zap.String("component", "redisq"), zap.String("queue", queue)),
	}
}

// Ensure verifies the backend is reachable. Lists need no declaration.
func (q *Queue) Ensure(ctx context.Context) error {
	if err := q.c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (q *Queue) Receive(ctx context.Context, max int) ([]bounce.Message, error) {
	if max <= 0 {
		max = 10
	}
	out := make([]bounce.Message, 0, max)
	for len(out) < max {
		v, err := q.c.LMove(ctx, q.name, q.processing, "RIGHT", "LEFT").Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("lmove: %w", err)
		}
		out = append(out, bounce.Message{ID: v, Body: []byte(v)})
	}
	return out, nil
}

func (q *Queue) Delete(ctx context.Context, m bounce.Message) error {
	if err := q.c.LRem(ctx, q.processing, 1, m.ID).Err(); err != nil {
		return fmt.Errorf("lrem: %w", err)
	}
	return nil
}

func (q *Queue) Close() error { return q.c.Close() }
