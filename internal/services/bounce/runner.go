package bounce

import (
	"context"
	"time"

	"github.com/fleetlink/notifier/internal/domain/bounce"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Runner is the single background worker draining the bounce queue on a
// fixed period. Shutdown finishes the in-flight batch and starts no new
// one.
type Runner struct {
	log   *zap.Logger
	queue bounce.Queue
	cache *Cache

	period    time.Duration
	batchSize int

	mReceived   prometheus.Counter
	mSuppressed prometheus.Counter
	mParseErr   prometheus.Counter
	mDrainDur   prometheus.Histogram
}

func NewRunner(queue bounce.Queue, cache *Cache, period time.Duration, batchSize int, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.L()
	}
	if period <= 0 {
		period = time.Hour
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Runner{
		log:       log.With(zap.String("component", "bounce.runner")),
		queue:     queue,
		cache:     cache,
		period:    period,
		batchSize: batchSize,
		mReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bounce_messages_received_total", Help: "Bounce queue messages received.",
		}),
		mSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bounce_addresses_suppressed_total", Help: "Addresses added to the suppression set.",
		}),
		mParseErr: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bounce_parse_errors_total", Help: "Queue messages that failed to parse.",
		}),
		mDrainDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "bounce_drain_duration_seconds", Help: "Duration of one drain pass.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	r.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.drain(ctx)
		}
	}
}

// drain receives batches until the queue reports empty. Every message is
// deleted regardless of parse outcome so one poison payload cannot wedge
// the queue.
func (r *Runner) drain(ctx context.Context) {
	start := time.Now()
	defer func() { r.mDrainDur.Observe(time.Since(start).Seconds()) }()

	if err := r.queue.Ensure(ctx); err != nil {
		r.log.Warn("bounce queue ensure failed", zap.Error(err))
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}
		msgs, err := r.queue.Receive(ctx, r.batchSize)
		if err != nil {
			r.log.Warn("bounce queue receive failed", zap.Error(err))
			return
		}
		if len(msgs) == 0 {
			return
		}
		for _, m := range msgs {
			r.mReceived.Inc()
			r.handle(ctx, m)
			if err := r.queue.Delete(ctx, m); err != nil {
				r.log.Warn("bounce queue delete failed", zap.String("msg_id", m.ID), zap.Error(err))
			}
		}
	}
}

func (r *Runner) handle(ctx context.Context, m bounce.Message) {
	n, err := bounce.Parse(m.Body)
	if err != nil {
		r.mParseErr.Inc()
		r.log.Warn("malformed bounce message", zap.String("msg_id", m.ID), zap.Error(err))
		return
	}
	for _, addr := range n.Addresses() {
		if err := r.cache.Add(ctx, addr); err != nil {
			continue
		}
		r.mSuppressed.Inc()
		r.log.Info("address suppressed", zap.String("address", addr))
	}
}
