package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

func DefaultTransportPolicy(log *zap.Logger) Policy {
	return Policy{
		Name:     "vehicle_transport",
		Attempts: 5,
		Backoff:  ExpoJitter{Base: 200 * time.Millisecond, Max: 10 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			return err != nil
		},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("transport retry", zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("transport retries exhausted", zap.Error(err))
			}
		},
	}
}
