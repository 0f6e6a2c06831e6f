package ivm

import (
	"context"

	domain "github.com/fleetlink/notifier/internal/domain/ivm"
	"github.com/fleetlink/notifier/internal/obs"
	kafkax "github.com/fleetlink/notifier/internal/repository/kafka"
	"go.uber.org/zap"
)

// Controller drains the inbound acknowledgment stream into ProcessAck.
type Controller struct {
	Log *zap.Logger
	Sub *kafkax.Consumer
	D   *Dispatcher
}

func (c *Controller) Run(ctx context.Context) error {
	handler := kafkax.JSONHandler(
		func(ctx context.Context, _ []byte, ev *domain.AckEvent) error {
			if ev.VehicleID == "" {
				obs.WithTrace(ctx, c.Log).Warn("ack event without vehicle id", zap.String("kind", string(ev.Kind)))
				return nil
			}
			return c.D.ProcessAck(ctx, ev)
		},
	)
	return c.Sub.Consume(ctx, handler)
}
