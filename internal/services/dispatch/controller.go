package dispatch

import (
	"context"

	"github.com/fleetlink/notifier/internal/domain/alert"
	"github.com/fleetlink/notifier/internal/obs"
	kafkax "github.com/fleetlink/notifier/internal/repository/kafka"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Controller consumes the alert stream and feeds the engine. Dispatch
// outcomes land in delivery history; a consume error only surfaces when
// resolution or persistence breaks, so the message is retried.
type Controller struct {
	log    *zap.Logger
	sub    *kafkax.Consumer
	engine *Engine

	mConsumed   prometheus.Counter
	mSuppressed prometheus.Counter
	mErrors     prometheus.Counter
}

func NewController(log *zap.Logger, sub *kafkax.Consumer, engine *Engine) *Controller {
	if log == nil {
		log = zap.L()
	}
	return &Controller{
		log:    log.With(zap.String("component", "dispatch.controller")),
		sub:    sub,
		engine: engine,
		mConsumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_alerts_consumed_total", Help: "Alert events consumed.",
		}),
		mSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_alerts_suppressed_total", Help: "Alerts suppressed for lack of configuration.",
		}),
		mErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_errors_total", Help: "Dispatch errors.",
		}),
	}
}

func (c *Controller) Run(ctx context.Context) error {
	handler := kafkax.JSONHandler(
		func(ctx context.Context, _ []byte, a *alert.Alert) error {
			c.mConsumed.Inc()
			log := obs.WithTrace(ctx, c.log)
			if a.ID == "" || a.VehicleID == "" {
				log.Warn("invalid alert event",
					zap.String("id", a.ID), zap.String("vehicle_id", a.VehicleID))
				return nil
			}
			h, err := c.engine.Dispatch(ctx, a)
			if err != nil {
				c.mErrors.Inc()
				return err
			}
			if h == nil {
				c.mSuppressed.Inc()
			}
			return nil
		},
	)
	return c.sub.Consume(ctx, handler)
}
