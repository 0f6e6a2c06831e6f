package dispatch

import (
	"context"

	"github.com/fleetlink/notifier/internal/domain/alert"
	"github.com/fleetlink/notifier/internal/domain/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Error codes shared across providers.
const (
	errCodeUserNotResolved    = "USER_NOT_RESOLVED"
	errCodeMissingDestination = "MISSING_DESTINATION"
	errCodeSendFailed         = "SEND_FAILED"
)

// Provider publishes one alert through one channel. Implementations never
// let a send failure escape as an error: every outcome is folded into the
// returned ChannelResponse so one channel cannot abort the others.
type Provider interface {
	Publish(ctx context.Context, a *alert.Alert) alert.ChannelResponse
	SetupChannel(ctx context.Context, cfg config.NotificationConfig) alert.ChannelResponse
	DestroyChannel(ctx context.Context, key string, eventData map[string]string) alert.ChannelResponse
	ChannelType() config.ChannelType
	ProviderName() string
	Protocol() string
}

// Publisher is the provider-specific half wrapped by Base.
type Publisher interface {
	DoPublish(ctx context.Context, a *alert.Alert) alert.ChannelResponse
}

// Base carries the shared wrapping of every Publish call: the per-category
// counter, the unauthenticated-event precondition, and a span.
type Base struct {
	channel config.ChannelType
	name    string
	proto   string
	metrics *Metrics
	log     *zap.Logger
	impl    Publisher
}

func NewBase(channel config.ChannelType, name, proto string, metrics *Metrics, log *zap.Logger, impl Publisher) Base {
	if log == nil {
		log = zap.L()
	}
	return Base{
		channel: channel,
		name:    name,
		proto:   proto,
		metrics: metrics,
		log:     log.With(zap.String("component", "dispatch."+name)),
		impl:    impl,
	}
}

func (b *Base) ChannelType() config.ChannelType { return b.channel }
func (b *Base) ProviderName() string            { return b.name }
func (b *Base) Protocol() string                { return b.proto }

func (b *Base) Publish(ctx context.Context, a *alert.Alert) alert.ChannelResponse {
	tr := otel.Tracer("dispatch")
	ctx, span := tr.Start(ctx, "dispatch.publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("channel", string(b.channel)),
		attribute.String("alert.type", string(a.Type)),
	)

	b.metrics.Inc(a.Type)

	if a.UserID == "" && !a.Type.Unauthenticated() {
		b.log.Warn("alert has no resolved user",
			zap.String("alert_id", a.ID),
			zap.String("type", string(a.Type)),
			zap.String("vehicle_id", a.VehicleID),
		)
		return alert.Failure(b.channel, b.name, errCodeUserNotResolved)
	}
	return b.impl.DoPublish(ctx, a)
}

// SetupChannel and DestroyChannel are no-ops for providers without
// per-destination state; providers that need them shadow these.
func (b *Base) SetupChannel(_ context.Context, _ config.NotificationConfig) alert.ChannelResponse {
	return alert.Success(b.channel, b.name)
}

func (b *Base) DestroyChannel(_ context.Context, _ string, _ map[string]string) alert.ChannelResponse {
	return alert.Success(b.channel, b.name)
}
