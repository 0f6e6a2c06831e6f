package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetlink/notifier/internal/domain/alert"
	"github.com/fleetlink/notifier/internal/domain/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ConfigResolver yields the effective per-contact configs for an alert.
type ConfigResolver interface {
	Resolve(ctx context.Context, group, brand, userID, vehicleID string) ([]config.NotificationConfig, error)
}

// OwnerDirectory resolves the owning user of a vehicle for alerts that
// arrive without a user id.
type OwnerDirectory interface {
	UserIDForVehicle(ctx context.Context, vehicleID string) (string, error)
}

// Engine fans one alert out across every enabled channel of every
// resolved contact config, collecting one ChannelResponse per attempt
// into the alert's delivery history. Channels are attempted in order on
// the caller's goroutine; one channel's failure never stops the rest.
type Engine struct {
	log       *zap.Logger
	resolver  ConfigResolver
	dir       OwnerDirectory
	providers map[config.ChannelType]Provider
	history   alert.HistoryStore
}

func NewEngine(res ConfigResolver, dir OwnerDirectory, history alert.HistoryStore, providers []Provider, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.L()
	}
	byType := make(map[config.ChannelType]Provider, len(providers))
	for _, p := range providers {
		byType[p.ChannelType()] = p
	}
	return &Engine{
		log:       log.With(zap.String("component", "dispatch.engine")),
		resolver:  res,
		dir:       dir,
		providers: byType,
		history:   history,
	}
}

// Dispatch resolves and delivers one alert. A nil history with nil error
// means the notification was suppressed (no configuration).
func (e *Engine) Dispatch(ctx context.Context, a *alert.Alert) (*alert.DeliveryHistory, error) {
	tr := otel.Tracer("dispatch.engine")
	ctx, span := tr.Start(ctx, "dispatch.alert", trace.WithAttributes(
		attribute.String("alert.id", a.ID),
		attribute.String("alert.type", string(a.Type)),
		attribute.String("group", a.Group),
	))
	defer span.End()

	if a.UserID == "" && a.VehicleID != "" && e.dir != nil {
		owner, err := e.dir.UserIDForVehicle(ctx, a.VehicleID)
		if err != nil {
			e.log.Warn("vehicle owner lookup failed",
				zap.String("alert_id", a.ID), zap.String("vehicle_id", a.VehicleID), zap.Error(err))
		} else if owner != "" {
			scoped := *a
			scoped.UserID = owner
			a = &scoped
		}
	}

	configs, err := e.resolver.Resolve(ctx, a.Group, a.Brand, a.UserID, a.VehicleID)
	if err != nil {
		return nil, fmt.Errorf("resolve configs: %w", err)
	}
	if len(configs) == 0 {
		e.log.Info("notification suppressed: no configuration",
			zap.String("alert_id", a.ID), zap.String("group", a.Group))
		return nil, nil
	}

	h := &alert.DeliveryHistory{
		ID:        a.ID,
		UserID:    a.UserID,
		VehicleID: a.VehicleID,
		Group:     a.Group,
		Payload:   a.Payload,
		CreatedAt: time.Now().UTC(),
	}

	for i := range configs {
		cfg := configs[i]
		if !cfg.Enabled {
			continue
		}
		contactAlert := *a
		contactAlert.Config = &cfg
		if cfg.Locale != "" {
			contactAlert.Locale = cfg.Locale
		}

		for _, t := range config.ChannelTypes {
			ch, ok := cfg.Channel(t)
			if !ok || !ch.Enabled {
				continue
			}
			p, ok := e.providers[t]
			if !ok {
				e.log.Warn("no provider for channel", zap.String("channel", string(t)))
				continue
			}
			resp := p.Publish(ctx, &contactAlert)
			resp.Channel = t
			h.Responses = append(h.Responses, resp)
		}
	}

	span.SetAttributes(attribute.Int("responses", len(h.Responses)))

	if e.history != nil {
		if err := e.history.Create(ctx, h); err != nil {
			return h, fmt.Errorf("persist history: %w", err)
		}
	}
	return h, nil
}

// ApplyConfigChange drives per-destination channel teardown/setup from a
// config update: deleted destinations are destroyed, added ones set up.
func (e *Engine) ApplyConfigChange(ctx context.Context, old, updated config.NotificationConfig) {
	for _, d := range config.DiffChannels(old.Channels, updated.Channels) {
		p, ok := e.providers[d.Type]
		if !ok {
			continue
		}
		meta := map[string]string{
			"user_id":    updated.UserID,
			"vehicle_id": updated.VehicleID,
			"contact_id": updated.ContactID,
		}
		for _, dest := range d.Deletions {
			if r := p.DestroyChannel(ctx, dest, meta); r.Status == alert.StatusFailure {
				e.log.Warn("channel destroy failed",
					zap.String("channel", string(d.Type)), zap.String("destination", dest))
			}
		}
		if len(d.Additions) > 0 {
			if r := p.SetupChannel(ctx, updated); r.Status == alert.StatusFailure {
				e.log.Warn("channel setup failed", zap.String("channel", string(d.Type)))
			}
		}
	}
}
