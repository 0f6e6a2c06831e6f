package dispatch

import (
	"context"
	"encoding/json"

	"github.com/fleetlink/notifier/internal/domain/alert"
	"github.com/fleetlink/notifier/internal/domain/config"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// EventPublisher produces one keyed payload to an outbound stream; the
// kafka producer satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// Push delivers mobile-app or API push notifications by producing to the
// corresponding push stream. The same implementation backs both channel
// types; API push targets partner backends, mobile push the device fleet.
type Push struct {
	Base
	pub     EventPublisher
	channel config.ChannelType
	log     *zap.Logger
}

type pushPayload struct {
	AlertID   string            `json:"alert_id"`
	Type      alert.EventType   `json:"type"`
	UserID    string            `json:"user_id,omitempty"`
	VehicleID string            `json:"vehicle_id"`
	Locale    string            `json:"locale,omitempty"`
	Body      string            `json:"body"`
	Tokens    []string          `json:"tokens,omitempty"`
	Params    map[string]string `json:"params,omitempty"`
}

func NewMobilePush(pub EventPublisher, reg prometheus.Registerer, log *zap.Logger) *Push {
	return newPush(config.ChannelMobilePush, "mobile-push", pub, reg, log)
}

func NewAPIPush(pub EventPublisher, reg prometheus.Registerer, log *zap.Logger) *Push {
	return newPush(config.ChannelAPIPush, "api-push", pub, reg, log)
}

func newPush(t config.ChannelType, name string, pub EventPublisher, reg prometheus.Registerer, log *zap.Logger) *Push {
	if log == nil {
		log = zap.L()
	}
	p := &Push{
		pub:     pub,
		channel: t,
		log:     log.With(zap.String("component", "dispatch."+name)),
	}
	p.Base = NewBase(t, name, "kafka", NewMetrics(reg, t, log), log, p)
	return p
}

func (p *Push) DoPublish(ctx context.Context, a *alert.Alert) alert.ChannelResponse {
	ch, ok := a.Config.Channel(p.channel)
	if !ok || !ch.Enabled {
		return alert.ChannelResponse{Channel: p.channel, Status: alert.StatusMissingDestination, ErrorCode: errCodeMissingDestination, Provider: p.name}
	}

	_, body := renderTemplate(a)
	value, err := json.Marshal(pushPayload{
		AlertID:   a.ID,
		Type:      a.Type,
		UserID:    a.UserID,
		VehicleID: a.VehicleID,
		Locale:    a.Locale,
		Body:      body,
		Tokens:    ch.Destinations,
		Params:    a.Params,
	})
	if err != nil {
		return alert.Failure(p.channel, p.name, errCodeSendFailed)
	}
	if err := p.pub.Publish(ctx, []byte(a.VehicleID), value); err != nil {
		p.log.Error("push publish failed", zap.String("alert_id", a.ID), zap.Error(err))
		return alert.Failure(p.channel, p.name, errCodeSendFailed)
	}
	return alert.Success(p.channel, p.name)
}
