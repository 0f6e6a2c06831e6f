package dispatch

import (
	"context"
	"time"

	"github.com/fleetlink/notifier/internal/domain/alert"
	"github.com/fleetlink/notifier/internal/domain/config"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// PortalMessage is one in-portal notification row.
type PortalMessage struct {
	AlertID   string          `json:"alert_id"`
	UserID    string          `json:"user_id"`
	VehicleID string          `json:"vehicle_id"`
	Type      alert.EventType `json:"type"`
	Body      string          `json:"body"`
	Read      bool            `json:"read"`
	CreatedAt time.Time       `json:"created_at"`
}

type PortalStore interface {
	SaveMessage(ctx context.Context, m *PortalMessage) error
}

// Portal writes the alert into the user's portal inbox. BROWSER rides the
// same store; the web frontend drains it over its own surface.
type Portal struct {
	Base
	store   PortalStore
	channel config.ChannelType
	log     *zap.Logger
}

func NewPortal(store PortalStore, reg prometheus.Registerer, log *zap.Logger) *Portal {
	return newPortal(config.ChannelPortal, "portal", store, reg, log)
}

func NewBrowser(store PortalStore, reg prometheus.Registerer, log *zap.Logger) *Portal {
	return newPortal(config.ChannelBrowser, "browser", store, reg, log)
}

func newPortal(t config.ChannelType, name string, store PortalStore, reg prometheus.Registerer, log *zap.Logger) *Portal {
	if log == nil {
		log = zap.L()
	}
	p := &Portal{
		store:   store,
		channel: t,
		log:     log.With(zap.String("component", "dispatch."+name)),
	}
	p.Base = NewBase(t, name, "store", NewMetrics(reg, t, log), log, p)
	return p
}

func (p *Portal) DoPublish(ctx context.Context, a *alert.Alert) alert.ChannelResponse {
	ch, ok := a.Config.Channel(p.channel)
	if !ok || !ch.Enabled {
		return alert.ChannelResponse{Channel: p.channel, Status: alert.StatusMissingDestination, ErrorCode: errCodeMissingDestination, Provider: p.name}
	}

	_, body := renderTemplate(a)
	msg := &PortalMessage{
		AlertID:   a.ID,
		UserID:    a.UserID,
		VehicleID: a.VehicleID,
		Type:      a.Type,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.store.SaveMessage(ctx, msg); err != nil {
		p.log.Error("portal save failed", zap.String("alert_id", a.ID), zap.Error(err))
		return alert.Failure(p.channel, p.name, errCodeSendFailed)
	}
	return alert.Success(p.channel, p.name)
}
