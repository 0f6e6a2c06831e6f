package kafka

import (
	"context"

	"github.com/fleetlink/notifier/internal/domain/alert"
	"go.uber.org/zap"
)

// FeedbackKafka publishes per-channel delivery feedback as JSON events.
// Publish failures are logged and swallowed: feedback is advisory and
// must never fail the reconciliation that produced it.
type FeedbackKafka struct {
	p   *Producer
	log *zap.Logger
}

func NewFeedbackKafka(p *Producer, log *zap.Logger) *FeedbackKafka {
	if log == nil {
		log = zap.L()
	}
	return &FeedbackKafka{p: p, log: log.With(zap.String("component", "kafka.feedback"))}
}

type channelFeedback struct {
	AlertID   string `json:"alert_id"`
	VehicleID string `json:"vehicle_id"`
	Group     string `json:"group"`
	Channel   string `json:"channel"`
	Status    string `json:"status"`
	ErrorCode string `json:"error_code,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

func (f *FeedbackKafka) NotifyChannelFeedback(ctx context.Context, h *alert.DeliveryHistory, r alert.ChannelResponse) {
	ev := channelFeedback{
		AlertID:   h.ID,
		VehicleID: h.VehicleID,
		Group:     h.Group,
		Channel:   string(r.Channel),
		Status:    string(r.Status),
		ErrorCode: r.ErrorCode,
		Provider:  r.Provider,
	}
	if err := f.p.PublishJSON(ctx, []byte(h.VehicleID), ev); err != nil {
		f.log.Error("channel feedback publish failed",
			zap.String("alert_id", h.ID), zap.String("channel", ev.Channel), zap.Error(err))
	}
}
