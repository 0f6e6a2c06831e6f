package dispatch

import (
	"context"

	"github.com/fleetlink/notifier/internal/domain/alert"
	"github.com/fleetlink/notifier/internal/domain/bounce"
	"github.com/fleetlink/notifier/internal/domain/config"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// EmailSender is the outbound mail transport; Mailer is the SMTP
// implementation.
type EmailSender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

type Email struct {
	Base
	sender     EmailSender
	suppressor bounce.Suppressor
	log        *zap.Logger
}

func NewEmail(sender EmailSender, suppressor bounce.Suppressor, reg prometheus.Registerer, log *zap.Logger) *Email {
	if log == nil {
		log = zap.L()
	}
	e := &Email{
		sender:     sender,
		suppressor: suppressor,
		log:        log.With(zap.String("component", "dispatch.email")),
	}
	e.Base = NewBase(config.ChannelEmail, "email", "smtp", NewMetrics(reg, config.ChannelEmail, log), log, e)
	return e
}

func (e *Email) DoPublish(ctx context.Context, a *alert.Alert) alert.ChannelResponse {
	dests := a.Destinations(config.ChannelEmail)
	if len(dests) == 0 {
		return alert.ChannelResponse{Channel: config.ChannelEmail, Status: alert.StatusMissingDestination, ErrorCode: errCodeMissingDestination, Provider: e.name}
	}

	to := make([]string, 0, len(dests))
	for _, d := range dests {
		if e.suppressor != nil && e.suppressor.IsSuppressed(ctx, d) {
			e.log.Info("destination suppressed (bounced)",
				zap.String("alert_id", a.ID), zap.String("address", d))
			continue
		}
		to = append(to, d)
	}
	// Every destination bounced: nothing left to fail on.
	if len(to) == 0 {
		return alert.ChannelResponse{Channel: config.ChannelEmail, Status: alert.StatusMissingDestination, ErrorCode: errCodeMissingDestination, Provider: e.name}
	}

	subject, body := renderTemplate(a)
	if err := e.sender.Send(ctx, to, subject, body); err != nil {
		e.log.Error("email send failed", zap.String("alert_id", a.ID), zap.Error(err))
		return alert.Failure(config.ChannelEmail, e.name, errCodeSendFailed)
	}
	return alert.Success(config.ChannelEmail, e.name)
}
