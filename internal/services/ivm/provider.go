package ivm

import (
	"context"

	"github.com/fleetlink/notifier/internal/domain/alert"
	"github.com/fleetlink/notifier/internal/domain/config"
	"github.com/fleetlink/notifier/internal/services/dispatch"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Provider adapts the vehicle-message dispatcher to the channel-provider
// contract so the dispatch engine can fan out to it like any other
// channel.
type Provider struct {
	dispatch.Base
	d *Dispatcher
}

var _ dispatch.Provider = (*Provider)(nil)

func NewProvider(d *Dispatcher, reg prometheus.Registerer, log *zap.Logger) *Provider {
	p := &Provider{d: d}
	p.Base = dispatch.NewBase(config.ChannelIVM, "ivm", "kafka",
		dispatch.NewMetrics(reg, config.ChannelIVM, log), log, p)
	return p
}

func (p *Provider) DoPublish(ctx context.Context, a *alert.Alert) alert.ChannelResponse {
	return p.d.Publish(ctx, a)
}
