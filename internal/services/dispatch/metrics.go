package dispatch

import (
	"errors"
	"strings"

	"github.com/fleetlink/notifier/internal/domain/alert"
	"github.com/fleetlink/notifier/internal/domain/config"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Metrics holds the per-alert-category delivery counters for one channel.
// Registration is idempotent: re-registering an existing counter keeps the
// already-registered collector and logs, never fails.
type Metrics struct {
	log      *zap.Logger
	counters map[alert.EventType]prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer, channel config.ChannelType, log *zap.Logger) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if log == nil {
		log = zap.L()
	}
	m := &Metrics{
		log:      log.With(zap.String("component", "dispatch.metrics"), zap.String("channel", string(channel))),
		counters: make(map[alert.EventType]prometheus.Counter, len(alert.EventTypes)),
	}
	ch := strings.ToLower(string(channel))
	for _, t := range alert.EventTypes {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifier_" + ch + "_" + strings.ToLower(string(t)) + "_published_total",
			Help: "Alerts published on the " + ch + " channel, by category.",
		})
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				c = are.ExistingCollector.(prometheus.Counter)
				m.log.Debug("counter already registered", zap.String("event_type", string(t)))
			} else {
				m.log.Warn("counter registration failed", zap.String("event_type", string(t)), zap.Error(err))
				continue
			}
		}
		m.counters[t] = c
	}
	return m
}

func (m *Metrics) Inc(t alert.EventType) {
	if m == nil {
		return
	}
	if c, ok := m.counters[t]; ok {
		c.Inc()
	}
}
