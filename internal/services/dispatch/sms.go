package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/fleetlink/notifier/internal/domain/alert"
	"github.com/fleetlink/notifier/internal/domain/config"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// SMSSender posts one text message to one phone number.
type SMSSender interface {
	Send(ctx context.Context, phone, text string) error
}

type SMS struct {
	Base
	sender SMSSender
	log    *zap.Logger
}

func NewSMS(sender SMSSender, reg prometheus.Registerer, log *zap.Logger) *SMS {
	if log == nil {
		log = zap.L()
	}
	s := &SMS{
		sender: sender,
		log:    log.With(zap.String("component", "dispatch.sms")),
	}
	s.Base = NewBase(config.ChannelSMS, "sms", "http", NewMetrics(reg, config.ChannelSMS, log), log, s)
	return s
}

func (s *SMS) DoPublish(ctx context.Context, a *alert.Alert) alert.ChannelResponse {
	dests := a.Destinations(config.ChannelSMS)
	if len(dests) == 0 {
		return alert.ChannelResponse{Channel: config.ChannelSMS, Status: alert.StatusMissingDestination, ErrorCode: errCodeMissingDestination, Provider: s.name}
	}

	text := renderSMS(a)
	sent := 0
	for _, phone := range dests {
		if err := s.sender.Send(ctx, phone, text); err != nil {
			s.log.Error("sms send failed",
				zap.String("alert_id", a.ID), zap.String("phone", phone), zap.Error(err))
			continue
		}
		sent++
	}
	if sent == 0 {
		return alert.Failure(config.ChannelSMS, s.name, errCodeSendFailed)
	}
	return alert.Success(config.ChannelSMS, s.name)
}

// GatewayConfig configures the HTTP SMS gateway client.
type GatewayConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Sender  string        `mapstructure:"sender"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Gateway is an SMSSender over a JSON HTTP API.
type Gateway struct {
	c   *http.Client
	cfg GatewayConfig
}

var _ SMSSender = (*Gateway)(nil)

func NewGateway(cfg GatewayConfig) *Gateway {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
	}
	return &Gateway{
		c:   &http.Client{Timeout: cfg.Timeout, Transport: otelhttp.NewTransport(transport)},
		cfg: cfg,
	}
}

func (g *Gateway) Send(ctx context.Context, phone, text string) error {
	payload, err := json.Marshal(map[string]string{
		"to":   phone,
		"from": g.cfg.Sender,
		"body": text,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sms gateway: unexpected status %d", resp.StatusCode)
	}
	return nil
}
