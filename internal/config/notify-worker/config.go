package notify_worker_config

import (
	"time"

	"github.com/fleetlink/notifier/internal/obs"
	pginfra "github.com/fleetlink/notifier/internal/repository/postgres"
	"github.com/fleetlink/notifier/internal/repository/redisq"
	"github.com/fleetlink/notifier/internal/services/bounce"
	"github.com/fleetlink/notifier/internal/services/dispatch"
	ivmsvc "github.com/fleetlink/notifier/internal/services/ivm"
)

type KafkaIn struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type KafkaOut struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type VehicleStream struct {
	Brokers     []string `mapstructure:"brokers"`
	StreamTopic string   `mapstructure:"stream_topic"`
}

type Resolver struct {
	DefaultBrand  string `mapstructure:"default_brand"`
	DefaultLocale string `mapstructure:"default_locale"`
}

type Bounce struct {
	Period    time.Duration      `mapstructure:"period"`
	BatchSize int                `mapstructure:"batch_size"`
	Cache     bounce.CacheConfig `mapstructure:"cache"`
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (lc *Log) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  lc.Level,
		Pretty: lc.Pretty,
		App:    "fleetlink/notify-worker",
	}
}

type Config struct {
	DB       pginfra.Config         `mapstructure:"db"`
	AlertsIn KafkaIn                `mapstructure:"alerts_in"`
	Push     KafkaOut               `mapstructure:"push_out"`
	APIPush  KafkaOut               `mapstructure:"api_push_out"`
	Feedback KafkaOut               `mapstructure:"feedback_out"`
	Vehicle  VehicleStream          `mapstructure:"vehicle"`
	IVM      ivmsvc.Config          `mapstructure:"ivm"`
	SMTP     dispatch.MailerConfig  `mapstructure:"smtp"`
	SMS      dispatch.GatewayConfig `mapstructure:"sms"`
	Redis    redisq.Config          `mapstructure:"redis"`
	Bounce   Bounce                 `mapstructure:"bounce"`
	Resolver Resolver               `mapstructure:"resolver"`
	Server   Server                 `mapstructure:"server"`
	OTEL     OTEL                   `mapstructure:"otel"`
	Log      Log                    `mapstructure:"log"`
}
