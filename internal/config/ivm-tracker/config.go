package ivm_tracker_config

import (
	"github.com/fleetlink/notifier/internal/obs"
	pginfra "github.com/fleetlink/notifier/internal/repository/postgres"
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
		App:    "fleetlink/ivm-tracker",
	}
}

type Config struct {
	DB       pginfra.Config `mapstructure:"db"`
	AcksIn   KafkaIn        `mapstructure:"acks_in"`
	Feedback KafkaOut       `mapstructure:"feedback_out"`
	Vehicle  VehicleStream  `mapstructure:"vehicle"`
	IVM      ivmsvc.Config  `mapstructure:"ivm"`
	Server   Server         `mapstructure:"server"`
	OTEL     OTEL           `mapstructure:"otel"`
	Log      Log            `mapstructure:"log"`
}
