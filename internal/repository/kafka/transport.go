package kafka

import (
	"context"

	"github.com/fleetlink/notifier/internal/domain/ivm"
	"github.com/fleetlink/notifier/internal/obs/retry"
	"go.uber.org/zap"
)

// VehicleTransport delivers vehicle-bound events over kafka: Forward
// produces to the vehicle message stream keyed by vehicle id, so one
// vehicle's messages stay ordered on one partition; ForwardDirectly
// writes to an explicit topic, retried because feedback/ack events have
// no caller left to surface the failure to.
type VehicleTransport struct {
	stream *Producer
	direct *DirectProducer
	policy retry.Policy
	log    *zap.Logger
}

var _ ivm.Transport = (*VehicleTransport)(nil)

func NewVehicleTransport(brokers []string, streamTopic string, log *zap.Logger) *VehicleTransport {
	if log == nil {
		log = zap.L()
	}
	return &VehicleTransport{
		stream: NewProducer(brokers, streamTopic).WithLogger(log),
		direct: NewDirectProducer(brokers).WithLogger(log),
		policy: retry.DefaultTransportPolicy(log),
		log:    log.With(zap.String("component", "kafka.vehicle-transport")),
	}
}

func (t *VehicleTransport) Forward(ctx context.Context, vehicleID string, event any) error {
	return t.stream.PublishJSON(ctx, []byte(vehicleID), event)
}

func (t *VehicleTransport) ForwardDirectly(ctx context.Context, vehicleID string, event any, destination string) error {
	return retry.Do(ctx, func() error {
		return t.direct.PublishJSON(ctx, destination, []byte(vehicleID), event)
	}, t.policy)
}

func (t *VehicleTransport) Close() error {
	err := t.stream.Close()
	if derr := t.direct.Close(); err == nil {
		err = derr
	}
	return err
}
