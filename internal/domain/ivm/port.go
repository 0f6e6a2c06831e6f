package ivm

import "context"

type TrackingStore interface {
	Save(ctx context.Context, r *Request) error
	// Lookups must be strongly consistent: an ack must always find a
	// request persisted before the ack arrived. Both return nil, nil
	// when no record matches.
	FindByVehicleAndMessage(ctx context.Context, vehicleID, messageID string) (*Request, error)
	FindByVehicleAndSession(ctx context.Context, vehicleID, sessionID string) (*Request, error)
}

// Transport delivers events toward a vehicle. Forward routes through the
// normal stream keyed by vehicle id; ForwardDirectly bypasses routing and
// writes to an explicit destination (feedback/ack events).
type Transport interface {
	Forward(ctx context.Context, vehicleID string, event any) error
	ForwardDirectly(ctx context.Context, vehicleID string, event any, destination string) error
}
