package config

import "context"

// Store is the persisted configuration view consumed by the resolver.
type Store interface {
	// FindConfigs returns every config matching any (userID, vehicleID)
	// pair from the cross product of the two id lists, for the group.
	FindConfigs(ctx context.Context, userIDs, vehicleIDs []string, group string) ([]NotificationConfig, error)
	FindSecondaryContact(ctx context.Context, contactID string) (*SecondaryContact, error)
	// RequiredServices maps a notification group to the services a
	// vehicle must be entitled to before it may receive the group.
	RequiredServices(ctx context.Context, group string) ([]string, error)
}

// Directory is the read-only user/vehicle profile view.
type Directory interface {
	UserIDForVehicle(ctx context.Context, vehicleID string) (string, error)
	EnabledServices(ctx context.Context, vehicleID string) (map[string]struct{}, error)
	DefaultEmail(ctx context.Context, userID string) (string, error)
	DefaultPhone(ctx context.Context, userID string) (string, error)
}
