package alert

import "context"

type HistoryStore interface {
	Create(ctx context.Context, h *DeliveryHistory) error
	FindByID(ctx context.Context, id string) (*DeliveryHistory, error)
	// UpdateChannelResponse overwrites the response at index in place.
	// Returns false when no row (or no such index) was updated.
	UpdateChannelResponse(ctx context.Context, id string, index int, r ChannelResponse) (bool, error)
}
