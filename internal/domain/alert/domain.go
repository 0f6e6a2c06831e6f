package alert

import (
	"encoding/json"
	"time"

	"github.com/fleetlink/notifier/internal/domain/config"
)

// EventType is the telematics alert category.
type EventType string

const (
	EventCollision    EventType = "COLLISION"
	EventDTC          EventType = "DTC"
	EventGeofence     EventType = "GEOFENCE"
	EventLowFuel      EventType = "LOW_FUEL"
	EventOverSpeed    EventType = "OVER_SPEED"
	EventCurfew       EventType = "CURFEW"
	EventIdling       EventType = "IDLING"
	EventTowing       EventType = "TOWING"
	EventDongleStatus EventType = "DONGLE_STATUS"
	EventCampaign     EventType = "CAMPAIGN"
)

// EventTypes lists the categories a per-channel delivery counter exists for.
var EventTypes = []EventType{
	EventCollision, EventDTC, EventGeofence, EventLowFuel, EventOverSpeed,
	EventCurfew, EventIdling, EventTowing, EventDongleStatus,
}

// unauthenticated events may be published without a resolved user id
// (campaigns target vehicles directly).
var unauthenticatedEvents = map[EventType]struct{}{
	EventCampaign: {},
}

func (t EventType) Unauthenticated() bool {
	_, ok := unauthenticatedEvents[t]
	return ok
}

// Alert is one telematics event to be delivered through one or more
// channels.
type Alert struct {
	ID             string            `json:"id"`
	Type           EventType         `json:"type"`
	Group          string            `json:"group"`
	Brand          string            `json:"brand"`
	UserID         string            `json:"user_id,omitempty"`
	VehicleID      string            `json:"vehicle_id"`
	NotificationID string            `json:"notification_id,omitempty"`
	Locale         string            `json:"locale,omitempty"`
	Template       string            `json:"template,omitempty"`
	Params         map[string]string `json:"params,omitempty"`
	AdditionalData map[string]string `json:"additional_data,omitempty"`
	Payload        json.RawMessage   `json:"payload,omitempty"`
	OccurredAt     time.Time         `json:"occurred_at"`

	// Config is the effective configuration the alert is being delivered
	// under; set by the caller after resolution.
	Config *config.NotificationConfig `json:"-"`
}

// Destinations returns the destination list of the alert's channel of
// type t, or nil if the channel is absent or disabled.
func (a *Alert) Destinations(t config.ChannelType) []string {
	if a.Config == nil {
		return nil
	}
	ch, ok := a.Config.Channel(t)
	if !ok || !ch.Enabled {
		return nil
	}
	return ch.Destinations
}

type Status string

const (
	StatusSuccess            Status = "SUCCESS"
	StatusFailure            Status = "FAILURE"
	StatusMissingDestination Status = "MISSING_DESTINATION"
)

// ChannelResponse is the per-channel outcome recorded into delivery
// history. Provider-specific fields ride in Detail.
type ChannelResponse struct {
	Channel   config.ChannelType `json:"channel"`
	Status    Status             `json:"status"`
	ErrorCode string             `json:"error_code,omitempty"`
	Provider  string             `json:"provider,omitempty"`
	Detail    map[string]string  `json:"detail,omitempty"`
	At        time.Time          `json:"at,omitempty"`
}

func Failure(ch config.ChannelType, provider, code string) ChannelResponse {
	return ChannelResponse{Channel: ch, Status: StatusFailure, ErrorCode: code, Provider: provider, At: time.Now().UTC()}
}

func Success(ch config.ChannelType, provider string) ChannelResponse {
	return ChannelResponse{Channel: ch, Status: StatusSuccess, Provider: provider, At: time.Now().UTC()}
}

// DeliveryHistory is the per-alert record of channel outcomes, ordered by
// dispatch attempt.
type DeliveryHistory struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id,omitempty"`
	VehicleID string            `json:"vehicle_id"`
	Group     string            `json:"group"`
	Payload   json.RawMessage   `json:"payload,omitempty"`
	Responses []ChannelResponse `json:"responses"`
	CreatedAt time.Time         `json:"created_at"`
}

// ResponseIndex returns the index of the first response for channel t,
// or -1.
func (h *DeliveryHistory) ResponseIndex(t config.ChannelType) int {
	for i, r := range h.Responses {
		if r.Channel == t {
			return i
		}
	}
	return -1
}
