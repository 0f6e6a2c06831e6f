package ivm

import "time"

// Error codes surfaced on failed vehicle-message responses and feedback
// events.
const (
	ErrCodeNotProvisioned     = "VEHICLE_ID_NOT_PROVISIONED"
	ErrCodeChannelUnavailable = "DELIVERY_CHANNEL_NOT_AVAILABLE"
)

// Parameter-map keys carried by campaign alerts and copied onto the
// tracking record.
const (
	ParamCampaignID   = "campaignId"
	ParamCampaignDate = "campaignDate"
	ParamFileName     = "fileName"
	ParamHarmanID     = "harmanId"
	ParamCountryCode  = "countryCode"
)

// Request is the tracking record correlating one outbound vehicle message
// with its eventual acknowledgment. One row per publish attempt; never
// mutated after creation.
type Request struct {
	RequestID      string    `json:"request_id"`
	VehicleID      string    `json:"vehicle_id"`
	MessageID      string    `json:"message_id"`
	SessionID      string    `json:"session_id"`
	CampaignID     string    `json:"campaign_id,omitempty"`
	CampaignDate   string    `json:"campaign_date,omitempty"`
	FileName       string    `json:"file_name,omitempty"`
	HarmanID       string    `json:"harman_id,omitempty"`
	CountryCode    string    `json:"country_code,omitempty"`
	NotificationID string    `json:"notification_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// PublishData is the material a vehicle message is built from. For
// campaign alerts it arrives pre-built upstream; for template-driven
// alerts it is assembled from the alert's template and parameter map.
// Optional fields are copied onto the outbound event only when set.
type PublishData struct {
	MessageID      string            `json:"message_id,omitempty"`
	SessionID      string            `json:"session_id,omitempty"`
	UserID         string            `json:"user_id,omitempty"`
	CampaignID     string            `json:"campaign_id,omitempty"`
	Template       string            `json:"template,omitempty"`
	Body           string            `json:"body,omitempty"`
	MessageType    string            `json:"message_type,omitempty"`
	DetailType     string            `json:"detail_type,omitempty"`
	Parameters     map[string]string `json:"parameters,omitempty"`
	TargetSvcMsgID string            `json:"target_service_message_id,omitempty"`
	AlternatePhone string            `json:"alternate_phone,omitempty"`
	ButtonActions  []string          `json:"button_actions,omitempty"`
	CallType       string            `json:"call_type,omitempty"`
	Priority       string            `json:"priority,omitempty"`
	AdditionalData map[string]string `json:"additional_data,omitempty"`
}

// VehicleEvent is the payload actually forwarded to the vehicle. It is
// PublishData with the internal user/campaign identifiers stripped and an
// optional delivery cutoff stamped.
type VehicleEvent struct {
	MessageID      string            `json:"message_id"`
	SessionID      string            `json:"session_id,omitempty"`
	VehicleID      string            `json:"vehicle_id"`
	Template       string            `json:"template,omitempty"`
	Body           string            `json:"body,omitempty"`
	MessageType    string            `json:"message_type,omitempty"`
	DetailType     string            `json:"detail_type,omitempty"`
	Parameters     map[string]string `json:"parameters,omitempty"`
	TargetSvcMsgID string            `json:"target_service_message_id,omitempty"`
	AlternatePhone string            `json:"alternate_phone,omitempty"`
	ButtonActions  []string          `json:"button_actions,omitempty"`
	CallType       string            `json:"call_type,omitempty"`
	Priority       string            `json:"priority,omitempty"`
	AdditionalData map[string]string `json:"additional_data,omitempty"`
	CutoffAt       *time.Time        `json:"cutoff_at,omitempty"`
}

type AckKind string

const (
	AckDispositionPublish AckKind = "DISPOSITION_PUBLISH"
	AckDeliveryFailure    AckKind = "DEVICE_DELIVERY_FAILURE"
	AckMessage            AckKind = "VEHICLE_MESSAGE_ACK"
)

// AckEvent is one inbound acknowledgment, disposition or failure event
// from the field. The correlation key depends on Kind: disposition events
// correlate by session id, the others by message/correlation id.
type AckEvent struct {
	Kind          AckKind `json:"kind"`
	VehicleID     string  `json:"vehicle_id"`
	SessionID     string  `json:"session_id,omitempty"`
	CorrelationID string  `json:"correlation_id,omitempty"`
	// MessageID of the original outbound message, as echoed inside a
	// delivery-failure event.
	MessageID   string    `json:"message_id,omitempty"`
	Disposition string    `json:"disposition,omitempty"`
	At          time.Time `json:"at,omitempty"`
}

// DispositionAck is the event sent back to the vehicle after a
// disposition-publish has been reconciled.
type DispositionAck struct {
	MessageID   string `json:"message_id"`
	SessionID   string `json:"session_id"`
	VehicleID   string `json:"vehicle_id"`
	Disposition string `json:"disposition"`
}

// FeedbackEvent reports a delivery outcome upstream, carrying the campaign
// identifiers of the original message.
type FeedbackEvent struct {
	CampaignID     string `json:"campaign_id,omitempty"`
	CampaignDate   string `json:"campaign_date,omitempty"`
	FileName       string `json:"file_name,omitempty"`
	HarmanID       string `json:"harman_id,omitempty"`
	CountryCode    string `json:"country_code,omitempty"`
	NotificationID string `json:"notification_id,omitempty"`
	VehicleID      string `json:"vehicle_id"`
	Status         string `json:"status"`
	ErrorCode      string `json:"error_code,omitempty"`
}
