package ivm

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetlink/notifier/internal/domain/alert"
	"github.com/fleetlink/notifier/internal/domain/config"
	domain "github.com/fleetlink/notifier/internal/domain/ivm"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ServiceCatalog resolves a notification group to its required services.
type ServiceCatalog interface {
	RequiredServices(ctx context.Context, group string) ([]string, error)
}

// FeedbackNotifier is the generic channel-level feedback hook fired after
// an acknowledgment has been reconciled into history.
type FeedbackNotifier interface {
	NotifyChannelFeedback(ctx context.Context, h *alert.DeliveryHistory, r alert.ChannelResponse)
}

// Config tunes the vehicle-message dispatcher.
type Config struct {
	// FeedbackDestination receives synthesized delivery-feedback events.
	FeedbackDestination string `mapstructure:"feedback_destination"`
	// AckDestination receives disposition acks sent back to the vehicle.
	AckDestination string `mapstructure:"ack_destination"`
	// EntitlementCheck gates publishes on the vehicle's enabled services.
	EntitlementCheck bool `mapstructure:"entitlement_check"`
	// TTL, when positive, stamps a delivery cutoff on outbound events.
	TTL time.Duration `mapstructure:"ttl"`
}

// Dispatcher publishes in-vehicle messages and reconciles the
// asynchronous acknowledgments coming back from the field.
type Dispatcher struct {
	catalog  ServiceCatalog
	dir      config.Directory
	tracking domain.TrackingStore
	history  alert.HistoryStore
	tr       domain.Transport
	feedback FeedbackNotifier
	cfg      Config
	log      *zap.Logger

	mPublished       prometheus.Counter
	mEntitlementFail prometheus.Counter
	mAcks            prometheus.Counter
	mAcksDropped     prometheus.Counter
}

func NewDispatcher(
	catalog ServiceCatalog,
	dir config.Directory,
	tracking domain.TrackingStore,
	history alert.HistoryStore,
	tr domain.Transport,
	feedback FeedbackNotifier,
	cfg Config,
	log *zap.Logger,
) *Dispatcher {
	if log == nil {
		log = zap.L()
	}
	return &Dispatcher{
		catalog:  catalog,
		dir:      dir,
		tracking: tracking,
		history:  history,
		tr:       tr,
		feedback: feedback,
		cfg:      cfg,
		log:      log.With(zap.String("component", "ivm.dispatcher")),
		mPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ivm_messages_published_total", Help: "Vehicle messages forwarded.",
		}),
		mEntitlementFail: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ivm_entitlement_failures_total", Help: "Publishes rejected by the entitlement pre-check.",
		}),
		mAcks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ivm_acks_processed_total", Help: "Acknowledgment events reconciled.",
		}),
		mAcksDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ivm_acks_dropped_total", Help: "Acknowledgments with no matching tracking record.",
		}),
	}
}

// Publish runs the vehicle-message publish path for one alert: build the
// publish data, pre-check entitlement, forward the event and persist the
// tracking record. Every failure resolves to a failed ChannelResponse.
func (d *Dispatcher) Publish(ctx context.Context, a *alert.Alert) alert.ChannelResponse {
	tr := otel.Tracer("ivm")
	ctx, span := tr.Start(ctx, "ivm.publish", trace.WithAttributes(
		attribute.String("alert.id", a.ID),
		attribute.String("vehicle.id", a.VehicleID),
	))
	defer span.End()

	data := buildPublishData(a)

	if err := d.checkEntitlement(ctx, a.Group, a.VehicleID); err != nil {
		d.mEntitlementFail.Inc()
		d.log.Warn("entitlement check failed",
			zap.String("alert_id", a.ID),
			zap.String("vehicle_id", a.VehicleID),
			zap.String("group", a.Group),
			zap.Error(err),
		)
		fb := feedbackFromAlert(a, domain.ErrCodeNotProvisioned)
		if err := d.tr.ForwardDirectly(ctx, a.VehicleID, fb, d.cfg.FeedbackDestination); err != nil {
			d.log.Error("feedback forward failed", zap.String("alert_id", a.ID), zap.Error(err))
		}
		return alert.Failure(config.ChannelIVM, "ivm", domain.ErrCodeNotProvisioned)
	}

	ev := d.buildVehicleEvent(a, data)
	if err := d.forwardAndTrack(ctx, a, data, ev); err != nil {
		span.RecordError(err)
		d.log.Error("vehicle message publish failed",
			zap.String("alert_id", a.ID), zap.String("vehicle_id", a.VehicleID), zap.Error(err))
		return alert.Failure(config.ChannelIVM, "ivm", "SEND_FAILED")
	}
	d.mPublished.Inc()

	r := alert.Success(config.ChannelIVM, "ivm")
	r.Detail = map[string]string{"message_id": ev.MessageID}
	return r
}

// buildPublishData distinguishes pre-built campaign events from regular
// template-driven notifications. Campaign alerts carry their publish data
// in the parameter map; template alerts assemble it from the template.
// Optional fields are copied only when present.
func buildPublishData(a *alert.Alert) domain.PublishData {
	p := a.Params
	data := domain.PublishData{
		UserID:     a.UserID,
		SessionID:  a.ID,
		CampaignID: p[domain.ParamCampaignID],
		Template:   a.Template,
	}
	copyIf := func(dst *string, key string) {
		if v, ok := p[key]; ok && v != "" {
			*dst = v
		}
	}
	copyIf(&data.MessageID, "messageId")
	copyIf(&data.Body, "body")
	copyIf(&data.MessageType, "messageType")
	copyIf(&data.DetailType, "detailType")
	copyIf(&data.TargetSvcMsgID, "targetServiceMessageId")
	copyIf(&data.AlternatePhone, "alternatePhone")
	copyIf(&data.CallType, "callType")
	copyIf(&data.Priority, "priority")
	if v, ok := p["buttonActions"]; ok && v != "" {
		data.ButtonActions = splitCSV(v)
	}
	if len(p) > 0 {
		data.Parameters = p
	}
	if len(a.AdditionalData) > 0 {
		data.AdditionalData = a.AdditionalData
	}
	return data
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if v := s[start:i]; v != "" {
				out = append(out, v)
			}
			start = i + 1
		}
	}
	return out
}

// checkEntitlement folds every lookup error into an entitlement failure:
// the caller's response does not distinguish a missing subscription from
// a failed profile lookup.
func (d *Dispatcher) checkEntitlement(ctx context.Context, group, vehicleID string) error {
	required, err := d.catalog.RequiredServices(ctx, group)
	if err != nil {
		return fmt.Errorf("required services: %w", err)
	}
	if len(required) == 0 {
		return fmt.Errorf("no required-service mapping for group %q", group)
	}
	if !d.cfg.EntitlementCheck {
		return nil
	}

	enabled, err := d.dir.EnabledServices(ctx, vehicleID)
	if err != nil {
		return fmt.Errorf("enabled services: %w", err)
	}
	for _, svc := range required {
		if _, ok := enabled[svc]; ok {
			return nil
		}
	}
	return fmt.Errorf("vehicle %s not subscribed to any of %v", vehicleID, required)
}

// buildVehicleEvent strips the internal user/campaign identifiers from
// the payload actually sent to the vehicle and stamps message id and
// optional delivery cutoff.
func (d *Dispatcher) buildVehicleEvent(a *alert.Alert, data domain.PublishData) domain.VehicleEvent {
	msgID := data.MessageID
	if msgID == "" {
		msgID = uuid.NewString()
	}
	ev := domain.VehicleEvent{
		MessageID:      msgID,
		SessionID:      data.SessionID,
		VehicleID:      a.VehicleID,
		Template:       data.Template,
		Body:           data.Body,
		MessageType:    data.MessageType,
		DetailType:     data.DetailType,
		Parameters:     data.Parameters,
		TargetSvcMsgID: data.TargetSvcMsgID,
		AlternatePhone: data.AlternatePhone,
		ButtonActions:  data.ButtonActions,
		CallType:       data.CallType,
		Priority:       data.Priority,
		AdditionalData: data.AdditionalData,
	}
	if d.cfg.TTL > 0 {
		cutoff := time.Now().UTC().Add(d.cfg.TTL)
		ev.CutoffAt = &cutoff
	}
	return ev
}

// forwardAndTrack is not retried here; retry policy belongs to the
// transport collaborator.
func (d *Dispatcher) forwardAndTrack(ctx context.Context, a *alert.Alert, data domain.PublishData, ev domain.VehicleEvent) error {
	if err := d.tr.Forward(ctx, a.VehicleID, ev); err != nil {
		return fmt.Errorf("forward: %w", err)
	}
	req := &domain.Request{
		RequestID:      a.ID,
		VehicleID:      a.VehicleID,
		MessageID:      ev.MessageID,
		SessionID:      data.SessionID,
		CampaignID:     a.Params[domain.ParamCampaignID],
		CampaignDate:   a.Params[domain.ParamCampaignDate],
		FileName:       a.Params[domain.ParamFileName],
		HarmanID:       a.Params[domain.ParamHarmanID],
		CountryCode:    a.Params[domain.ParamCountryCode],
		NotificationID: a.NotificationID,
		CreatedAt:      time.Now().UTC(),
	}
	if err := d.tracking.Save(ctx, req); err != nil {
		return fmt.Errorf("save tracking record: %w", err)
	}
	return nil
}

func feedbackFromAlert(a *alert.Alert, code string) domain.FeedbackEvent {
	return domain.FeedbackEvent{
		CampaignID:     a.Params[domain.ParamCampaignID],
		CampaignDate:   a.Params[domain.ParamCampaignDate],
		FileName:       a.Params[domain.ParamFileName],
		HarmanID:       a.Params[domain.ParamHarmanID],
		CountryCode:    a.Params[domain.ParamCountryCode],
		NotificationID: a.NotificationID,
		VehicleID:      a.VehicleID,
		Status:         string(alert.StatusFailure),
		ErrorCode:      code,
	}
}

func feedbackFromRequest(req *domain.Request, status, code string) domain.FeedbackEvent {
	return domain.FeedbackEvent{
		CampaignID:     req.CampaignID,
		CampaignDate:   req.CampaignDate,
		FileName:       req.FileName,
		HarmanID:       req.HarmanID,
		CountryCode:    req.CountryCode,
		NotificationID: req.NotificationID,
		VehicleID:      req.VehicleID,
		Status:         status,
		ErrorCode:      code,
	}
}
