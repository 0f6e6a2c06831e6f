package ivm

import (
	"context"
	"fmt"

	"github.com/fleetlink/notifier/internal/domain/alert"
	"github.com/fleetlink/notifier/internal/domain/config"
	domain "github.com/fleetlink/notifier/internal/domain/ivm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ProcessAck reconciles one inbound acknowledgment, disposition or
// failure event against its tracking record. An event whose correlation
// key matches no record is dropped silently: it belongs to an expired or
// foreign message. Safe to invoke concurrently for different keys;
// re-applying the same ack is idempotent.
func (d *Dispatcher) ProcessAck(ctx context.Context, ev *domain.AckEvent) error {
	tr := otel.Tracer("ivm")
	ctx, span := tr.Start(ctx, "ivm.process_ack", trace.WithAttributes(
		attribute.String("kind", string(ev.Kind)),
		attribute.String("vehicle.id", ev.VehicleID),
	))
	defer span.End()

	req, resp, err := d.reconcile(ctx, ev)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if req == nil {
		d.mAcksDropped.Inc()
		d.log.Debug("ack dropped: no tracking record",
			zap.String("kind", string(ev.Kind)),
			zap.String("vehicle_id", ev.VehicleID),
			zap.String("session_id", ev.SessionID),
			zap.String("correlation_id", ev.CorrelationID),
		)
		return nil
	}
	d.mAcks.Inc()

	d.updateHistory(ctx, req, resp)
	return nil
}

// reconcile locates the tracking record for the event and emits any
// vehicle-facing feedback appropriate to its kind. A nil request with nil
// error means the event is unreconcilable.
func (d *Dispatcher) reconcile(ctx context.Context, ev *domain.AckEvent) (*domain.Request, alert.ChannelResponse, error) {
	var zero alert.ChannelResponse

	switch ev.Kind {
	case domain.AckDispositionPublish:
		req, err := d.tracking.FindByVehicleAndSession(ctx, ev.VehicleID, ev.SessionID)
		if err != nil {
			return nil, zero, fmt.Errorf("find by session: %w", err)
		}
		if req == nil {
			return nil, zero, nil
		}
		ack := domain.DispositionAck{
			MessageID:   req.MessageID,
			SessionID:   req.SessionID,
			VehicleID:   req.VehicleID,
			Disposition: ev.Disposition,
		}
		if err := d.tr.ForwardDirectly(ctx, req.VehicleID, ack, d.cfg.AckDestination); err != nil {
			d.log.Error("disposition ack forward failed",
				zap.String("request_id", req.RequestID), zap.Error(err))
		}
		// The disposition value becomes the new user-facing status.
		return req, alert.ChannelResponse{
			Channel: config.ChannelIVM,
			Status:  alert.Status(ev.Disposition),
		}, nil

	case domain.AckDeliveryFailure:
		req, err := d.tracking.FindByVehicleAndMessage(ctx, ev.VehicleID, ev.MessageID)
		if err != nil {
			return nil, zero, fmt.Errorf("find by message: %w", err)
		}
		if req == nil {
			return nil, zero, nil
		}
		fb := feedbackFromRequest(req, string(alert.StatusFailure), domain.ErrCodeChannelUnavailable)
		if err := d.tr.ForwardDirectly(ctx, req.VehicleID, fb, d.cfg.FeedbackDestination); err != nil {
			d.log.Error("delivery-failure feedback forward failed",
				zap.String("request_id", req.RequestID), zap.Error(err))
		}
		return req, alert.ChannelResponse{
			Channel:   config.ChannelIVM,
			Status:    alert.StatusFailure,
			ErrorCode: domain.ErrCodeChannelUnavailable,
		}, nil

	case domain.AckMessage:
		req, err := d.tracking.FindByVehicleAndMessage(ctx, ev.VehicleID, ev.CorrelationID)
		if err != nil {
			return nil, zero, fmt.Errorf("find by correlation: %w", err)
		}
		if req == nil {
			return nil, zero, nil
		}
		// Success clears any prior error code.
		return req, alert.ChannelResponse{
			Channel: config.ChannelIVM,
			Status:  alert.StatusSuccess,
		}, nil

	default:
		d.log.Warn("unknown ack kind", zap.String("kind", string(ev.Kind)))
		return nil, zero, nil
	}
}

// updateHistory rewrites the first vehicle-message channel response of
// the alert's delivery history in place, then fires the generic feedback
// hook with the stored alert payload.
func (d *Dispatcher) updateHistory(ctx context.Context, req *domain.Request, resp alert.ChannelResponse) {
	h, err := d.history.FindByID(ctx, req.RequestID)
	if err != nil {
		d.log.Warn("history lookup failed",
			zap.String("request_id", req.RequestID), zap.Error(err))
		return
	}
	if h == nil {
		d.log.Debug("no history for request", zap.String("request_id", req.RequestID))
		return
	}

	idx := h.ResponseIndex(config.ChannelIVM)
	if idx < 0 {
		d.log.Debug("history has no vehicle-message response",
			zap.String("request_id", req.RequestID))
		return
	}

	updated := h.Responses[idx]
	updated.Status = resp.Status
	updated.ErrorCode = resp.ErrorCode
	if ok, err := d.history.UpdateChannelResponse(ctx, req.RequestID, idx, updated); err != nil {
		d.log.Warn("history update failed",
			zap.String("request_id", req.RequestID), zap.Error(err))
	} else if !ok {
		d.log.Debug("history update matched nothing", zap.String("request_id", req.RequestID))
	}

	if d.feedback != nil {
		d.feedback.NotifyChannelFeedback(ctx, h, updated)
	}
}
