package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fleetlink/notifier/internal/domain/ivm"
	"github.com/jackc/pgx/v5"
)

var _ ivm.TrackingStore = (*TrackingRepo)(nil)

// TrackingRepo persists vehicle-message tracking records. Reads go
// through the primary pool, so an ack always sees a record committed
// before it arrived.
type TrackingRepo struct{ db *DB }

func NewTrackingRepo(db *DB) *TrackingRepo { return &TrackingRepo{db: db} }

const (
	qTrackingInsert = `
INSERT INTO ivm_requests
  (request_id, vehicle_id, message_id, session_id, campaign_id, campaign_date,
   file_name, harman_id, country_code, notification_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, now()));
`
	qTrackingByMessage = `
SELECT request_id, vehicle_id, message_id, session_id, campaign_id, campaign_date,
       file_name, harman_id, country_code, notification_id, created_at
FROM ivm_requests
WHERE vehicle_id = $1 AND message_id = $2;
`
	qTrackingBySession = `
SELECT request_id, vehicle_id, message_id, session_id, campaign_id, campaign_date,
       file_name, harman_id, country_code, notification_id, created_at
FROM ivm_requests
WHERE vehicle_id = $1 AND session_id = $2;
`
)

func (r *TrackingRepo) Save(ctx context.Context, req *ivm.Request) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Pool.Exec(ctx, qTrackingInsert,
		req.RequestID, req.VehicleID, req.MessageID, req.SessionID,
		req.CampaignID, req.CampaignDate, req.FileName, req.HarmanID,
		req.CountryCode, req.NotificationID, nullTime(req.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert tracking record: %w", err)
	}
	return nil
}

func (r *TrackingRepo) FindByVehicleAndMessage(ctx context.Context, vehicleID, messageID string) (*ivm.Request, error) {
	return r.find(ctx, qTrackingByMessage, vehicleID, messageID)
}

func (r *TrackingRepo) FindByVehicleAndSession(ctx context.Context, vehicleID, sessionID string) (*ivm.Request, error) {
	return r.find(ctx, qTrackingBySession, vehicleID, sessionID)
}

func (r *TrackingRepo) find(ctx context.Context, query, vehicleID, key string) (*ivm.Request, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var req ivm.Request
	err := r.db.Pool.QueryRow(ctx, query, vehicleID, key).Scan(
		&req.RequestID, &req.VehicleID, &req.MessageID, &req.SessionID,
		&req.CampaignID, &req.CampaignDate, &req.FileName, &req.HarmanID,
		&req.CountryCode, &req.NotificationID, &req.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query tracking record: %w", err)
	}
	return &req, nil
}
