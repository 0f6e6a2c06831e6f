package postgres

import (
	"context"
	"fmt"

	"github.com/fleetlink/notifier/internal/services/dispatch"
)

var _ dispatch.PortalStore = (*PortalRepo)(nil)

// PortalRepo stores in-portal notification rows; the web frontend reads
// and acknowledges them over its own surface.
type PortalRepo struct{ db *DB }

func NewPortalRepo(db *DB) *PortalRepo { return &PortalRepo{db: db} }

const qPortalInsert = `
INSERT INTO portal_messages (alert_id, user_id, vehicle_id, event_type, body, read, created_at)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()));
`

func (r *PortalRepo) SaveMessage(ctx context.Context, m *dispatch.PortalMessage) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Pool.Exec(ctx, qPortalInsert,
		m.AlertID, m.UserID, m.VehicleID, string(m.Type), m.Body, m.Read, nullTime(m.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert portal message: %w", err)
	}
	return nil
}
