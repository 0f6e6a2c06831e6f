package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fleetlink/notifier/internal/domain/alert"
	"github.com/jackc/pgx/v5"
)

var _ alert.HistoryStore = (*HistoryRepo)(nil)

// HistoryRepo persists per-alert delivery history; the channel responses
// ride in a jsonb array updated element-wise.
type HistoryRepo struct{ db *DB }

func NewHistoryRepo(db *DB) *HistoryRepo { return &HistoryRepo{db: db} }

const (
	qHistoryInsert = `
INSERT INTO delivery_history (id, user_id, vehicle_id, group_name, payload, responses, created_at)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
ON CONFLICT (id) DO UPDATE SET responses = EXCLUDED.responses;
`
	qHistoryByID = `
SELECT id, user_id, vehicle_id, group_name, payload, responses, created_at
FROM delivery_history
WHERE id = $1;
`
	qHistoryUpdateResponse = `
UPDATE delivery_history
SET responses = jsonb_set(responses, ARRAY[$2::text], $3::jsonb)
WHERE id = $1 AND jsonb_array_length(responses) > $2;
`
)

func (r *HistoryRepo) Create(ctx context.Context, h *alert.DeliveryHistory) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	responses, err := json.Marshal(h.Responses)
	if err != nil {
		return fmt.Errorf("encode responses: %w", err)
	}
	if h.Responses == nil {
		responses = []byte("[]")
	}
	if _, err := r.db.Pool.Exec(ctx, qHistoryInsert,
		h.ID, h.UserID, h.VehicleID, h.Group, []byte(h.Payload), responses, nullTime(h.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (r *HistoryRepo) FindByID(ctx context.Context, id string) (*alert.DeliveryHistory, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var h alert.DeliveryHistory
	var payload, responses []byte
	err := r.db.Pool.QueryRow(ctx, qHistoryByID, id).
		Scan(&h.ID, &h.UserID, &h.VehicleID, &h.Group, &payload, &responses, &h.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	h.Payload = payload
	if len(responses) > 0 {
		if err := json.Unmarshal(responses, &h.Responses); err != nil {
			return nil, fmt.Errorf("decode responses: %w", err)
		}
	}
	return &h, nil
}

func (r *HistoryRepo) UpdateChannelResponse(ctx context.Context, id string, index int, resp alert.ChannelResponse) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	value, err := json.Marshal(resp)
	if err != nil {
		return false, fmt.Errorf("encode response: %w", err)
	}
	tag, err := r.db.Pool.Exec(ctx, qHistoryUpdateResponse, id, index, value)
	if err != nil {
		return false, fmt.Errorf("update channel response: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
