package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fleetlink/notifier/internal/domain/config"
	"github.com/jackc/pgx/v5"
)

var _ config.Store = (*ConfigRepo)(nil)

type ConfigRepo struct{ db *DB }

func NewConfigRepo(db *DB) *ConfigRepo { return &ConfigRepo{db: db} }

const (
	qConfigFind = `
SELECT group_name, brand, user_id, vehicle_id, contact_id, enabled, locale, channels
FROM notification_configs
WHERE user_id = ANY($1) AND vehicle_id = ANY($2) AND group_name = $3;
`
	qConfigUpsert = `
INSERT INTO notification_configs (group_name, brand, user_id, vehicle_id, contact_id, enabled, locale, channels)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (group_name, brand, user_id, vehicle_id, contact_id)
DO UPDATE SET enabled = EXCLUDED.enabled, locale = EXCLUDED.locale, channels = EXCLUDED.channels;
`
	qConfigDelete = `
DELETE FROM notification_configs
WHERE group_name = $1 AND brand = $2 AND user_id = $3 AND vehicle_id = $4 AND contact_id = $5;
`
	qSecondaryContact = `
SELECT contact_id, user_id, vehicle_id, email, phone_number, locale
FROM secondary_contacts
WHERE contact_id = $1;
`
	qGroupServices = `
SELECT required_services
FROM notification_groups
WHERE group_name = $1;
`
)

func (r *ConfigRepo) FindConfigs(ctx context.Context, userIDs, vehicleIDs []string, group string) ([]config.NotificationConfig, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qConfigFind, userIDs, vehicleIDs, group)
	if err != nil {
		return nil, fmt.Errorf("query configs: %w", err)
	}
	defer rows.Close()

	var out []config.NotificationConfig
	for rows.Next() {
		var c config.NotificationConfig
		var channels []byte
		if err := rows.Scan(&c.Group, &c.Brand, &c.UserID, &c.VehicleID, &c.ContactID, &c.Enabled, &c.Locale, &channels); err != nil {
			return nil, fmt.Errorf("scan config: %w", err)
		}
		if len(channels) > 0 {
			if err := json.Unmarshal(channels, &c.Channels); err != nil {
				return nil, fmt.Errorf("decode channels: %w", err)
			}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// SaveConfig upserts one configuration row, keyed by its full identity.
func (r *ConfigRepo) SaveConfig(ctx context.Context, c config.NotificationConfig) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	channels, err := json.Marshal(c.Channels)
	if err != nil {
		return fmt.Errorf("encode channels: %w", err)
	}
	if _, err := r.db.Pool.Exec(ctx, qConfigUpsert,
		c.Group, c.Brand, c.UserID, c.VehicleID, c.ContactID, c.Enabled, c.Locale, channels,
	); err != nil {
		return fmt.Errorf("upsert config: %w", err)
	}
	return nil
}

// DeleteConfig is idempotent: deleting an absent row is not an error.
func (r *ConfigRepo) DeleteConfig(ctx context.Context, c config.NotificationConfig) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Pool.Exec(ctx, qConfigDelete,
		c.Group, c.Brand, c.UserID, c.VehicleID, c.ContactID,
	); err != nil {
		return fmt.Errorf("delete config: %w", err)
	}
	return nil
}

// FindSecondaryContact returns nil, nil when the contact does not exist.
func (r *ConfigRepo) FindSecondaryContact(ctx context.Context, contactID string) (*config.SecondaryContact, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var sc config.SecondaryContact
	err := r.db.Pool.QueryRow(ctx, qSecondaryContact, contactID).
		Scan(&sc.ContactID, &sc.UserID, &sc.VehicleID, &sc.Email, &sc.PhoneNumber, &sc.Locale)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query secondary contact: %w", err)
	}
	return &sc, nil
}

func (r *ConfigRepo) RequiredServices(ctx context.Context, group string) ([]string, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var svcs []string
	err := r.db.Pool.QueryRow(ctx, qGroupServices, group).Scan(&svcs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query group services: %w", err)
	}
	return svcs, nil
}
