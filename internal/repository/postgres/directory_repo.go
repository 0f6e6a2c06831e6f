package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fleetlink/notifier/internal/domain/config"
	"github.com/jackc/pgx/v5"
)

var _ config.Directory = (*DirectoryRepo)(nil)

// DirectoryRepo is the user/vehicle profile view: vehicle ownership,
// enabled services, and the profile's default destinations.
type DirectoryRepo struct{ db *DB }

func NewDirectoryRepo(db *DB) *DirectoryRepo { return &DirectoryRepo{db: db} }

const (
	qVehicleOwner = `
SELECT user_id FROM vehicles WHERE vehicle_id = $1;
`
	qVehicleServices = `
SELECT enabled_services FROM vehicles WHERE vehicle_id = $1;
`
	qUserDefaults = `
SELECT default_email, default_phone FROM users WHERE user_id = $1;
`
)

func (r *DirectoryRepo) UserIDForVehicle(ctx context.Context, vehicleID string) (string, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var userID string
	err := r.db.Pool.QueryRow(ctx, qVehicleOwner, vehicleID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query vehicle owner: %w", err)
	}
	return userID, nil
}

func (r *DirectoryRepo) EnabledServices(ctx context.Context, vehicleID string) (map[string]struct{}, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var svcs []string
	err := r.db.Pool.QueryRow(ctx, qVehicleServices, vehicleID).Scan(&svcs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query vehicle services: %w", err)
	}
	out := make(map[string]struct{}, len(svcs))
	for _, s := range svcs {
		out[s] = struct{}{}
	}
	return out, nil
}

func (r *DirectoryRepo) DefaultEmail(ctx context.Context, userID string) (string, error) {
	email, _, err := r.userDefaults(ctx, userID)
	return email, err
}

func (r *DirectoryRepo) DefaultPhone(ctx context.Context, userID string) (string, error) {
	_, phone, err := r.userDefaults(ctx, userID)
	return phone, err
}

func (r *DirectoryRepo) userDefaults(ctx context.Context, userID string) (string, string, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var email, phone *string
	err := r.db.Pool.QueryRow(ctx, qUserDefaults, userID).Scan(&email, &phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("query user defaults: %w", err)
	}
	return deref(email), deref(phone), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
