package resolver

import (
	"context"
	"fmt"
	"sync"

	"github.com/fleetlink/notifier/internal/domain/config"
	"go.uber.org/zap"
)

// Resolver merges default, per-user, per-vehicle and secondary-contact
// configuration rows into the effective configs for one notification.
type Resolver struct {
	store config.Store
	dir   config.Directory
	log   *zap.Logger

	defaultBrand  string
	defaultLocale string

	mu       sync.RWMutex
	services map[string][]string
}

type Option func(*Resolver)

func WithDefaultBrand(b string) Option  { return func(r *Resolver) { r.defaultBrand = b } }
func WithDefaultLocale(l string) Option { return func(r *Resolver) { r.defaultLocale = l } }

func New(store config.Store, dir config.Directory, log *zap.Logger, opts ...Option) *Resolver {
	if log == nil {
		log = zap.L()
	}
	r := &Resolver{
		store:         store,
		dir:           dir,
		log:           log.With(zap.String("component", "resolver")),
		defaultBrand:  config.DefaultBrand,
		defaultLocale: config.DefaultLocale,
		services:      make(map[string][]string),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns zero or more effective configs for the notification,
// one per contact that should receive it. The primary contact, when
// present, is always first. An empty result means the notification is
// suppressed.
func (r *Resolver) Resolve(ctx context.Context, group, brand, userID, vehicleID string) ([]config.NotificationConfig, error) {
	candidates, err := r.fetch(ctx, group, userID, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("fetch configs: %w", err)
	}
	return r.Merge(group, brand, userID, vehicleID, candidates, r.fill(ctx))
}

func (r *Resolver) fetch(ctx context.Context, group, userID, vehicleID string) ([]config.NotificationConfig, error) {
	userIDs := []string{config.DefaultUser}
	vehicleIDs := []string{config.DefaultVehicle}
	if userID != "" {
		userIDs = append(userIDs, userID)
		if vehicleID != "" {
			vehicleIDs = append(vehicleIDs, vehicleID)
		}
	}
	return r.store.FindConfigs(ctx, userIDs, vehicleIDs, group)
}

// DestinationFiller injects default destinations into a resolved config;
// see fill for the production implementation.
type DestinationFiller func(eff config.NotificationConfig, primary bool) config.NotificationConfig

// Merge runs the resolution algorithm over already-fetched candidates.
// Split out from Resolve so the merge rules are testable without a store.
func (r *Resolver) Merge(group, brand, userID, vehicleID string, candidates []config.NotificationConfig, fill DestinationFiller) ([]config.NotificationConfig, error) {
	def, ok := r.brandDefault(brand, candidates)
	if !ok {
		r.log.Error("no default config",
			zap.String("group", group),
			zap.String("brand", brand),
			zap.String("user_id", userID),
			zap.String("vehicle_id", vehicleID),
		)
		return nil, nil
	}

	if userID == "" {
		eff := def.Clone()
		eff.ContactID = config.ContactSelf
		eff.VehicleID = vehicleID
		if eff.VehicleID == "" {
			eff.VehicleID = config.DefaultVehicle
		}
		if eff.Locale == "" {
			eff.Locale = r.defaultLocale
		}
		return []config.NotificationConfig{eff}, nil
	}

	vehicleToUse := vehicleID
	if vehicleToUse == "" {
		vehicleToUse = config.DefaultVehicle
	}

	contacts := r.gather(userID, vehicleToUse, def, candidates)

	out := make([]config.NotificationConfig, 0, len(contacts))
	seen := make(map[string]struct{}, len(contacts))
	for _, cc := range contacts {
		eff := def.Patch(cc)
		eff.ContactID = cc.ContactID
		if cc.ContactID != config.ContactSelf {
			eff = eff.WithoutChannel(config.ChannelAPIPush)
		}
		eff.UserID = userID
		eff.VehicleID = vehicleToUse
		if cc.Locale != "" {
			eff.Locale = cc.Locale
		}

		if fill != nil {
			eff = fill(eff, cc.ContactID == config.ContactSelf)
		}
		if eff.ContactID == "" {
			continue
		}
		if _, dup := seen[eff.ContactID]; dup {
			continue
		}
		seen[eff.ContactID] = struct{}{}
		out = append(out, eff)
	}
	return out, nil
}

// brandDefault finds the default row for the brand, falling back to the
// system default brand's row.
func (r *Resolver) brandDefault(brand string, candidates []config.NotificationConfig) (config.NotificationConfig, bool) {
	find := func(b string) (config.NotificationConfig, bool) {
		for _, c := range candidates {
			if c.UserID == config.DefaultUser && c.Brand == b {
				return c, true
			}
		}
		return config.NotificationConfig{}, false
	}
	if def, ok := find(brand); ok {
		return def, true
	}
	if brand != r.defaultBrand {
		return find(r.defaultBrand)
	}
	return config.NotificationConfig{}, false
}

// gather collects the per-contact source configs: the primary row
// (synthesized from the default when absent) first, then any secondary
// rows when a concrete vehicle is in use.
func (r *Resolver) gather(userID, vehicleToUse string, def config.NotificationConfig, candidates []config.NotificationConfig) []config.NotificationConfig {
	var primary *config.NotificationConfig
	for i := range candidates {
		c := candidates[i]
		if c.UserID == userID && c.VehicleID == vehicleToUse && c.ContactID == config.ContactSelf {
			primary = &c
			break
		}
	}
	if primary == nil {
		p := def.Clone()
		p.ContactID = config.ContactSelf
		p.UserID = userID
		p.VehicleID = vehicleToUse
		primary = &p
	}

	out := []config.NotificationConfig{*primary}
	if vehicleToUse == config.DefaultVehicle {
		return out
	}
	for _, c := range candidates {
		if c.UserID == userID && c.VehicleID == vehicleToUse && c.ContactID != config.ContactSelf && c.ContactID != "" {
			out = append(out, c)
		}
	}
	return out
}

// fill returns the production DestinationFiller: default email/phone for
// the primary contact, the secondary-contact record for the rest. A
// secondary contact that cannot be found invalidates the config so the
// caller drops it.
func (r *Resolver) fill(ctx context.Context) DestinationFiller {
	return func(eff config.NotificationConfig, primary bool) config.NotificationConfig {
		if primary {
			eff = r.fillDefault(ctx, eff, config.ChannelEmail, r.dir.DefaultEmail)
			eff = r.fillDefault(ctx, eff, config.ChannelSMS, r.dir.DefaultPhone)
			return eff
		}

		sc, err := r.store.FindSecondaryContact(ctx, eff.ContactID)
		if err != nil || sc == nil {
			if err != nil {
				r.log.Warn("secondary contact lookup failed",
					zap.String("contact_id", eff.ContactID), zap.Error(err))
			}
			eff.ContactID = ""
			return eff
		}
		if ch, ok := eff.Channel(config.ChannelEmail); ok && len(ch.Destinations) == 0 && sc.Email != "" {
			ch.Destinations = []string{sc.Email}
			eff = eff.WithChannel(ch)
		}
		if ch, ok := eff.Channel(config.ChannelSMS); ok && len(ch.Destinations) == 0 && sc.PhoneNumber != "" {
			ch.Destinations = []string{sc.PhoneNumber}
			eff = eff.WithChannel(ch)
		}
		if sc.Locale != "" {
			eff.Locale = sc.Locale
		} else if eff.Locale == "" {
			eff.Locale = r.defaultLocale
		}
		return eff
	}
}

func (r *Resolver) fillDefault(ctx context.Context, eff config.NotificationConfig, t config.ChannelType, lookup func(context.Context, string) (string, error)) config.NotificationConfig {
	ch, ok := eff.Channel(t)
	if !ok || !ch.Enabled || len(ch.Destinations) > 0 {
		return eff
	}
	dest, err := lookup(ctx, eff.UserID)
	if err != nil || dest == "" {
		if err != nil {
			r.log.Warn("default destination lookup failed",
				zap.String("channel", string(t)), zap.String("user_id", eff.UserID), zap.Error(err))
		}
		return eff
	}
	ch.Destinations = []string{dest}
	return eff.WithChannel(ch)
}

// RequiredServices returns the entitlement services for a notification
// group, caching store results per group.
func (r *Resolver) RequiredServices(ctx context.Context, group string) ([]string, error) {
	r.mu.RLock()
	svcs, ok := r.services[group]
	r.mu.RUnlock()
	if ok {
		return svcs, nil
	}

	svcs, err := r.store.RequiredServices(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("required services for %q: %w", group, err)
	}
	r.mu.Lock()
	r.services[group] = svcs
	r.mu.Unlock()
	return svcs, nil
}
