package dispatch

import (
	"context"
	"testing"

	"github.com/fleetlink/notifier/internal/domain/alert"
	"github.com/fleetlink/notifier/internal/domain/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeResolver struct {
	configs []config.NotificationConfig
	err     error
	userIDs []string
}

func (f *fakeResolver) Resolve(_ context.Context, _, _, userID, _ string) ([]config.NotificationConfig, error) {
	f.userIDs = append(f.userIDs, userID)
	return f.configs, f.err
}

type fakeOwnerDir struct {
	owners map[string]string
	err    error
}

func (f *fakeOwnerDir) UserIDForVehicle(_ context.Context, vehicleID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.owners[vehicleID], nil
}

type fakeHistory struct{ created []*alert.DeliveryHistory }

func (f *fakeHistory) Create(_ context.Context, h *alert.DeliveryHistory) error {
	f.created = append(f.created, h)
	return nil
}

func (f *fakeHistory) FindByID(_ context.Context, _ string) (*alert.DeliveryHistory, error) {
	return nil, nil
}

func (f *fakeHistory) UpdateChannelResponse(_ context.Context, _ string, _ int, _ alert.ChannelResponse) (bool, error) {
	return false, nil
}

type fakeProvider struct {
	channel   config.ChannelType
	published []*alert.Alert
	destroyed []string
	setups    int
}

func (f *fakeProvider) Publish(_ context.Context, a *alert.Alert) alert.ChannelResponse {
	f.published = append(f.published, a)
	return alert.Success(f.channel, "fake")
}

func (f *fakeProvider) SetupChannel(_ context.Context, _ config.NotificationConfig) alert.ChannelResponse {
	f.setups++
	return alert.Success(f.channel, "fake")
}

func (f *fakeProvider) DestroyChannel(_ context.Context, key string, _ map[string]string) alert.ChannelResponse {
	f.destroyed = append(f.destroyed, key)
	return alert.Success(f.channel, "fake")
}

func (f *fakeProvider) ChannelType() config.ChannelType { return f.channel }
func (f *fakeProvider) ProviderName() string            { return "fake" }
func (f *fakeProvider) Protocol() string                { return "test" }

func TestDispatch_SuppressedWhenNoConfig(t *testing.T) {
	hist := &fakeHistory{}
	e := NewEngine(&fakeResolver{}, nil, hist, nil, zap.NewNop())

	h, err := e.Dispatch(context.Background(), &alert.Alert{ID: "a-1", VehicleID: "v1"})
	require.NoError(t, err)
	require.Nil(t, h)
	require.Empty(t, hist.created)
}

func TestDispatch_FansOutEnabledChannels(t *testing.T) {
	email := &fakeProvider{channel: config.ChannelEmail}
	sms := &fakeProvider{channel: config.ChannelSMS}
	res := &fakeResolver{configs: []config.NotificationConfig{{
		ContactID: config.ContactSelf,
		Enabled:   true,
		Channels: []config.Channel{
			{Type: config.ChannelEmail, Enabled: true, Destinations: []string{"a@x.com"}},
			{Type: config.ChannelSMS, Enabled: false},
		},
	}}}
	hist := &fakeHistory{}
	e := NewEngine(res, nil, hist, []Provider{email, sms}, zap.NewNop())

	h, err := e.Dispatch(context.Background(), &alert.Alert{ID: "a-1", UserID: "u1", VehicleID: "v1"})
	require.NoError(t, err)
	require.NotNil(t, h)

	require.Len(t, email.published, 1)
	require.Empty(t, sms.published)
	require.Len(t, h.Responses, 1)
	require.Equal(t, config.ChannelEmail, h.Responses[0].Channel)

	require.Len(t, hist.created, 1)
	require.Equal(t, "a-1", hist.created[0].ID)
}

func TestDispatch_DisabledConfigSkipped(t *testing.T) {
	email := &fakeProvider{channel: config.ChannelEmail}
	res := &fakeResolver{configs: []config.NotificationConfig{{
		ContactID: config.ContactSelf,
		Enabled:   false,
		Channels:  []config.Channel{{Type: config.ChannelEmail, Enabled: true}},
	}}}
	e := NewEngine(res, nil, &fakeHistory{}, []Provider{email}, zap.NewNop())

	h, err := e.Dispatch(context.Background(), &alert.Alert{ID: "a-1", UserID: "u1", VehicleID: "v1"})
	require.NoError(t, err)
	require.Empty(t, h.Responses)
	require.Empty(t, email.published)
}

func TestDispatch_ContactLocaleOverridesAlert(t *testing.T) {
	email := &fakeProvider{channel: config.ChannelEmail}
	res := &fakeResolver{configs: []config.NotificationConfig{{
		ContactID: config.ContactSelf,
		Enabled:   true,
		Locale:    "fr-CA",
		Channels:  []config.Channel{{Type: config.ChannelEmail, Enabled: true}},
	}}}
	e := NewEngine(res, nil, &fakeHistory{}, []Provider{email}, zap.NewNop())

	_, err := e.Dispatch(context.Background(), &alert.Alert{ID: "a-1", UserID: "u1", VehicleID: "v1", Locale: "en-US"})
	require.NoError(t, err)
	require.Len(t, email.published, 1)
	require.Equal(t, "fr-CA", email.published[0].Locale)
}

func TestDispatch_ResolvesOwnerFromVehicle(t *testing.T) {
	email := &fakeProvider{channel: config.ChannelEmail}
	res := &fakeResolver{configs: []config.NotificationConfig{{
		ContactID: config.ContactSelf,
		Enabled:   true,
		Channels:  []config.Channel{{Type: config.ChannelEmail, Enabled: true, Destinations: []string{"a@x.com"}}},
	}}}
	dir := &fakeOwnerDir{owners: map[string]string{"v1": "u1"}}
	hist := &fakeHistory{}
	e := NewEngine(res, dir, hist, []Provider{email}, zap.NewNop())

	h, err := e.Dispatch(context.Background(), &alert.Alert{ID: "a-1", Type: alert.EventLowFuel, VehicleID: "v1"})
	require.NoError(t, err)
	require.NotNil(t, h)

	require.Equal(t, []string{"u1"}, res.userIDs)
	require.Equal(t, "u1", h.UserID)
	require.Len(t, email.published, 1)
	require.Equal(t, "u1", email.published[0].UserID)
}

func TestDispatch_OwnerLookupFailureFallsBackToDefaults(t *testing.T) {
	res := &fakeResolver{}
	dir := &fakeOwnerDir{err: context.DeadlineExceeded}
	e := NewEngine(res, dir, &fakeHistory{}, nil, zap.NewNop())

	h, err := e.Dispatch(context.Background(), &alert.Alert{ID: "a-1", VehicleID: "v1"})
	require.NoError(t, err)
	require.Nil(t, h)
	require.Equal(t, []string{""}, res.userIDs)
}

func TestApplyConfigChange_DestroysAndSetsUp(t *testing.T) {
	push := &fakeProvider{channel: config.ChannelMobilePush}
	e := NewEngine(&fakeResolver{}, nil, nil, []Provider{push}, zap.NewNop())

	old := config.NotificationConfig{Channels: []config.Channel{
		{Type: config.ChannelMobilePush, Enabled: true, Destinations: []string{"tok-old"}},
	}}
	updated := config.NotificationConfig{Channels: []config.Channel{
		{Type: config.ChannelMobilePush, Enabled: true, Destinations: []string{"tok-new"}},
	}}

	e.ApplyConfigChange(context.Background(), old, updated)

	require.Equal(t, []string{"tok-old"}, push.destroyed)
	require.Equal(t, 1, push.setups)
}
