package ivm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fleetlink/notifier/internal/domain/alert"
	"github.com/fleetlink/notifier/internal/domain/config"
	domain "github.com/fleetlink/notifier/internal/domain/ivm"
	"github.com/fleetlink/notifier/internal/services/resolver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var _ ServiceCatalog = (*resolver.Resolver)(nil)

type fakeCatalog struct {
	services map[string][]string
	err      error
}

func (f *fakeCatalog) RequiredServices(_ context.Context, group string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.services[group], nil
}

type fakeDirectory struct {
	enabled map[string]map[string]struct{}
	err     error
}

func (f *fakeDirectory) UserIDForVehicle(_ context.Context, _ string) (string, error) {
	return "", nil
}

func (f *fakeDirectory) EnabledServices(_ context.Context, vehicleID string) (map[string]struct{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.enabled[vehicleID], nil
}

func (f *fakeDirectory) DefaultEmail(_ context.Context, _ string) (string, error) { return "", nil }
func (f *fakeDirectory) DefaultPhone(_ context.Context, _ string) (string, error) { return "", nil }

type fakeTracking struct {
	saved []*domain.Request
	err   error
}

func (f *fakeTracking) Save(_ context.Context, r *domain.Request) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, r)
	return nil
}

func (f *fakeTracking) FindByVehicleAndMessage(_ context.Context, vehicleID, messageID string) (*domain.Request, error) {
	for _, r := range f.saved {
		if r.VehicleID == vehicleID && r.MessageID == messageID {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeTracking) FindByVehicleAndSession(_ context.Context, vehicleID, sessionID string) (*domain.Request, error) {
	for _, r := range f.saved {
		if r.VehicleID == vehicleID && r.SessionID == sessionID {
			return r, nil
		}
	}
	return nil, nil
}

type fakeHistory struct {
	byID    map[string]*alert.DeliveryHistory
	updates []alert.ChannelResponse
}

func (f *fakeHistory) Create(_ context.Context, h *alert.DeliveryHistory) error {
	if f.byID == nil {
		f.byID = make(map[string]*alert.DeliveryHistory)
	}
	f.byID[h.ID] = h
	return nil
}

func (f *fakeHistory) FindByID(_ context.Context, id string) (*alert.DeliveryHistory, error) {
	return f.byID[id], nil
}

func (f *fakeHistory) UpdateChannelResponse(_ context.Context, id string, index int, r alert.ChannelResponse) (bool, error) {
	h, ok := f.byID[id]
	if !ok || index < 0 || index >= len(h.Responses) {
		return false, nil
	}
	h.Responses[index] = r
	f.updates = append(f.updates, r)
	return true, nil
}

type forwarded struct {
	vehicleID   string
	event       any
	destination string
}

type fakeTransport struct {
	stream []forwarded
	direct []forwarded
	err    error
}

func (f *fakeTransport) Forward(_ context.Context, vehicleID string, event any) error {
	if f.err != nil {
		return f.err
	}
	f.stream = append(f.stream, forwarded{vehicleID: vehicleID, event: event})
	return nil
}

func (f *fakeTransport) ForwardDirectly(_ context.Context, vehicleID string, event any, destination string) error {
	f.direct = append(f.direct, forwarded{vehicleID: vehicleID, event: event, destination: destination})
	return nil
}

type fakeFeedback struct {
	notified []alert.ChannelResponse
}

func (f *fakeFeedback) NotifyChannelFeedback(_ context.Context, _ *alert.DeliveryHistory, r alert.ChannelResponse) {
	f.notified = append(f.notified, r)
}

type deps struct {
	catalog  *fakeCatalog
	dir      *fakeDirectory
	tracking *fakeTracking
	history  *fakeHistory
	tr       *fakeTransport
	feedback *fakeFeedback
}

// newTestDispatcher wires the struct by hand so each test gets fresh,
// unregistered counters.
func newTestDispatcher(cfg Config, d deps) *Dispatcher {
	counter := func(name string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name})
	}
	return &Dispatcher{
		catalog:          d.catalog,
		dir:              d.dir,
		tracking:         d.tracking,
		history:          d.history,
		tr:               d.tr,
		feedback:         d.feedback,
		cfg:              cfg,
		log:              zap.NewNop(),
		mPublished:       counter("t_published"),
		mEntitlementFail: counter("t_entitlement"),
		mAcks:            counter("t_acks"),
		mAcksDropped:     counter("t_dropped"),
	}
}

func defaultDeps() deps {
	return deps{
		catalog:  &fakeCatalog{services: map[string][]string{"Remote": {"S1"}}},
		dir:      &fakeDirectory{enabled: map[string]map[string]struct{}{"V1": {"S1": {}}}},
		tracking: &fakeTracking{},
		history:  &fakeHistory{},
		tr:       &fakeTransport{},
		feedback: &fakeFeedback{},
	}
}

func testConfig() Config {
	return Config{
		FeedbackDestination: "feedback",
		AckDestination:      "ack-out",
		EntitlementCheck:    true,
	}
}

func remoteAlert() *alert.Alert {
	return &alert.Alert{
		ID:             "a-1",
		Type:           alert.EventDTC,
		Group:          "Remote",
		UserID:         "u1",
		VehicleID:      "V1",
		NotificationID: "N1",
		Template:       "Engine fault on {{vehicle}}",
		Params:         map[string]string{"vehicle": "V1"},
	}
}

func TestPublish_Success(t *testing.T) {
	d := defaultDeps()
	disp := newTestDispatcher(testConfig(), d)

	resp := disp.Publish(context.Background(), remoteAlert())

	require.Equal(t, alert.StatusSuccess, resp.Status)
	require.Len(t, d.tr.stream, 1)
	require.Equal(t, "V1", d.tr.stream[0].vehicleID)

	require.Len(t, d.tracking.saved, 1)
	req := d.tracking.saved[0]
	require.Equal(t, "a-1", req.RequestID)
	require.NotEmpty(t, req.MessageID)
	require.Equal(t, req.MessageID, resp.Detail["message_id"])
}

func TestPublish_EntitlementFailure(t *testing.T) {
	d := defaultDeps()
	d.dir.enabled = map[string]map[string]struct{}{"V1": {}}
	disp := newTestDispatcher(testConfig(), d)

	resp := disp.Publish(context.Background(), remoteAlert())

	require.Equal(t, alert.StatusFailure, resp.Status)
	require.Equal(t, domain.ErrCodeNotProvisioned, resp.ErrorCode)

	// feedback forwarded, nothing tracked
	require.Len(t, d.tr.direct, 1)
	require.Equal(t, "feedback", d.tr.direct[0].destination)
	fb, ok := d.tr.direct[0].event.(domain.FeedbackEvent)
	require.True(t, ok)
	require.Equal(t, "V1", fb.VehicleID)
	require.Equal(t, domain.ErrCodeNotProvisioned, fb.ErrorCode)

	require.Empty(t, d.tracking.saved)
	require.Empty(t, d.tr.stream)
}

func TestPublish_EntitlementLookupErrorTreatedAsFailure(t *testing.T) {
	d := defaultDeps()
	d.dir.err = errors.New("profile service down")
	disp := newTestDispatcher(testConfig(), d)

	resp := disp.Publish(context.Background(), remoteAlert())

	require.Equal(t, alert.StatusFailure, resp.Status)
	require.Equal(t, domain.ErrCodeNotProvisioned, resp.ErrorCode)
	require.Empty(t, d.tracking.saved)
}

func TestPublish_NoRequiredServiceMappingFails(t *testing.T) {
	d := defaultDeps()
	d.catalog.services = map[string][]string{}
	disp := newTestDispatcher(testConfig(), d)

	resp := disp.Publish(context.Background(), remoteAlert())

	require.Equal(t, alert.StatusFailure, resp.Status)
	require.Empty(t, d.tracking.saved)
}

func TestPublish_EntitlementCheckDisabledSkipsProfileLookup(t *testing.T) {
	d := defaultDeps()
	d.dir.err = errors.New("must not be called")
	cfg := testConfig()
	cfg.EntitlementCheck = false
	disp := newTestDispatcher(cfg, d)

	resp := disp.Publish(context.Background(), remoteAlert())

	require.Equal(t, alert.StatusSuccess, resp.Status)
}

func TestPublish_TTLStampsCutoff(t *testing.T) {
	d := defaultDeps()
	cfg := testConfig()
	cfg.TTL = time.Hour
	disp := newTestDispatcher(cfg, d)

	resp := disp.Publish(context.Background(), remoteAlert())
	require.Equal(t, alert.StatusSuccess, resp.Status)

	ev, ok := d.tr.stream[0].event.(domain.VehicleEvent)
	require.True(t, ok)
	require.NotNil(t, ev.CutoffAt)
	require.WithinDuration(t, time.Now().UTC().Add(time.Hour), *ev.CutoffAt, time.Minute)
}

func TestPublish_CampaignParamsOnTrackingRecord(t *testing.T) {
	d := defaultDeps()
	disp := newTestDispatcher(testConfig(), d)

	a := remoteAlert()
	a.Params = map[string]string{
		domain.ParamCampaignID:   "c-77",
		domain.ParamCampaignDate: "2026-08-01",
		domain.ParamCountryCode:  "US",
		"messageId":              "m-42",
		"buttonActions":          "OK,DISMISS",
	}

	resp := disp.Publish(context.Background(), a)
	require.Equal(t, alert.StatusSuccess, resp.Status)

	req := d.tracking.saved[0]
	require.Equal(t, "c-77", req.CampaignID)
	require.Equal(t, "2026-08-01", req.CampaignDate)
	require.Equal(t, "US", req.CountryCode)
	require.Equal(t, "m-42", req.MessageID)

	ev := d.tr.stream[0].event.(domain.VehicleEvent)
	require.Equal(t, []string{"OK", "DISMISS"}, ev.ButtonActions)
	require.Equal(t, "m-42", ev.MessageID)
}

func TestPublish_AdditionalDataOnVehicleEvent(t *testing.T) {
	d := defaultDeps()
	disp := newTestDispatcher(testConfig(), d)

	a := remoteAlert()
	a.AdditionalData = map[string]string{"deeplink": "app://alerts/a-1"}

	resp := disp.Publish(context.Background(), a)
	require.Equal(t, alert.StatusSuccess, resp.Status)

	ev := d.tr.stream[0].event.(domain.VehicleEvent)
	require.Equal(t, "app://alerts/a-1", ev.AdditionalData["deeplink"])
}

func TestPublish_ForwardFailure(t *testing.T) {
	d := defaultDeps()
	d.tr.err = errors.New("broker down")
	disp := newTestDispatcher(testConfig(), d)

	resp := disp.Publish(context.Background(), remoteAlert())

	require.Equal(t, alert.StatusFailure, resp.Status)
	require.Equal(t, "SEND_FAILED", resp.ErrorCode)
	require.Empty(t, d.tracking.saved)
}

func TestSplitCSV(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, splitCSV("a,b"))
	require.Equal(t, []string{"a"}, splitCSV("a,"))
	require.Nil(t, splitCSV(""))
	require.Equal(t, []string{"b"}, splitCSV(",b"))
}

type countingServiceStore struct {
	calls int
}

func (s *countingServiceStore) FindConfigs(_ context.Context, _, _ []string, _ string) ([]config.NotificationConfig, error) {
	return nil, nil
}

func (s *countingServiceStore) FindSecondaryContact(_ context.Context, _ string) (*config.SecondaryContact, error) {
	return nil, nil
}

func (s *countingServiceStore) RequiredServices(_ context.Context, _ string) ([]string, error) {
	s.calls++
	return []string{"S1"}, nil
}

func TestPublish_ResolverCatalogServesRepeatLookupsFromCache(t *testing.T) {
	store := &countingServiceStore{}
	d := defaultDeps()
	disp := newTestDispatcher(testConfig(), d)
	disp.catalog = resolver.New(store, d.dir, zap.NewNop())

	r1 := disp.Publish(context.Background(), remoteAlert())
	r2 := disp.Publish(context.Background(), remoteAlert())

	require.Equal(t, alert.StatusSuccess, r1.Status)
	require.Equal(t, alert.StatusSuccess, r2.Status)
	require.Equal(t, 1, store.calls)
}
