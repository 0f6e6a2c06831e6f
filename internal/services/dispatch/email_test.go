package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/fleetlink/notifier/internal/domain/alert"
	"github.com/fleetlink/notifier/internal/domain/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	sent [][]string
	err  error
}

func (f *fakeSender) Send(_ context.Context, to []string, _, _ string) error {
	f.sent = append(f.sent, to)
	return f.err
}

type fakeSuppressor struct{ bounced map[string]bool }

func (f *fakeSuppressor) IsSuppressed(_ context.Context, addr string) bool {
	return f.bounced[addr]
}

func emailAlert(dests ...string) *alert.Alert {
	return &alert.Alert{
		ID:        "a-1",
		Type:      alert.EventDTC,
		UserID:    "u1",
		VehicleID: "v1",
		Config: &config.NotificationConfig{
			Enabled: true,
			Channels: []config.Channel{
				{Type: config.ChannelEmail, Enabled: true, Destinations: dests},
			},
		},
	}
}

func TestEmail_RemovesBouncedAddresses(t *testing.T) {
	sender := &fakeSender{}
	sup := &fakeSuppressor{bounced: map[string]bool{"dead@x.com": true}}
	e := NewEmail(sender, sup, prometheus.NewRegistry(), zap.NewNop())

	resp := e.Publish(context.Background(), emailAlert("dead@x.com", "live@x.com"))

	require.Equal(t, alert.StatusSuccess, resp.Status)
	require.Len(t, sender.sent, 1)
	require.Equal(t, []string{"live@x.com"}, sender.sent[0])
}

func TestEmail_AllBouncedIsMissingDestination(t *testing.T) {
	sender := &fakeSender{}
	sup := &fakeSuppressor{bounced: map[string]bool{"dead@x.com": true}}
	e := NewEmail(sender, sup, prometheus.NewRegistry(), zap.NewNop())

	resp := e.Publish(context.Background(), emailAlert("dead@x.com"))

	require.Equal(t, alert.StatusMissingDestination, resp.Status)
	require.Empty(t, sender.sent)
}

func TestEmail_NoDestinations(t *testing.T) {
	sender := &fakeSender{}
	e := NewEmail(sender, &fakeSuppressor{}, prometheus.NewRegistry(), zap.NewNop())

	resp := e.Publish(context.Background(), emailAlert())

	require.Equal(t, alert.StatusMissingDestination, resp.Status)
	require.Empty(t, sender.sent)
}

func TestEmail_SendFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	e := NewEmail(sender, &fakeSuppressor{}, prometheus.NewRegistry(), zap.NewNop())

	resp := e.Publish(context.Background(), emailAlert("live@x.com"))

	require.Equal(t, alert.StatusFailure, resp.Status)
	require.Equal(t, "SEND_FAILED", resp.ErrorCode)
}

func TestPublish_UnresolvedUserRejected(t *testing.T) {
	sender := &fakeSender{}
	e := NewEmail(sender, &fakeSuppressor{}, prometheus.NewRegistry(), zap.NewNop())

	a := emailAlert("live@x.com")
	a.UserID = ""

	resp := e.Publish(context.Background(), a)

	require.Equal(t, alert.StatusFailure, resp.Status)
	require.Equal(t, "USER_NOT_RESOLVED", resp.ErrorCode)
	require.Empty(t, sender.sent)
}

func TestPublish_CampaignSkipsUserCheck(t *testing.T) {
	sender := &fakeSender{}
	e := NewEmail(sender, &fakeSuppressor{}, prometheus.NewRegistry(), zap.NewNop())

	a := emailAlert("fleet@x.com")
	a.UserID = ""
	a.Type = alert.EventCampaign

	resp := e.Publish(context.Background(), a)

	require.Equal(t, alert.StatusSuccess, resp.Status)
	require.Len(t, sender.sent, 1)
}
