package dispatch

import (
	"testing"

	"github.com/fleetlink/notifier/internal/domain/alert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate_Substitution(t *testing.T) {
	a := &alert.Alert{
		Type:     alert.EventGeofence,
		Template: "Vehicle {{vehicle}} left {{zone}}",
		Params:   map[string]string{"vehicle": "v1", "zone": "Home"},
	}

	subject, body := renderTemplate(a)
	require.Equal(t, "[FleetLink] geofence alert", subject)
	require.Equal(t, "Vehicle v1 left Home", body)
}

func TestRenderTemplate_NoTemplateFallback(t *testing.T) {
	a := &alert.Alert{Type: alert.EventLowFuel, VehicleID: "v9"}

	_, body := renderTemplate(a)
	require.Equal(t, "Vehicle v9 reported a LOW_FUEL event.", body)
}

func TestRenderSMS_FirstLineOnly(t *testing.T) {
	a := &alert.Alert{
		Type:     alert.EventCurfew,
		Template: "Curfew breached\nDetails follow",
	}

	require.Equal(t, "Curfew breached", renderSMS(a))
}
