package dispatch

import (
	"sort"
	"strings"

	"github.com/fleetlink/notifier/internal/domain/alert"
)

// renderTemplate builds the user-facing subject/body for an alert. The
// template text carries {{param}} placeholders filled from the alert's
// parameter map; alerts without a template fall back to a generic line.
func renderTemplate(a *alert.Alert) (subject, body string) {
	subject = "[FleetLink] " + strings.ReplaceAll(strings.ToLower(string(a.Type)), "_", " ") + " alert"

	if a.Template == "" {
		body = "Vehicle " + a.VehicleID + " reported a " + string(a.Type) + " event."
		return subject, body
	}

	body = a.Template
	// Deterministic substitution order keeps rendering stable for tests.
	keys := make([]string, 0, len(a.Params))
	for k := range a.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		body = strings.ReplaceAll(body, "{{"+k+"}}", a.Params[k])
	}
	return subject, body
}

// renderSMS is the single-line rendition used by the SMS path.
func renderSMS(a *alert.Alert) string {
	_, body := renderTemplate(a)
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[:i]
	}
	return body
}
