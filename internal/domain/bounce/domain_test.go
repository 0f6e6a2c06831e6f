package bounce

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func envelope(t *testing.T, inner any) []byte {
	t.Helper()
	msg, err := json.Marshal(inner)
	require.NoError(t, err)
	out, err := json.Marshal(Envelope{Type: "Notification", Message: string(msg)})
	require.NoError(t, err)
	return out
}

func TestParse_PermanentBounce(t *testing.T) {
	body := envelope(t, map[string]any{
		"notificationType": "Bounce",
		"bounce": map[string]any{
			"bounceType": "Permanent",
			"bouncedRecipients": []map[string]string{
				{"emailAddress": "dead@x.com"},
				{"emailAddress": "gone@x.com"},
			},
		},
	})

	n, err := Parse(body)
	require.NoError(t, err)
	require.Equal(t, []string{"dead@x.com", "gone@x.com"}, n.Addresses())
}

func TestAddresses_TransientBounceIgnored(t *testing.T) {
	body := envelope(t, map[string]any{
		"notificationType": "Bounce",
		"bounce": map[string]any{
			"bounceType": "Transient",
			"bouncedRecipients": []map[string]string{
				{"emailAddress": "full-mailbox@x.com"},
			},
		},
	})

	n, err := Parse(body)
	require.NoError(t, err)
	require.Empty(t, n.Addresses())
}

func TestParse_MalformedOuter(t *testing.T) {
	_, err := Parse([]byte("not json"))
	require.Error(t, err)
}

func TestParse_MalformedInner(t *testing.T) {
	out, err := json.Marshal(Envelope{Type: "Notification", Message: "not json either"})
	require.NoError(t, err)

	_, err = Parse(out)
	require.Error(t, err)
}
