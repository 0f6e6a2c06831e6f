package bounce

import "encoding/json"

// BounceType values inside a bounce notification. Only permanent bounces
// trigger suppression.
const TypePermanent = "Permanent"

// Message is one raw message received from the bounce queue.
type Message struct {
	ID   string
	Body []byte
}

// Envelope is the outer notification wrapper; the bounce payload rides as
// an embedded JSON document in Message.
type Envelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// Notification is the inner bounce document.
type Notification struct {
	NotificationType string `json:"notificationType"`
	Bounce           struct {
		BounceType        string `json:"bounceType"`
		BouncedRecipients []struct {
			EmailAddress string `json:"emailAddress"`
		} `json:"bouncedRecipients"`
	} `json:"bounce"`
}

// Parse unwraps the envelope and decodes the embedded bounce document.
func Parse(body []byte) (*Notification, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	var n Notification
	if err := json.Unmarshal([]byte(env.Message), &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// Addresses returns the recipients of a permanent bounce, or nil for any
// other bounce type.
func (n *Notification) Addresses() []string {
	if n.Bounce.BounceType != TypePermanent {
		return nil
	}
	out := make([]string, 0, len(n.Bounce.BouncedRecipients))
	for _, r := range n.Bounce.BouncedRecipients {
		if r.EmailAddress != "" {
			out = append(out, r.EmailAddress)
		}
	}
	return out
}
