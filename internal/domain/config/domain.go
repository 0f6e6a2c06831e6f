package config

// Sentinel identifiers used by the default-configuration rows and the
// primary contact. A row keyed by (DefaultUser, DefaultVehicle) is the
// brand-wide default for its group.
const (
	DefaultUser    = "defaultUser"
	DefaultVehicle = "defaultVehicle"
	ContactSelf    = "self"

	DefaultBrand  = "default"
	DefaultLocale = "en-US"
)

type ChannelType string

const (
	ChannelEmail      ChannelType = "EMAIL"
	ChannelSMS        ChannelType = "SMS"
	ChannelMobilePush ChannelType = "MOBILE_APP_PUSH"
	ChannelAPIPush    ChannelType = "API_PUSH"
	ChannelIVM        ChannelType = "IVM"
	ChannelPortal     ChannelType = "PORTAL"
	ChannelBrowser    ChannelType = "BROWSER"
)

// ChannelTypes lists every channel type in dispatch order.
var ChannelTypes = []ChannelType{
	ChannelEmail,
	ChannelSMS,
	ChannelMobilePush,
	ChannelAPIPush,
	ChannelIVM,
	ChannelPortal,
	ChannelBrowser,
}

// Channel is one delivery mechanism inside a NotificationConfig. The
// meaning of Destinations depends on Type: email addresses, phone numbers
// or device tokens. IVM, PORTAL and BROWSER carry no destinations.
type Channel struct {
	Type         ChannelType `json:"type"`
	Enabled      bool        `json:"enabled"`
	Destinations []string    `json:"destinations,omitempty"`
}

func (c Channel) clone() Channel {
	cp := c
	if c.Destinations != nil {
		cp.Destinations = append([]string(nil), c.Destinations...)
	}
	return cp
}

// NotificationConfig is a value type: Clone, Patch and the With* helpers
// return new values and never alias the receiver's channel slices.
type NotificationConfig struct {
	Group     string    `json:"group"`
	Brand     string    `json:"brand"`
	UserID    string    `json:"user_id"`
	VehicleID string    `json:"vehicle_id"`
	ContactID string    `json:"contact_id"`
	Enabled   bool      `json:"enabled"`
	Locale    string    `json:"locale,omitempty"`
	Channels  []Channel `json:"channels"`
}

func (n NotificationConfig) Clone() NotificationConfig {
	cp := n
	cp.Channels = make([]Channel, len(n.Channels))
	for i, c := range n.Channels {
		cp.Channels[i] = c.clone()
	}
	return cp
}

// Channel returns the channel of the given type, if present.
func (n NotificationConfig) Channel(t ChannelType) (Channel, bool) {
	for _, c := range n.Channels {
		if c.Type == t {
			return c, true
		}
	}
	return Channel{}, false
}

// Patch overlays other onto n channel-type-wise: for every channel type
// present in other, other's channel replaces n's wholesale; types present
// only in n are preserved. Identity and locale fields of n are kept.
func (n NotificationConfig) Patch(other NotificationConfig) NotificationConfig {
	out := n.Clone()
	for _, oc := range other.Channels {
		replaced := false
		for i, c := range out.Channels {
			if c.Type == oc.Type {
				out.Channels[i] = oc.clone()
				replaced = true
				break
			}
		}
		if !replaced {
			out.Channels = append(out.Channels, oc.clone())
		}
	}
	return out
}

// WithChannel replaces (or appends) the channel of ch.Type.
func (n NotificationConfig) WithChannel(ch Channel) NotificationConfig {
	out := n.Clone()
	for i, c := range out.Channels {
		if c.Type == ch.Type {
			out.Channels[i] = ch.clone()
			return out
		}
	}
	out.Channels = append(out.Channels, ch.clone())
	return out
}

// WithoutChannel drops the channel of type t, if present.
func (n NotificationConfig) WithoutChannel(t ChannelType) NotificationConfig {
	out := n.Clone()
	for i, c := range out.Channels {
		if c.Type == t {
			out.Channels = append(out.Channels[:i], out.Channels[i+1:]...)
			return out
		}
	}
	return out
}

// ChannelDiff is the destination-level difference between two channels of
// the same type.
type ChannelDiff struct {
	Type      ChannelType
	Additions []string
	Deletions []string
}

// DiffChannels compares two channel lists type by type. Additions are
// destinations present in new but not old; Deletions the reverse. Types
// with no destination change produce no entry.
func DiffChannels(old, new []Channel) []ChannelDiff {
	byType := func(cs []Channel) map[ChannelType][]string {
		m := make(map[ChannelType][]string, len(cs))
		for _, c := range cs {
			m[c.Type] = c.Destinations
		}
		return m
	}
	oldM, newM := byType(old), byType(new)

	var diffs []ChannelDiff
	for _, t := range ChannelTypes {
		o, inOld := oldM[t]
		n, inNew := newM[t]
		if !inOld && !inNew {
			continue
		}
		d := ChannelDiff{
			Type:      t,
			Additions: subtract(n, o),
			Deletions: subtract(o, n),
		}
		if len(d.Additions) == 0 && len(d.Deletions) == 0 {
			continue
		}
		diffs = append(diffs, d)
	}
	return diffs
}

func subtract(a, b []string) []string {
	if len(a) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(b))
	for _, s := range b {
		seen[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := seen[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

// SecondaryContact is an additional recipient attached to a vehicle.
// Managed by an external contact flow; read-only here.
type SecondaryContact struct {
	ContactID   string `json:"contact_id"`
	UserID      string `json:"user_id"`
	VehicleID   string `json:"vehicle_id"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Locale      string `json:"locale,omitempty"`
}
