package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClone_DoesNotAliasDestinations(t *testing.T) {
	orig := NotificationConfig{
		Group: "Geofence",
		Channels: []Channel{
			{Type: ChannelEmail, Enabled: true, Destinations: []string{"a@x.com"}},
		},
	}
	cp := orig.Clone()
	cp.Channels[0].Destinations[0] = "mutated@x.com"
	cp.Channels[0].Enabled = false

	require.Equal(t, "a@x.com", orig.Channels[0].Destinations[0])
	require.True(t, orig.Channels[0].Enabled)
}

func TestPatch_ReplacesWholesaleAndPreserves(t *testing.T) {
	base := NotificationConfig{
		Channels: []Channel{
			{Type: ChannelEmail, Enabled: true, Destinations: []string{"default@x.com"}},
			{Type: ChannelSMS, Enabled: true, Destinations: []string{"5551234"}},
		},
	}
	overlay := NotificationConfig{
		Channels: []Channel{
			{Type: ChannelEmail, Enabled: false, Destinations: nil},
		},
	}

	out := base.Patch(overlay)

	email, ok := out.Channel(ChannelEmail)
	require.True(t, ok)
	require.False(t, email.Enabled)
	require.Empty(t, email.Destinations)

	sms, ok := out.Channel(ChannelSMS)
	require.True(t, ok)
	require.True(t, sms.Enabled)
	require.Equal(t, []string{"5551234"}, sms.Destinations)
}

func TestPatch_AppendsNewTypes(t *testing.T) {
	base := NotificationConfig{
		Channels: []Channel{{Type: ChannelSMS, Enabled: true}},
	}
	overlay := NotificationConfig{
		Channels: []Channel{{Type: ChannelIVM, Enabled: true}},
	}

	out := base.Patch(overlay)
	require.Len(t, out.Channels, 2)
	_, ok := out.Channel(ChannelIVM)
	require.True(t, ok)
}

func TestWithoutChannel(t *testing.T) {
	c := NotificationConfig{
		Channels: []Channel{
			{Type: ChannelEmail, Enabled: true},
			{Type: ChannelAPIPush, Enabled: true},
		},
	}

	out := c.WithoutChannel(ChannelAPIPush)
	require.Len(t, out.Channels, 1)
	_, ok := out.Channel(ChannelAPIPush)
	require.False(t, ok)

	// absent type is a no-op
	out = out.WithoutChannel(ChannelPortal)
	require.Len(t, out.Channels, 1)
}

func TestDiffChannels(t *testing.T) {
	old := []Channel{
		{Type: ChannelEmail, Destinations: []string{"keep@x.com", "gone@x.com"}},
		{Type: ChannelSMS, Destinations: []string{"5551234"}},
	}
	updated := []Channel{
		{Type: ChannelEmail, Destinations: []string{"keep@x.com", "new@x.com"}},
		{Type: ChannelSMS, Destinations: []string{"5551234"}},
	}

	diffs := DiffChannels(old, updated)
	require.Len(t, diffs, 1)
	require.Equal(t, ChannelEmail, diffs[0].Type)
	require.Equal(t, []string{"new@x.com"}, diffs[0].Additions)
	require.Equal(t, []string{"gone@x.com"}, diffs[0].Deletions)
}

func TestDiffChannels_TypeOnlyInOneSide(t *testing.T) {
	old := []Channel{{Type: ChannelEmail, Destinations: []string{"a@x.com"}}}

	diffs := DiffChannels(old, nil)
	require.Len(t, diffs, 1)
	require.Empty(t, diffs[0].Additions)
	require.Equal(t, []string{"a@x.com"}, diffs[0].Deletions)

	diffs = DiffChannels(nil, old)
	require.Len(t, diffs, 1)
	require.Equal(t, []string{"a@x.com"}, diffs[0].Additions)
	require.Empty(t, diffs[0].Deletions)
}
