package bounce

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fleetlink/notifier/internal/domain/bounce"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeQueue struct {
	batches  [][]bounce.Message
	deleted  []string
	ensured  int
	receives int
}

func (f *fakeQueue) Ensure(_ context.Context) error {
	f.ensured++
	return nil
}

func (f *fakeQueue) Receive(_ context.Context, _ int) ([]bounce.Message, error) {
	f.receives++
	if len(f.batches) == 0 {
		return nil, nil
	}
	b := f.batches[0]
	f.batches = f.batches[1:]
	return b, nil
}

func (f *fakeQueue) Delete(_ context.Context, m bounce.Message) error {
	f.deleted = append(f.deleted, m.ID)
	return nil
}

func newTestRunner(q bounce.Queue, c *Cache) *Runner {
	return &Runner{
		log:         zap.NewNop(),
		queue:       q,
		cache:       c,
		period:      time.Hour,
		batchSize:   10,
		mReceived:   prometheus.NewCounter(prometheus.CounterOpts{Name: "t_received"}),
		mSuppressed: prometheus.NewCounter(prometheus.CounterOpts{Name: "t_suppressed"}),
		mParseErr:   prometheus.NewCounter(prometheus.CounterOpts{Name: "t_parse_err"}),
		mDrainDur:   prometheus.NewHistogram(prometheus.HistogramOpts{Name: "t_drain"}),
	}
}

func bounceMsg(t *testing.T, id, bounceType string, addrs ...string) bounce.Message {
	t.Helper()
	recipients := make([]map[string]string, 0, len(addrs))
	for _, a := range addrs {
		recipients = append(recipients, map[string]string{"emailAddress": a})
	}
	inner, err := json.Marshal(map[string]any{
		"notificationType": "Bounce",
		"bounce": map[string]any{
			"bounceType":        bounceType,
			"bouncedRecipients": recipients,
		},
	})
	require.NoError(t, err)
	outer, err := json.Marshal(bounce.Envelope{Type: "Notification", Message: string(inner)})
	require.NoError(t, err)
	return bounce.Message{ID: id, Body: outer}
}

func TestDrain_SuppressesPermanentBounces(t *testing.T) {
	st := newFakeStore()
	cache := NewCache(CacheConfig{}, st, zap.NewNop())
	q := &fakeQueue{batches: [][]bounce.Message{
		{
			bounceMsg(t, "m1", bounce.TypePermanent, "dead@x.com"),
			bounceMsg(t, "m2", "Transient", "busy@x.com"),
		},
	}}
	r := newTestRunner(q, cache)

	r.drain(context.Background())

	require.True(t, cache.IsSuppressed(context.Background(), "dead@x.com"))
	require.False(t, cache.IsSuppressed(context.Background(), "busy@x.com"))
	require.Equal(t, []string{"m1", "m2"}, q.deleted)
	require.Equal(t, 1, q.ensured)
}

func TestDrain_PoisonMessageStillDeleted(t *testing.T) {
	st := newFakeStore()
	cache := NewCache(CacheConfig{}, st, zap.NewNop())
	q := &fakeQueue{batches: [][]bounce.Message{
		{{ID: "poison", Body: []byte("garbage")}},
	}}
	r := newTestRunner(q, cache)

	r.drain(context.Background())

	require.Equal(t, []string{"poison"}, q.deleted)
}

func TestDrain_ReceivesUntilEmpty(t *testing.T) {
	st := newFakeStore()
	cache := NewCache(CacheConfig{}, st, zap.NewNop())
	q := &fakeQueue{batches: [][]bounce.Message{
		{bounceMsg(t, "m1", bounce.TypePermanent, "a@x.com")},
		{bounceMsg(t, "m2", bounce.TypePermanent, "b@x.com")},
	}}
	r := newTestRunner(q, cache)

	r.drain(context.Background())

	require.Len(t, q.deleted, 2)
	require.Equal(t, 3, q.receives) // two batches plus the empty read
}
