package bounce

import (
	"context"
	"time"
)

// Queue is the external bounce-notification queue: create/receive/delete
// semantics over a named queue.
type Queue interface {
	Ensure(ctx context.Context) error
	// Receive returns up to max messages; an empty slice means the queue
	// is drained.
	Receive(ctx context.Context, max int) ([]Message, error)
	Delete(ctx context.Context, m Message) error
}

// Store is the authoritative bounced-address record with expiry, used to
// confirm probabilistic-filter hits.
type Store interface {
	Add(ctx context.Context, address string, ttl time.Duration) error
	Contains(ctx context.Context, address string) (bool, error)
	// Scan lists every currently suppressed address.
	Scan(ctx context.Context) ([]string, error)
}

// Suppressor is the membership test the email path consults before send.
type Suppressor interface {
	IsSuppressed(ctx context.Context, address string) bool
}
