package kafka

import (
	"context"
	"encoding/json"
)

// JSONHandler decodes each message value into a fresh T before handing it
// to handle. Undecodable values surface as handler errors (logged and
// skipped by the consumer loop).
func JSONHandler[T any](handle func(ctx context.Context, key []byte, ev *T) error) Handler {
	return func(ctx context.Context, key, value []byte) error {
		ev := new(T)
		if err := json.Unmarshal(value, ev); err != nil {
			return err
		}
		return handle(ctx, key, ev)
	}
}
