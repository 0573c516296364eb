package ports

import "context"

// Sequencer serializes transitions touching the same derived addresses.
type Sequencer interface {
	// Lock blocks until every key is held by the caller or ctx is done.
	// The returned func releases all keys.
	Lock(ctx context.Context, keys ...string) (func(), error)
	Close()
}
