package lock

import "context"

// Locker serializes work on a named resource. The intake pipeline holds a lock
// per (owner, category) slot across the registry write and the exclusivity
// enforcement so concurrent uploads cannot both see an empty slot.
type Locker interface {
	// Acquire blocks until the lock for key is held or ctx ends. The returned
	// release function must be called exactly once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}
