package bus

import (
	"context"
	"sync"
)

// InProcess fan-outs events to all active subscribers over buffered channels.
// Slow subscribers are skipped rather than blocking the publisher; consumers
// re-derive state on their next signal, so a dropped event only delays them.
type InProcess struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

func NewInProcess() *InProcess {
	return &InProcess{subs: make(map[int]chan Event)}
}

var _ Publisher = (*InProcess)(nil)

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (b *InProcess) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers without blocking.
func (b *InProcess) Publish(_ context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
	return nil
}
