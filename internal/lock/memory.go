package lock

import (
	"context"
	"sync"
)

// Memory is an in-process Locker for single-instance deployments.
type Memory struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func NewMemory() *Memory {
	return &Memory{held: make(map[string]chan struct{})}
}

var _ Locker = (*Memory)(nil)

// Acquire waits until the key is free, then claims it.
func (m *Memory) Acquire(ctx context.Context, key string) (func(), error) {
	for {
		m.mu.Lock()
		ch, taken := m.held[key]
		if !taken {
			done := make(chan struct{})
			m.held[key] = done
			m.mu.Unlock()
			var once sync.Once
			return func() {
				once.Do(func() {
					m.mu.Lock()
					delete(m.held, key)
					m.mu.Unlock()
					close(done)
				})
			}, nil
		}
		m.mu.Unlock()

		select {
		case <-ch:
			// Holder released; race for it again.
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
