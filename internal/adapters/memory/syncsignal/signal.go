package syncsignal

import (
	"context"
	"sync"
)

// Bus is an in-process implementation of the sync signal: announcements fan
// out to every subscriber. The announcer is not distinguished from watchers,
// so single-process tests subscribe explicitly. Safe for concurrent use.
type Bus struct {
	mu   sync.Mutex
	subs []chan struct{}
}

func NewBus() *Bus {
	return &Bus{}
}

// Announce notifies every subscriber. Slow subscribers drop the signal
// rather than block (advisory semantics: a coalesced wake-up is enough).
func (b *Bus) Announce(ctx context.Context) {
	_ = ctx
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch invokes onChange for each announcement until ctx is canceled.
func (b *Bus) Watch(ctx context.Context, onChange func()) error {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		for i, c := range b.subs {
			if c == ch {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
			onChange()
		}
	}
}
