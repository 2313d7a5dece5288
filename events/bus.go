package events

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Handler is invoked with no payload when the session becomes unauthenticated.
type Handler func()

// Bus is a process-wide publish/subscribe channel for the "unauthenticated" signal.
// Handlers run synchronously, in subscription order.
type Bus struct {
	mu       sync.Mutex
	nextID   uint64
	handlers []subscription
}

type subscription struct {
	id uint64
	fn Handler
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a function that removes it.
// Calling the returned function more than once is a no-op.
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.handlers {
		if s.id == id {
			b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
			return
		}
	}
}

// Emit calls every handler subscribed at the time of the call.
// A handler that panics is logged and skipped; the remaining handlers still run.
func (b *Bus) Emit() {
	b.mu.Lock()
	snapshot := make([]subscription, len(b.handlers))
	copy(snapshot, b.handlers)
	b.mu.Unlock()

	log.Debug().Int("subscribers", len(snapshot)).Msg("Emitting unauthenticated event")
	for _, s := range snapshot {
		invoke(s)
	}
}

func invoke(s subscription) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Uint64("subscription", s.id).Msg("Unauthenticated handler panicked")
		}
	}()
	s.fn()
}
