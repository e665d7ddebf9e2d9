// Package expiry carries the "session expired" notification from the
// transport layer to whoever owns the session.
//
// The bus has a single event kind and no payload. Delivery is synchronous and
// in-process: Publish returns after every handler subscribed at the time of the
// call has run, in subscription order. There is no replay for late subscribers.
package expiry

import (
	"sync"
	"sync/atomic"
)

// Handler reacts to a session-expired notification.
type Handler func()

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is a publish/subscribe channel for session expiry. The zero value is
// ready to use.
type Bus struct {
	mu        sync.RWMutex
	nextID    uint64
	subs      []subscription
	published atomic.Uint64
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers h and returns a function that removes it again.
// Calling the returned function more than once is harmless.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	if h == nil {
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish notifies every current subscriber. Handlers run on the caller's
// goroutine over a snapshot of the subscriber list, so they may subscribe or
// unsubscribe without deadlocking.
func (b *Bus) Publish() {
	b.published.Add(1)

	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler()
	}
}

// Subscribers returns the number of registered handlers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Published returns how many times Publish has been called.
func (b *Bus) Published() uint64 {
	return b.published.Load()
}
