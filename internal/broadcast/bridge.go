// Package broadcast is the in-memory publish point between the download
// engine and whoever wants to watch it. Signals carry no payload: observers
// re-query the engine for its current state when notified.
package broadcast

import "sync"

// Observer receives state-change signals. OnStateChanged runs on the
// publishing goroutine and must not block.
type Observer interface {
	OnStateChanged()
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func()

func (f ObserverFunc) OnStateChanged() { f() }

// ID identifies a registration so it can be removed later.
type ID uint64

type registration struct {
	id       ID
	observer Observer
}

// Bridge fans a content-less signal out to registered observers in
// registration order.
type Bridge struct {
	mu     sync.RWMutex
	nextID ID
	subs   []registration
}

func New() *Bridge {
	return &Bridge{}
}

// Register adds o and returns the handle used to unregister it.
func (b *Bridge) Register(o Observer) ID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs = append(b.subs, registration{id: b.nextID, observer: o})

	return b.nextID
}

// Unregister removes the observer registered under id. Unknown ids are ignored.
func (b *Bridge) Unregister(id ID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)

			return
		}
	}
}

// Len returns the number of registered observers.
func (b *Bridge) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs)
}

// Publish signals every observer registered at the time of the call.
// Observers may register or unregister from inside OnStateChanged.
func (b *Bridge) Publish() {
	b.mu.RLock()
	subs := make([]registration, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.observer.OnStateChanged()
	}
}
