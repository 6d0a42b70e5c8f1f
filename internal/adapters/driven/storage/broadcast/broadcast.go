// Package broadcast fans a current value out to subscribers.
package broadcast

import "sync"

// Broadcaster holds a current value and notifies subscribers when it is
// published. New subscribers receive the current value immediately.
//
// Callbacks run on the publishing goroutine, in subscription order, and
// must not block or publish to the same broadcaster. Deliveries are
// serialized, so a subscriber never sees an older value after a newer one.
type Broadcaster[T any] struct {
	deliver sync.Mutex
	mu      sync.Mutex
	current T
	nextID  int
	subs    map[int]func(T)
	order   []int
}

// New creates a broadcaster holding initial.
func New[T any](initial T) *Broadcaster[T] {
	return &Broadcaster[T]{current: initial, subs: make(map[int]func(T))}
}

// Subscribe registers fn and calls it with the current value.
// The returned function unsubscribes and is safe to call more than once.
func (b *Broadcaster[T]) Subscribe(fn func(T)) func() {
	b.deliver.Lock()
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.order = append(b.order, id)
	current := b.current
	b.mu.Unlock()

	fn(current)
	b.deliver.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			for i, sid := range b.order {
				if sid == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish replaces the current value and notifies every subscriber.
func (b *Broadcaster[T]) Publish(value T) {
	b.deliver.Lock()
	defer b.deliver.Unlock()

	b.mu.Lock()
	b.current = value
	fns := make([]func(T), 0, len(b.order))
	for _, id := range b.order {
		fns = append(fns, b.subs[id])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}

// Current returns the last published value.
func (b *Broadcaster[T]) Current() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Len returns the number of subscribers.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
