// Package reactive provides observable values whose dependants recompute
// synchronously whenever an upstream value changes.
package reactive

import "sync"

// Observable is a readable value that announces its changes
type Observable[T any] interface {
	Get() T
	Subscribe(fn func(T)) (unsubscribe func())
}

// Dependency is anything a derived value can recompute from
type Dependency interface {
	Watch(fn func()) (unwatch func())
}

// Value is a mutable observable cell.
//
// Writes are serialized: Set stores the new value and notifies every
// subscriber before the next write can start. Subscribers must not write to
// the Value they observe.
type Value[T any] struct {
	emitMu sync.Mutex

	mu     sync.RWMutex
	v      T
	subs   []subscriber[T]
	nextID int
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// NewValue creates a Value holding initial
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{v: initial}
}

// Get returns the current value
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.v
}

// Set replaces the current value and notifies subscribers
func (v *Value[T]) Set(x T) {
	v.emitMu.Lock()
	defer v.emitMu.Unlock()

	v.mu.Lock()
	v.v = x
	subs := v.snapshotSubs()
	v.mu.Unlock()

	for _, fn := range subs {
		fn(x)
	}
}

// Update applies fn to the current value and stores the result atomically
// with respect to other writers
func (v *Value[T]) Update(fn func(T) T) {
	v.emitMu.Lock()
	defer v.emitMu.Unlock()

	v.mu.Lock()
	x := fn(v.v)
	v.v = x
	subs := v.snapshotSubs()
	v.mu.Unlock()

	for _, sub := range subs {
		sub(x)
	}
}

// Subscribe registers fn to receive every new value
func (v *Value[T]) Subscribe(fn func(T)) func() {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subs = append(v.subs, subscriber[T]{id: id, fn: fn})
	v.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			for i, s := range v.subs {
				if s.id == id {
					v.subs = append(v.subs[:i:i], v.subs[i+1:]...)
					break
				}
			}
			v.mu.Unlock()
		})
	}
}

// Watch registers fn to be called after every change
func (v *Value[T]) Watch(fn func()) func() {
	return v.Subscribe(func(T) { fn() })
}

// snapshotSubs copies subscribers in registration order; caller holds mu
func (v *Value[T]) snapshotSubs() []func(T) {
	out := make([]func(T), len(v.subs))
	for i, s := range v.subs {
		out[i] = s.fn
	}
	return out
}
