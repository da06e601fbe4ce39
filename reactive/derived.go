package reactive

import "sync"

// Derived is a read-only value recomputed from its dependencies.
//
// compute must be pure: it reads the current dependency values and returns a
// fresh result. Each recomputation runs to completion under the Derived's
// lock and re-reads its inputs, so the last published value always reflects
// the latest inputs even when dependencies change concurrently.
type Derived[T any] struct {
	mu      sync.Mutex
	compute func() T
	out     *Value[T]
	unwatch []func()
	closed  bool
}

// Derive creates a Derived that recomputes whenever any dep changes
func Derive[T any](compute func() T, deps ...Dependency) *Derived[T] {
	var zero T
	d := &Derived[T]{
		compute: compute,
		out:     NewValue(zero),
	}
	for _, dep := range deps {
		d.unwatch = append(d.unwatch, dep.Watch(d.recompute))
	}
	d.recompute()
	return d
}

func (d *Derived[T]) recompute() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.out.Set(d.compute())
}

// Get returns the last computed value
func (d *Derived[T]) Get() T {
	return d.out.Get()
}

// Subscribe registers fn to receive every recomputed value
func (d *Derived[T]) Subscribe(fn func(T)) func() {
	return d.out.Subscribe(fn)
}

// Watch registers fn to be called after every recomputation
func (d *Derived[T]) Watch(fn func()) func() {
	return d.out.Watch(fn)
}

// Close detaches the Derived from its dependencies; the last value remains
// readable
func (d *Derived[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for _, fn := range d.unwatch {
		fn()
	}
	d.unwatch = nil
}
