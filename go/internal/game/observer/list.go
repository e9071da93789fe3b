// Package observer provides an ordered listener list where each
// registration gets its own unsubscribe func.
package observer

import "sync"

// List is safe for concurrent use. The zero value is ready to use.
type List[T any] struct {
	mu      sync.Mutex
	nextID  int
	entries []entry[T]
}

type entry[T any] struct {
	id int
	fn func(T)
}

// Add registers fn and returns a func that removes it.
func (l *List[T]) Add(fn func(T)) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := l.nextID
	l.entries = append(l.entries, entry[T]{id: id, fn: fn})

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, e := range l.entries {
			if e.id == id {
				l.entries = append(l.entries[:i], l.entries[i+1:]...)
				return
			}
		}
	}
}

// Emit calls every registered listener in registration order. Listeners run
// outside the list's lock and may unsubscribe themselves.
func (l *List[T]) Emit(v T) {
	l.mu.Lock()
	fns := make([]func(T), len(l.entries))
	for i, e := range l.entries {
		fns[i] = e.fn
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of registered listeners.
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
