// Package event carries typed notifications between systems with a one-tick
// delay. Producers emit during tick N; subscribers see the batch during tick
// N+1, after EventDispatchSystem rotates the buffers. The delay keeps systems
// order-independent within a tick.
package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event queue keyed by event type. Emit and the
// buffer rotation run on the game-loop goroutine and take no lock; only
// handler registration is guarded, since subscribers attach during startup
// from main.
type Bus struct {
	mu       sync.Mutex // guards handlers
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	handlers map[reflect.Type][]any
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]any),
	}
}

// Emit queues an event for delivery on the next tick.
func Emit[T any](b *Bus, ev T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.back[t] = append(b.back[t], ev)
}

// Subscribe registers fn for every future event of type T. Subscribers run
// on the game-loop goroutine and must not block.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], fn)
}

// SwapBuffers rotates back to front and empties the new back buffer. Called
// once per tick before DispatchAll.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
}

// DispatchAll hands every front-buffer event to its type's handlers, in
// emit order per type.
func (b *Bus) DispatchAll() {
	for t, events := range b.front {
		handlers := b.handlers[t]
		if len(handlers) == 0 {
			continue
		}
		for _, ev := range events {
			for _, h := range handlers {
				reflect.ValueOf(h).Call([]reflect.Value{reflect.ValueOf(ev)})
			}
		}
	}
}

// Pending reports how many events are waiting in the back buffer.
func (b *Bus) Pending() int {
	n := 0
	for _, evs := range b.back {
		n += len(evs)
	}
	return n
}
