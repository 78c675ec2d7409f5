package event

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Bus is a synchronous, type-keyed publish/subscribe bus. Publish calls
// every handler of the event's type in registration order before returning,
// so dispatch order is reproducible given the same registration and emission
// order.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	handlers map[reflect.Type][]handler
	nextID   uint64
	log      *zap.Logger
}

type handler struct {
	id uint64
	fn any
}

// Subscription identifies one registered handler.
type Subscription struct {
	typ reflect.Type
	id  uint64
}

func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		handlers: make(map[reflect.Type][]handler),
		log:      log,
	}
}

func typeOf[T any]() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := typeOf[T]()
	b.nextID++
	b.handlers[t] = append(b.handlers[t], handler{id: b.nextID, fn: fn})
	return Subscription{typ: t, id: b.nextID}
}

// Unsubscribe removes a handler. Unknown subscriptions are ignored.
func (b *Bus) Unsubscribe(s Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	hs := b.handlers[s.typ]
	for i, h := range hs {
		if h.id == s.id {
			b.handlers[s.typ] = slices.Delete(slices.Clone(hs), i, i+1)
			return
		}
	}
}

// Publish delivers ev to every handler registered for T. Handlers added or
// removed while dispatching take effect from the next Publish. A panicking
// handler is logged and skipped; the remaining handlers still run.
func Publish[T any](b *Bus, ev T) {
	b.mu.Lock()
	hs := b.handlers[typeOf[T]()]
	b.mu.Unlock()
	for _, h := range hs {
		fn := h.fn.(func(T))
		b.guard(ev, func() { fn(ev) })
	}
}

func (b *Bus) guard(ev any, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panic",
				zap.String("event", fmt.Sprintf("%T", ev)),
				zap.Any("panic", r),
			)
		}
	}()
	fn()
}

// Handlers reports how many handlers are registered for T.
func Handlers[T any](b *Bus) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[typeOf[T]()])
}
