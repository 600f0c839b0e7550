package queue

import (
	"sync"

	"github.com/oznakn/enhanced-embedded-queue/internal/core/domain"
)

// EventHandler receives lifecycle and error events. Handlers must not
// block: the bus fans out best-effort and does not model backpressure.
type EventHandler func(event domain.Event)

// EventBus is a minimal pub/sub fan-out keyed by event kind.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[domain.EventKind][]EventHandler
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[domain.EventKind][]EventHandler)}
}

// Subscribe registers handler for the given kind.
func (b *EventBus) Subscribe(kind domain.EventKind, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], handler)
}

// Publish fans event out to every handler subscribed to its kind,
// each in its own goroutine so a slow or panicking subscriber cannot
// stall the dispatch core.
func (b *EventBus) Publish(event domain.Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.handlers[event.Kind]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		go invokeSafely(h, event)
	}
}

func invokeSafely(h EventHandler, event domain.Event) {
	defer func() { _ = recover() }()
	h(event)
}
