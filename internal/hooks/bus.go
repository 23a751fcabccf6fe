// Package hooks provides the synchronous named-event bus used at the plugin
// boundary. Handlers run in registration order on the caller's goroutine and
// their non-nil results are collected.
package hooks

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Handler reacts to an event. A nil result is not collected.
type Handler func(ctx context.Context, payload any) (any, error)

// Bus dispatches named events to registered handlers.
//
// Handlers may dispatch further events; the bus holds no lock while a
// handler runs.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Register appends h to the handlers for event.
func (b *Bus) Register(event string, h Handler) error {
	if event == "" {
		return fmt.Errorf("register hook: event name cannot be empty")
	}
	if h == nil {
		return fmt.Errorf("register hook %s: nil handler", event)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], h)
	return nil
}

// Has reports whether any handler is registered for event.
func (b *Bus) Has(event string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event]) > 0
}

// Events returns the names of events with handlers, sorted.
func (b *Bus) Events() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.handlers))
	for name := range b.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Dispatch calls every handler for event and collects non-nil results.
// The first handler error stops dispatch; results gathered so far are
// returned alongside it.
func (b *Bus) Dispatch(ctx context.Context, event string, payload any) ([]any, error) {
	b.mu.RLock()
	handlers := slices.Clone(b.handlers[event])
	b.mu.RUnlock()

	var results []any
	for i, h := range handlers {
		res, err := h(ctx, payload)
		if err != nil {
			return results, fmt.Errorf("hook %s[%d]: %w", event, i, err)
		}
		if res != nil {
			results = append(results, res)
		}
	}
	return results, nil
}
