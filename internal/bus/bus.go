// Package bus provides the typed publish/subscribe channel every pipeline
// component communicates through. Event names are dot-namespaced strings
// ("kalshi.orderbook_update"); the wildcard "*" matches every event.
package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Wildcard subscribes a handler to every published event.
const Wildcard = "*"

// Handler processes a single published event. Handlers run concurrently and
// in isolation: one handler's failure or panic never aborts the others.
type Handler func(ctx context.Context, event string, payload any) error

// Stats holds per-event publish accounting.
type Stats struct {
	Published uint64
	Errors    uint64
}

// EventBus dispatches published events to subscribed handlers. Subscriber
// lists are copy-on-write: Subscribe replaces the slice, so an in-flight
// Publish never observes a partial list.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	stats    map[string]*Stats
	logger   *zap.Logger
}

// New creates an event bus.
func New(logger *zap.Logger) *EventBus {
	return &EventBus{
		handlers: make(map[string][]Handler),
		stats:    make(map[string]*Stats),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event name or the wildcard.
func (b *EventBus) Subscribe(event string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing := b.handlers[event]
	next := make([]Handler, len(existing), len(existing)+1)
	copy(next, existing)
	b.handlers[event] = append(next, h)
}

// Publish dispatches the payload to every handler subscribed to the event or
// the wildcard. Handlers run concurrently, each on its own goroutine, and
// panics are recovered into errors. Publish blocks until every handler
// returns and hands the collected errors back to the publisher, which is not
// expected to retry. Per event and subscriber, delivery order matches
// publish order; across events there is no ordering guarantee.
func (b *EventBus) Publish(ctx context.Context, event string, payload any) []error {
	b.mu.RLock()
	handlers := b.handlers[event]
	wildcards := b.handlers[Wildcard]
	b.mu.RUnlock()

	total := len(handlers) + len(wildcards)

	EventsPublishedTotal.WithLabelValues(event).Inc()

	if total == 0 {
		b.recordStats(event, 0)
		return nil
	}

	errCh := make(chan error, total)

	var wg sync.WaitGroup
	dispatch := func(h Handler) {
		defer wg.Done()

		start := time.Now()
		defer func() {
			HandlerDurationSeconds.Observe(time.Since(start).Seconds())
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("handler panic on %s: %v", event, r)
			}
		}()

		if err := h(ctx, event, payload); err != nil {
			errCh <- err
		}
	}

	wg.Add(total)
	for _, h := range handlers {
		go dispatch(h)
	}
	for _, h := range wildcards {
		go dispatch(h)
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
		HandlerErrorsTotal.WithLabelValues(event).Inc()
		b.logger.Warn("event-handler-error",
			zap.String("event", event),
			zap.Error(err))
	}

	b.recordStats(event, len(errs))

	return errs
}

func (b *EventBus) recordStats(event string, errCount int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.stats[event]
	if !ok {
		s = &Stats{}
		b.stats[event] = s
	}
	s.Published++
	s.Errors += uint64(errCount)
}

// Stats returns a copy of the per-event publish accounting.
func (b *EventBus) Stats() map[string]Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]Stats, len(b.stats))
	for event, s := range b.stats {
		out[event] = *s
	}

	return out
}
