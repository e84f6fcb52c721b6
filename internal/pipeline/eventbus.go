package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EventHandler is a function that handles lifecycle events
type EventHandler func(ctx context.Context, event *Event) error

// Publisher is the write side of the bus
type Publisher interface {
	Publish(event *Event) error
}

// Subscription represents an event subscription
type Subscription struct {
	ID         string
	EventTypes []EventType
	Handler    EventHandler
	queue      chan *Event
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// EventBus fans lifecycle events out to subscribers. Each subscription has
// its own queue and delivery goroutine, so a subscriber sees its events in
// publish order.
type EventBus struct {
	mu            sync.RWMutex
	subscriptions map[string]*Subscription
	eventBuffer   chan *Event
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	stats         EventBusStats
	statsMu       sync.Mutex
	closeOnce     sync.Once
}

// EventBusStats tracks event bus statistics
type EventBusStats struct {
	EventsPublished   int64 `json:"events_published"`
	EventsDelivered   int64 `json:"events_delivered"`
	EventsFailed      int64 `json:"events_failed"`
	EventsDropped     int64 `json:"events_dropped"`
	ActiveSubscribers int64 `json:"active_subscribers"`
	EventsInBuffer    int64 `json:"events_in_buffer"`
}

// NewEventBus creates a new event bus with a shared buffer of bufferSize events
func NewEventBus(bufferSize int) *EventBus {
	ctx, cancel := context.WithCancel(context.Background())

	eb := &EventBus{
		subscriptions: make(map[string]*Subscription),
		eventBuffer:   make(chan *Event, bufferSize),
		ctx:           ctx,
		cancel:        cancel,
	}

	// One dispatcher keeps publish order
	eb.wg.Add(1)
	go eb.dispatch()

	log.Debug().
		Int("buffer_size", bufferSize).
		Msg("Event bus started")

	return eb
}

// Publish publishes an event to all matching subscribers. It never blocks;
// when the buffer is full the event is dropped.
func (eb *EventBus) Publish(event *Event) error {
	select {
	case <-eb.ctx.Done():
		return fmt.Errorf("event bus is shutting down")
	default:
	}

	select {
	case eb.eventBuffer <- event:
		eb.statsMu.Lock()
		eb.stats.EventsPublished++
		eb.statsMu.Unlock()
		return nil
	default:
		eb.statsMu.Lock()
		eb.stats.EventsDropped++
		eb.statsMu.Unlock()
		log.Warn().
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Msg("Event dropped due to full buffer")
		return fmt.Errorf("event buffer is full")
	}
}

// Subscribe creates a new subscription for specific event types
func (eb *EventBus) Subscribe(eventTypes []EventType, handler EventHandler, bufferSize int) (*Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	if bufferSize < 1 {
		bufferSize = 1
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.ctx.Err() != nil {
		return nil, fmt.Errorf("event bus is shutting down")
	}

	ctx, cancel := context.WithCancel(eb.ctx)
	sub := &Subscription{
		ID:         "sub_" + uuid.NewString(),
		EventTypes: eventTypes,
		Handler:    handler,
		queue:      make(chan *Event, bufferSize),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	eb.subscriptions[sub.ID] = sub

	eb.wg.Add(1)
	go eb.deliver(sub)

	eb.statsMu.Lock()
	eb.stats.ActiveSubscribers++
	eb.statsMu.Unlock()

	log.Debug().
		Str("subscription_id", sub.ID).
		Interface("event_types", eventTypes).
		Int("buffer_size", bufferSize).
		Msg("New subscription created")

	return sub, nil
}

// Unsubscribe removes a subscription and waits for its delivery goroutine
func (eb *EventBus) Unsubscribe(subscriptionID string) error {
	eb.mu.Lock()
	sub, exists := eb.subscriptions[subscriptionID]
	if !exists {
		eb.mu.Unlock()
		return fmt.Errorf("subscription not found: %s", subscriptionID)
	}
	delete(eb.subscriptions, subscriptionID)
	eb.mu.Unlock()

	sub.cancel()
	<-sub.done

	eb.statsMu.Lock()
	eb.stats.ActiveSubscribers--
	eb.statsMu.Unlock()

	log.Debug().Str("subscription_id", subscriptionID).Msg("Subscription removed")
	return nil
}

// Close shuts down the event bus
func (eb *EventBus) Close() {
	eb.closeOnce.Do(func() {
		eb.mu.Lock()
		eb.cancel()
		eb.mu.Unlock()
		eb.wg.Wait()
		log.Debug().Msg("Event bus shut down")
	})
}

// GetStats returns current event bus statistics
func (eb *EventBus) GetStats() EventBusStats {
	eb.statsMu.Lock()
	defer eb.statsMu.Unlock()

	stats := eb.stats
	stats.EventsInBuffer = int64(len(eb.eventBuffer))
	return stats
}

// dispatch moves events from the shared buffer into subscriber queues
func (eb *EventBus) dispatch() {
	defer eb.wg.Done()

	for {
		select {
		case event := <-eb.eventBuffer:
			eb.route(event)
		case <-eb.ctx.Done():
			return
		}
	}
}

func (eb *EventBus) route(event *Event) {
	eb.mu.RLock()
	matching := make([]*Subscription, 0, len(eb.subscriptions))
	for _, sub := range eb.subscriptions {
		if sub.matches(event) {
			matching = append(matching, sub)
		}
	}
	eb.mu.RUnlock()

	for _, sub := range matching {
		timer := time.NewTimer(5 * time.Second)
		select {
		case sub.queue <- event:
		case <-sub.ctx.Done():
		case <-timer.C:
			eb.statsMu.Lock()
			eb.stats.EventsFailed++
			eb.statsMu.Unlock()
			log.Warn().
				Str("subscription_id", sub.ID).
				Str("event_id", event.ID).
				Msg("Event delivery timeout")
		}
		timer.Stop()
	}
}

// deliver runs a subscription's handler for each queued event
func (eb *EventBus) deliver(sub *Subscription) {
	defer eb.wg.Done()
	defer close(sub.done)

	for {
		select {
		case event := <-sub.queue:
			if err := sub.Handler(sub.ctx, event); err != nil {
				eb.statsMu.Lock()
				eb.stats.EventsFailed++
				eb.statsMu.Unlock()
				log.Error().
					Err(err).
					Str("subscription_id", sub.ID).
					Str("event_id", event.ID).
					Msg("Event handler failed")
			} else {
				eb.statsMu.Lock()
				eb.stats.EventsDelivered++
				eb.statsMu.Unlock()
			}
		case <-sub.ctx.Done():
			return
		}
	}
}

func (sub *Subscription) matches(event *Event) bool {
	if len(sub.EventTypes) == 0 {
		return true
	}
	for _, eventType := range sub.EventTypes {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
