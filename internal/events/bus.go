// Package events is the hub's in-process publish-subscribe fabric.
//
// Publishers append events to a bounded replay ring and the bus fans each
// event out to every subscriber whose filter matches. Delivery is
// best-effort: a subscriber that cannot keep up is evicted, never waited
// on. New subscribers receive a short replay of recent matching events
// before live delivery begins.
package events

import (
	"sync"
	"time"

	"mcphub/internal/api"
	"mcphub/pkg/logging"

	"github.com/google/uuid"
)

const (
	// ReplayBufferSize bounds the ring of recent events.
	ReplayBufferSize = 100

	// ReplayOnSubscribe is the maximum number of historical events pushed
	// to a new subscriber.
	ReplayOnSubscribe = 10

	// PingInterval is the cadence of keepalive pings to subscribers.
	PingInterval = 30 * time.Second

	// IdleTimeout evicts subscribers whose last successful write is older.
	IdleTimeout = 60 * time.Second

	// subscriberBufferSize is the per-subscriber outbound queue length.
	subscriberBufferSize = 64
)

// subscriber tracks one attached consumer.
type subscriber struct {
	id          string
	ch          chan api.Event
	types       map[api.EventType]struct{}
	connectedAt time.Time
	lastWrite   time.Time
}

// matches reports whether the subscriber wants this event type. An empty
// filter set matches everything.
func (s *subscriber) matches(t api.EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Bus is the single-process event bus.
type Bus struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber
	ring        []api.Event

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// clock is stubbed in tests.
	clock func() time.Time
}

// Compile-time interface compliance check
var _ api.EventPublisher = (*Bus)(nil)

// New creates a bus. Call Start to run the ping ticker.
func New() *Bus {
	return &Bus{
		subscribers: make(map[string]*subscriber),
		done:        make(chan struct{}),
		clock:       time.Now,
	}
}

// Start launches the background ticker that pings subscribers and evicts
// idle ones.
func (b *Bus) Start() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-b.done:
				return
			case <-ticker.C:
				b.pingSubscribers()
			}
		}
	}()
}

// Publish appends an event to the replay ring and fans it out to matching
// subscribers. Failure to enqueue evicts the subscriber immediately;
// errors never propagate back to the publisher.
func (b *Bus) Publish(eventType api.EventType, data interface{}) {
	event := api.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Data:      data,
		Timestamp: b.clock(),
	}

	b.mu.Lock()
	b.ring = append(b.ring, event)
	if len(b.ring) > ReplayBufferSize {
		b.ring = b.ring[len(b.ring)-ReplayBufferSize:]
	}

	var evicted []string
	for id, sub := range b.subscribers {
		if !sub.matches(eventType) {
			continue
		}
		select {
		case sub.ch <- event:
			sub.lastWrite = b.clock()
		default:
			evicted = append(evicted, id)
		}
	}
	for _, id := range evicted {
		b.evictLocked(id, "outbound queue full")
	}
	b.mu.Unlock()
}

// Subscribe attaches a consumer. The filter set may be empty to receive
// every event type. Up to ReplayOnSubscribe recent matching events are
// queued before live delivery starts. The returned channel is closed on
// eviction, Unsubscribe or shutdown.
func (b *Bus) Subscribe(types []api.EventType) (string, <-chan api.Event) {
	sub := &subscriber{
		id:          uuid.NewString(),
		ch:          make(chan api.Event, subscriberBufferSize),
		types:       make(map[api.EventType]struct{}, len(types)),
		connectedAt: b.clock(),
		lastWrite:   b.clock(),
	}
	for _, t := range types {
		sub.types[t] = struct{}{}
	}

	b.mu.Lock()
	// Replay the most recent matching events in publish order.
	var matching []api.Event
	for _, event := range b.ring {
		if sub.matches(event.Type) {
			matching = append(matching, event)
		}
	}
	if len(matching) > ReplayOnSubscribe {
		matching = matching[len(matching)-ReplayOnSubscribe:]
	}
	for _, event := range matching {
		sub.ch <- event
	}
	b.subscribers[sub.id] = sub
	b.mu.Unlock()

	logging.Debug("EventBus", "Subscriber %s attached (%d types, %d replayed)", sub.id, len(types), len(matching))
	return sub.id, sub.ch
}

// Unsubscribe detaches a consumer and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.ch)
	}
}

// SubscriberCount reports the number of attached consumers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Shutdown stops the ticker and closes every subscriber.
func (b *Bus) Shutdown() {
	b.stopOnce.Do(func() {
		close(b.done)
	})
	b.wg.Wait()

	b.mu.Lock()
	for id, sub := range b.subscribers {
		delete(b.subscribers, id)
		close(sub.ch)
	}
	b.mu.Unlock()
	logging.Info("EventBus", "Shut down")
}

// pingSubscribers delivers a ping to every subscriber regardless of
// filter, then evicts the ones whose last successful write is stale.
func (b *Bus) pingSubscribers() {
	ping := api.Event{
		ID:        uuid.NewString(),
		Type:      api.EventPing,
		Data:      map[string]string{"status": "alive"},
		Timestamp: b.clock(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock()
	for id, sub := range b.subscribers {
		select {
		case sub.ch <- ping:
			sub.lastWrite = now
		default:
			// Queue full; lastWrite stays stale and idle eviction below
			// reaps the subscriber once it crosses the timeout.
		}
		if now.Sub(sub.lastWrite) > IdleTimeout {
			b.evictLocked(id, "idle timeout")
		}
	}
}

// evictLocked removes a subscriber. Caller holds the bus mutex.
func (b *Bus) evictLocked(id, reason string) {
	sub, ok := b.subscribers[id]
	if !ok {
		return
	}
	delete(b.subscribers, id)
	close(sub.ch)
	logging.Debug("EventBus", "Evicted subscriber %s: %s", id, reason)
}
