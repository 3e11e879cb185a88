package events

import (
	"fmt"
	"testing"
	"time"

	"mcphub/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(ch <-chan api.Event) []api.Event {
	var out []api.Event
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestPublishSubscribe(t *testing.T) {
	bus := New()
	defer bus.Shutdown()

	_, ch := bus.Subscribe(nil)

	bus.Publish(api.EventSystemAlert, api.SystemAlertEvent{Severity: "info", Message: "one"})
	bus.Publish(api.EventActivity, "two")

	got := drain(ch)
	require.Len(t, got, 2)
	assert.Equal(t, api.EventSystemAlert, got[0].Type)
	assert.Equal(t, api.EventActivity, got[1].Type)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestSubscribeFilter(t *testing.T) {
	bus := New()
	defer bus.Shutdown()

	_, ch := bus.Subscribe([]api.EventType{api.EventToolExecution})

	bus.Publish(api.EventSystemAlert, "noise")
	bus.Publish(api.EventToolExecution, api.ToolExecutionEvent{ToolName: "add", Success: true})
	bus.Publish(api.EventSystemAlert, "noise")

	got := drain(ch)
	require.Len(t, got, 1)
	assert.Equal(t, api.EventToolExecution, got[0].Type)
}

func TestReplayOnSubscribe(t *testing.T) {
	bus := New()
	defer bus.Shutdown()

	// 3 matching and 5 non-matching events before subscribing.
	for i := 0; i < 3; i++ {
		bus.Publish(api.EventToolExecution, api.ToolExecutionEvent{ToolName: fmt.Sprintf("t%d", i)})
	}
	for i := 0; i < 5; i++ {
		bus.Publish(api.EventSystemAlert, "noise")
	}

	_, ch := bus.Subscribe([]api.EventType{api.EventToolExecution})
	got := drain(ch)
	require.Len(t, got, 3, "exactly the matching history is replayed")
	for i, e := range got {
		assert.Equal(t, api.EventToolExecution, e.Type)
		assert.Equal(t, fmt.Sprintf("t%d", i), e.Data.(api.ToolExecutionEvent).ToolName, "replay preserves publish order")
	}
}

func TestReplayCappedAtTen(t *testing.T) {
	bus := New()
	defer bus.Shutdown()

	for i := 0; i < 25; i++ {
		bus.Publish(api.EventActivity, i)
	}

	_, ch := bus.Subscribe(nil)
	got := drain(ch)
	require.Len(t, got, ReplayOnSubscribe)
	// The ten most recent, oldest first.
	assert.Equal(t, 15, got[0].Data)
	assert.Equal(t, 24, got[len(got)-1].Data)
}

func TestRingBounded(t *testing.T) {
	bus := New()
	defer bus.Shutdown()

	for i := 0; i < ReplayBufferSize+20; i++ {
		bus.Publish(api.EventActivity, i)
	}

	bus.mu.Lock()
	ringLen := len(bus.ring)
	oldest := bus.ring[0].Data
	bus.mu.Unlock()

	assert.Equal(t, ReplayBufferSize, ringLen)
	assert.Equal(t, 20, oldest, "oldest events dropped on overflow")
}

func TestSlowSubscriberEvicted(t *testing.T) {
	bus := New()
	defer bus.Shutdown()

	_, ch := bus.Subscribe(nil)

	// Fill the outbound queue past capacity without draining.
	for i := 0; i < subscriberBufferSize+1; i++ {
		bus.Publish(api.EventActivity, i)
	}

	assert.Equal(t, 0, bus.SubscriberCount(), "slow subscriber is evicted, not blocked")

	// The channel was closed on eviction; draining terminates.
	got := drain(ch)
	assert.Len(t, got, subscriberBufferSize)
	_, open := <-ch
	assert.False(t, open)
}

func TestPingBypassesFilterAndEvictsIdle(t *testing.T) {
	bus := New()
	defer bus.Shutdown()

	now := time.Now()
	bus.clock = func() time.Time { return now }

	_, ch := bus.Subscribe([]api.EventType{api.EventToolExecution})

	bus.pingSubscribers()
	got := drain(ch)
	require.Len(t, got, 1)
	assert.Equal(t, api.EventPing, got[0].Type, "ping reaches subscribers regardless of filter")

	// Stop draining and advance past the idle timeout: the queue fills
	// with pings, writes start failing and the subscriber idles out.
	for i := 0; i < subscriberBufferSize; i++ {
		bus.pingSubscribers()
	}
	now = now.Add(IdleTimeout + time.Second)
	bus.pingSubscribers()

	assert.Equal(t, 0, bus.SubscriberCount(), "idle subscriber evicted after 60s without a successful write")
}

func TestUnsubscribe(t *testing.T) {
	bus := New()
	defer bus.Shutdown()

	id, ch := bus.Subscribe(nil)
	bus.Unsubscribe(id)

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, bus.SubscriberCount())

	// Unsubscribing twice is harmless.
	bus.Unsubscribe(id)
}

func TestShutdownClosesSubscribers(t *testing.T) {
	bus := New()
	bus.Start()

	_, ch1 := bus.Subscribe(nil)
	_, ch2 := bus.Subscribe([]api.EventType{api.EventPing})

	bus.Shutdown()

	for _, ch := range []<-chan api.Event{ch1, ch2} {
		drain(ch)
		_, open := <-ch
		assert.False(t, open)
	}
	assert.Equal(t, 0, bus.SubscriberCount())

	// Shutdown is idempotent.
	bus.Shutdown()
}
