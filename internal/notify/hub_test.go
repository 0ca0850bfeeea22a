package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHub_PushReachesSubscribedSession(t *testing.T) {
	hub := NewHub()

	events, cancel := hub.Subscribe(7)
	defer cancel()

	hub.PushToVendorSession(7, Event{Type: "low_stock"})

	got := <-events
	assert.Equal(t, "low_stock", got.Type)
	assert.False(t, got.At.IsZero(), "hub stamps missing timestamps")
}

func TestHub_PushToVendorWithoutSessionIsNoop(t *testing.T) {
	hub := NewHub()

	// Must not block or panic.
	hub.PushToVendorSession(99, Event{Type: "low_stock"})
}

func TestHub_EachSessionGetsTheEvent(t *testing.T) {
	hub := NewHub()

	first, cancelFirst := hub.Subscribe(7)
	defer cancelFirst()
	second, cancelSecond := hub.Subscribe(7)
	defer cancelSecond()

	hub.PushToVendorSession(7, Event{Type: "low_stock"})

	assert.Equal(t, "low_stock", (<-first).Type)
	assert.Equal(t, "low_stock", (<-second).Type)
}

func TestHub_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub()

	events, cancel := hub.Subscribe(7)
	defer cancel()

	// Overfill the session buffer; the extras are dropped silently.
	for i := 0; i < sessionBuffer+5; i++ {
		hub.PushToVendorSession(7, Event{Type: "low_stock"})
	}

	var received int
	for {
		select {
		case <-events:
			received++
		default:
			assert.Equal(t, sessionBuffer, received)
			return
		}
	}
}

func TestHub_CancelClosesChannelAndStopsDelivery(t *testing.T) {
	hub := NewHub()

	events, cancel := hub.Subscribe(7)
	cancel()

	_, open := <-events
	require.False(t, open)

	// Pushing after cancel must not panic on the closed channel.
	hub.PushToVendorSession(7, Event{Type: "low_stock"})
}
