package events_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copperline/docflow/internal/events"
)

func TestHub(t *testing.T) {
	t.Run("delivers to all subscribers", func(t *testing.T) {
		hub := events.NewHub()
		ch1, cancel1 := hub.Subscribe()
		ch2, cancel2 := hub.Subscribe()
		defer cancel1()
		defer cancel2()

		hub.Publish(events.Event{
			JobID: "job-1",
			Phase: events.PhaseReceived,
		})

		for _, ch := range []<-chan events.Event{ch1, ch2} {
			select {
			case ev := <-ch:
				assert.Equal(t, "job-1", ev.JobID)
				assert.Equal(t, events.PhaseReceived, ev.Phase)
				assert.False(t, ev.Time.IsZero())
			case <-time.After(time.Second):
				t.Fatal("event not delivered")
			}
		}
	})

	t.Run("cancel closes the channel", func(t *testing.T) {
		hub := events.NewHub()
		ch, cancel := hub.Subscribe()
		cancel()

		_, ok := <-ch
		assert.False(t, ok)

		// publishing after cancel must not panic
		hub.Publish(events.Event{Phase: events.PhaseReturned})
	})

	t.Run("cancel is idempotent", func(t *testing.T) {
		hub := events.NewHub()
		_, cancel := hub.Subscribe()
		cancel()
		assert.NotPanics(t, cancel)
	})

	t.Run("slow subscriber loses events, not liveness", func(t *testing.T) {
		hub := events.NewHub()
		ch, cancel := hub.Subscribe()
		defer cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 100; i++ {
				hub.Publish(events.Event{Phase: events.PhaseExecuted})
			}
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("publish blocked on a full subscriber")
		}

		received := 0
	drain:
		for {
			select {
			case <-ch:
				received++
			default:
				break drain
			}
		}
		require.Greater(t, received, 0)
		assert.Less(t, received, 100)
	})
}
