package progress_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidscreen/internal/progress"
)

func TestBus_DeliversToTopicSubscribers(t *testing.T) {
	bus := progress.NewBus()
	sub := bus.Subscribe("user-1")
	defer bus.Unsubscribe(sub)

	bus.Publish("user-1", progress.EventProgress, progress.ProgressPayload{VideoID: "v1", Progress: 40})

	select {
	case ev := <-sub.Events():
		assert.Equal(t, progress.EventProgress, ev.Name)
		payload, ok := ev.Payload.(progress.ProgressPayload)
		require.True(t, ok)
		assert.Equal(t, 40, payload.Progress)
	case <-time.After(time.Second):
		t.Fatal("expected event")
	}
}

func TestBus_TopicIsolation(t *testing.T) {
	bus := progress.NewBus()
	mine := bus.Subscribe("user-1")
	theirs := bus.Subscribe("user-2")
	defer bus.Unsubscribe(mine)
	defer bus.Unsubscribe(theirs)

	bus.Publish("user-1", progress.EventUploaded, progress.UploadedPayload{VideoID: "v1"})

	select {
	case <-mine.Events():
	case <-time.After(time.Second):
		t.Fatal("owner should receive the event")
	}

	select {
	case ev := <-theirs.Events():
		t.Fatalf("cross-topic delivery: %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_PublishWithoutSubscriberIsLost(t *testing.T) {
	bus := progress.NewBus()

	// Nothing subscribed yet; the event is dropped, not queued.
	bus.Publish("user-1", progress.EventProgress, progress.ProgressPayload{VideoID: "v1", Progress: 10})

	sub := bus.Subscribe("user-1")
	defer bus.Unsubscribe(sub)

	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected replay: %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := progress.NewBus()
	sub := bus.Subscribe("user-1")
	defer bus.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Far more events than the subscriber buffer holds; nobody reads.
		for i := 0; i < 1000; i++ {
			bus.Publish("user-1", progress.EventProgress, progress.ProgressPayload{VideoID: "v1", Progress: i % 101})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := progress.NewBus()
	sub := bus.Subscribe("user-1")

	bus.Unsubscribe(sub)

	_, open := <-sub.Events()
	assert.False(t, open)

	// Double unsubscribe must not panic.
	bus.Unsubscribe(sub)

	bus.Publish("user-1", progress.EventProgress, progress.ProgressPayload{VideoID: "v1", Progress: 1})
}
