package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cbruyndoncx/open-work-protocol/pkg/types"
)

func TestBrokerDeliversToSubscribers(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)
	assert.Equal(t, 1, broker.SubscriberCount())

	broker.Publish(&types.Event{Type: types.EventTaskLeased, TaskID: "t_000000000001"})

	select {
	case got := <-sub:
		assert.Equal(t, types.EventTaskLeased, got.Type)
		assert.Equal(t, "t_000000000001", got.TaskID)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBrokerDropsWhenSubscriberFull(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	// Overfill the subscriber buffer; the broker must not wedge.
	for i := 0; i < 75; i++ {
		broker.Publish(&types.Event{Type: types.EventTaskStatus})
	}

	// Give the distribution loop time to work through its queue, then
	// drain. Only what fit in the subscriber buffer should be there.
	time.Sleep(200 * time.Millisecond)
	received := 0
	for {
		select {
		case <-sub:
			received++
			continue
		default:
		}
		break
	}
	assert.Equal(t, 50, received, "overflow should be dropped, not queued")
}

func TestBrokerPublishAfterStop(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	broker.Stop()

	done := make(chan struct{})
	go func() {
		broker.Publish(&types.Event{Type: types.EventTaskStatus})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked after stop")
	}
}
