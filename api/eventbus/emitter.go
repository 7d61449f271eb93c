// Package eventbus publishes session events to interested observers.
// It is a side channel: publishing never blocks, and events are dropped
// when no subscriber keeps up.
package eventbus

import (
	"sync"

	"github.com/cskr/pubsub/v2"
)

// defaultCapacity is the buffer size of each subscriber channel.
const defaultCapacity = 16

var bus = struct {
	ps      *pubsub.PubSub[uint, any]
	enabled bool

	mu sync.RWMutex
}{
	ps:      pubsub.New[uint, any](defaultCapacity),
	enabled: true,
}

// SetEnabled enables or disables the delivery of events. While disabled,
// published events are dropped and new subscriptions are returned closed.
func SetEnabled(enabled bool) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.enabled = enabled
}

// Publish publishes an event to the event stream without blocking.
func Publish(id EventID, data any) {
	if id == nil {
		return
	}

	bus.mu.RLock()
	defer bus.mu.RUnlock()

	if bus.enabled {
		bus.ps.TryPub(data, id.Value())
	}
}

// Subscribe subscribes to an event from the event stream.
func Subscribe(id EventID) SubscriberID {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	if id == nil || !bus.enabled {
		ch := make(chan any)
		close(ch)

		return SubscriberID{C: ch}
	}

	topic := id.Value()
	ch := bus.ps.Sub(topic)

	return SubscriberID{
		C:      ch,
		active: true,
		unsub: func() {
			go bus.ps.Unsub(ch, topic)
		},
	}
}
