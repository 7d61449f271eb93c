package bluetooth

import (
	"github.com/bluetuith-org/bluele/api/errorkinds"
	"github.com/bluetuith-org/bluele/api/eventbus"
)

// EventID represents a unique event ID.
type EventID byte

// The different types of event IDs.
const (
	EventNone EventID = iota // The zero value for this type.
	EventError
	EventDevice
)

// EventAction describes an action that is associated with an event.
type EventAction string

// The different types of event actions.
const (
	EventActionNone    EventAction = "none"
	EventActionUpdated EventAction = "updated"
	EventActionAdded   EventAction = "added"
)

var eventNames = map[EventID]string{
	EventNone:   "",
	EventError:  "error_event",
	EventDevice: "device_event",
}

// String returns the name of the event ID.
func (e EventID) String() string {
	return eventNames[e]
}

// Value returns the event ID.
func (e EventID) Value() uint {
	return uint(e)
}

// String returns the name of the event action.
func (e EventAction) String() string {
	return string(e)
}

// NewDataEvents represents a set of events that contain complete information about an instance or event.
type NewDataEvents interface {
	errorkinds.GenericError | DeviceData
}

type emptyUpdatedDataEvent struct{}

// UpdatedDataEvents represents a set of events that contain updated information about an instance.
type UpdatedDataEvents interface {
	emptyUpdatedDataEvent | DeviceData
}

// Event represents a general event.
type Event struct {
	// ID holds the event ID.
	ID EventID `json:"event_id,omitempty" doc:"The event ID."`

	// Action holds the corresponding action associated
	// with this event.
	Action EventAction `json:"event_action,omitempty" enum:"updated,added" doc:"The corresponding action associated with this event"`

	// Data holds the actual event data.
	Data any `json:"event_data,omitempty" doc:"The actual event data."`
}

// EventGroup holds a set of events that can be added ([NewDataEvents]) or updated ([UpdatedDataEvents])
// for a particular event ID ([EventID]).
type EventGroup[N NewDataEvents, U UpdatedDataEvents] struct {
	// ID holds the event ID.
	ID EventID
}

// Subscriber describes a subscription to an event group.
type Subscriber[N NewDataEvents, U UpdatedDataEvents] struct {
	AddedEvents   chan N
	UpdatedEvents chan U
	Done          chan struct{}

	Unsubscribe eventbus.UnsubFunc
}

// PublishAdded publishes an event with the 'added' action.
func (e EventGroup[N, U]) PublishAdded(data N) {
	eventbus.Publish(e.ID, Event{e.ID, EventActionAdded, data})
}

// PublishUpdated publishes an event with the 'updated' action.
func (e EventGroup[N, U]) PublishUpdated(data U) {
	eventbus.Publish(e.ID, Event{e.ID, EventActionUpdated, data})
}

// Subscribe subscribes to an event group. The returned boolean reports whether
// the subscriber can actually receive events.
func (e EventGroup[N, U]) Subscribe() (*Subscriber[N, U], bool) {
	id := eventbus.Subscribe(e.ID)

	sub := Subscriber[N, U]{
		AddedEvents:   make(chan N, 1),
		UpdatedEvents: make(chan U, 1),
		Done:          make(chan struct{}, 1),
		Unsubscribe:   id.Unsubscribe,
	}

	if !id.IsActive() {
		close(sub.AddedEvents)
		close(sub.UpdatedEvents)

		return &sub, false
	}

	go func() {
		for data := range id.C {
			ev, ok := data.(Event)
			if !ok {
				continue
			}

			switch ev.Action {
			case EventActionAdded:
				if d, ok := ev.Data.(N); ok {
					trySend(sub.AddedEvents, d)
				}

			case EventActionUpdated:
				if d, ok := ev.Data.(U); ok {
					trySend(sub.UpdatedEvents, d)
				}
			}
		}

		trySend(sub.Done, struct{}{})

		close(sub.AddedEvents)
		close(sub.UpdatedEvents)
	}()

	return &sub, true
}

func trySend[T any](ch chan T, data T) {
	select {
	case ch <- data:
	default:
	}
}

// DeviceEvents returns an event interface to subscribe to device events.
func DeviceEvents() EventGroup[DeviceData, DeviceData] {
	return EventGroup[DeviceData, DeviceData]{ID: EventDevice}
}

// ErrorEvents returns an event interface to subscribe to error events.
func ErrorEvents() EventGroup[errorkinds.GenericError, emptyUpdatedDataEvent] {
	return EventGroup[errorkinds.GenericError, emptyUpdatedDataEvent]{ID: EventError}
}
