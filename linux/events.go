//go:build linux

package linux

import (
	"context"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	errorkinds "github.com/bluetuith-org/bluele/api/errorkinds"
	dbh "github.com/bluetuith-org/bluele/linux/internal/dbushelper"
	"github.com/godbus/dbus/v5"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

// eventKind identifies an event that is dispatched by the poll engine.
type eventKind uint8

// The different event kinds.
const (
	eventScanResult eventKind = iota + 1
	eventConnectReply
	eventPropertyChange
	eventNotifyPayload
)

var eventKindNames = map[eventKind]string{
	eventScanResult:     "scan-result",
	eventConnectReply:   "connect-reply",
	eventPropertyChange: "property-change",
	eventNotifyPayload:  "notify-payload",
}

// String returns the name of the event kind.
func (k eventKind) String() string {
	return eventKindNames[k]
}

// event holds a decoded bus message. Only the fields of its kind are set.
type event struct {
	kind eventKind
	path dbus.ObjectPath

	// eventScanResult
	object dbh.Object

	// eventConnectReply
	reply *dbus.Call

	// eventPropertyChange
	changed dbh.Properties

	// eventNotifyPayload
	value []byte
}

// message holds a raw bus message that is waiting to be dispatched.
type message struct {
	signal *dbus.Signal
	reply  *dbus.Call
}

// routeKey identifies the subscriptions that receive an event.
type routeKey struct {
	kind eventKind
	path dbus.ObjectPath
}

// subscription holds a signal match rule and the routes of its events.
type subscription struct {
	id       xid.ID
	match    Match
	kinds    []eventKind
	handler  func(ev event)
	released bool

	b *BluezSession
}

// replyHandler handles the reply of an asynchronous method call.
type replyHandler func(ev event)

// subscribe adds a match rule to the bus, and routes events of the provided
// kinds on the match path to the handler.
func (b *BluezSession) subscribe(match Match, handler func(ev event), kinds ...eventKind) (*subscription, error) {
	if err := b.bus.AddMatch(match); err != nil {
		return nil, fault.Wrap(errorkinds.ErrMethodCall,
			fctx.With(context.Background(),
				"error_at", "subscribe-addmatch",
				"path", string(match.Path),
				"member", match.Member,
				"cause", err.Error(),
			),
			ftag.With(ftag.Internal),
			fmsg.With("Cannot subscribe to signal"),
		)
	}

	sub := &subscription{
		id:      xid.New(),
		match:   match,
		kinds:   kinds,
		handler: handler,
		b:       b,
	}

	for _, kind := range kinds {
		key := routeKey{kind, match.Path}
		if b.routes[key] == nil {
			b.routes[key] = make(map[xid.ID]*subscription)
		}

		b.routes[key][sub.id] = sub
	}

	b.log.WithFields(logrus.Fields{
		"subscription": sub.id.String(),
		"path":         match.Path,
		"member":       match.Member,
	}).Debug("Subscribed")

	return sub, nil
}

// Release removes the routes and the match rule of the subscription.
// It is safe to call more than once.
func (s *subscription) Release() {
	if s == nil || s.released {
		return
	}

	s.released = true

	for _, kind := range s.kinds {
		key := routeKey{kind, s.match.Path}

		delete(s.b.routes[key], s.id)
		if len(s.b.routes[key]) == 0 {
			delete(s.b.routes, key)
		}
	}

	log := s.b.log.WithFields(logrus.Fields{
		"subscription": s.id.String(),
		"path":         s.match.Path,
	})

	if s.b.closed {
		log.Debug("Released subscription")
		return
	}

	if err := s.b.bus.RemoveMatch(s.match); err != nil {
		log.WithError(err).Warn("Cannot remove signal match")
		return
	}

	log.Debug("Released subscription")
}

// dispatch converts a raw bus message into events and routes them.
func (b *BluezSession) dispatch(msg message) {
	switch {
	case msg.signal != nil:
		b.dispatchSignal(msg.signal)

	case msg.reply != nil:
		b.dispatchReply(msg.reply)
	}
}

// dispatchSignal routes the events of a Bluez signal.
func (b *BluezSession) dispatchSignal(signal *dbus.Signal) {
	switch signal.Name {
	case dbh.DbusSignalInterfacesAddedIface:
		object, err := dbh.ParseInterfacesAdded(signal.Body)
		if err != nil {
			b.signalError(err, signal, "padded-decode")
			return
		}

		b.route(event{kind: eventScanResult, path: signal.Path, object: object})

	case dbh.DbusSignalPropertiesChangedIface:
		iface, changed, err := dbh.ParsePropertiesChanged(signal.Body)
		if err != nil {
			b.signalError(err, signal, "pchanged-decode")
			return
		}

		switch iface {
		case dbh.BluezDeviceIface:
			b.route(event{kind: eventPropertyChange, path: signal.Path, changed: changed})

		case dbh.BluezGattCharIface:
			b.route(event{kind: eventPropertyChange, path: signal.Path, changed: changed})

			value, ok, err := changed.GetBytes("Value")
			switch {
			case err != nil:
				b.signalError(err, signal, "pchanged-value-decode")

			case ok:
				b.route(event{kind: eventNotifyPayload, path: signal.Path, value: value})
			}
		}
	}
}

// dispatchReply passes an asynchronous method reply to the handler of its call.
func (b *BluezSession) dispatchReply(call *dbus.Call) {
	handler, ok := b.pending[call]
	if !ok {
		b.log.WithField("method", call.Method).Debug("Dropping reply of unknown call")
		return
	}

	delete(b.pending, call)
	handler(event{kind: eventConnectReply, path: call.Path, reply: call})
}

// route passes an event to every subscription on its kind and path.
func (b *BluezSession) route(ev event) {
	subs := b.routes[routeKey{ev.kind, ev.path}]
	if len(subs) == 0 {
		return
	}

	// Handlers may release subscriptions while the event is being routed.
	pending := make([]*subscription, 0, len(subs))
	for _, sub := range subs {
		pending = append(pending, sub)
	}

	for _, sub := range pending {
		if !sub.released {
			sub.handler(ev)
		}
	}
}

// signalError logs and publishes an error that occurred while handling a signal.
func (b *BluezSession) signalError(err error, signal *dbus.Signal, errorAt string) {
	b.log.WithError(err).WithFields(logrus.Fields{
		"signal": signal.Name,
		"path":   signal.Path,
	}).Warn("Cannot handle signal")

	dbh.PublishSignalError(err, signal,
		"Bluez event handler error",
		"error_at", errorAt,
	)
}
