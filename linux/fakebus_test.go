//go:build linux

package linux

import (
	"errors"
	"time"

	"github.com/bluetuith-org/bluele/api/config"
	dbh "github.com/bluetuith-org/bluele/linux/internal/dbushelper"
	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

const (
	testAdapterPath = dbus.ObjectPath("/org/bluez/hci0")
	testAddress     = "AA:BB:CC:DD:EE:FF"
	testDevicePath  = dbus.ObjectPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF")
)

// errNoReply makes the fake bus keep an asynchronous call unanswered.
var errNoReply = errors.New("no reply")

// fakeCall records a method call on the fake bus.
type fakeCall struct {
	path   dbus.ObjectPath
	method string
	args   []any
	async  bool
}

// fakeHandler answers a method call with a reply body or an error.
type fakeHandler func(f *fakeBus, call fakeCall) ([]any, error)

// fakeBus is a scripted Bus that records all traffic.
type fakeBus struct {
	handlers map[string]fakeHandler
	calls    []fakeCall

	matches []Match
	removed []Match
	signals chan<- *dbus.Signal

	closed int
}

func newFakeBus() *fakeBus {
	f := &fakeBus{handlers: make(map[string]fakeHandler)}
	f.handle(dbh.DbusSetPropertiesIface, reply())

	return f
}

func (f *fakeBus) Call(path dbus.ObjectPath, method string, args ...any) *dbus.Call {
	call := fakeCall{path: path, method: method, args: args}
	f.calls = append(f.calls, call)

	body, err := f.answer(call)

	return &dbus.Call{Path: path, Method: method, Args: args, Body: body, Err: err}
}

func (f *fakeBus) Go(path dbus.ObjectPath, method string, _ time.Duration, ch chan *dbus.Call, args ...any) *dbus.Call {
	call := fakeCall{path: path, method: method, args: args, async: true}
	f.calls = append(f.calls, call)

	reply := &dbus.Call{Path: path, Method: method, Args: args, Done: ch}

	body, err := f.answer(call)
	if errors.Is(err, errNoReply) {
		return reply
	}

	reply.Body, reply.Err = body, err
	ch <- reply

	return reply
}

func (f *fakeBus) AddMatch(match Match) error {
	f.matches = append(f.matches, match)
	return nil
}

func (f *fakeBus) RemoveMatch(match Match) error {
	f.removed = append(f.removed, match)
	return nil
}

func (f *fakeBus) Signal(ch chan<- *dbus.Signal) {
	f.signals = ch
}

func (f *fakeBus) RemoveSignal(chan<- *dbus.Signal) {
	f.signals = nil
}

func (f *fakeBus) Close() error {
	f.closed++
	return nil
}

// handle sets the handler of a fully qualified method.
func (f *fakeBus) handle(method string, handler fakeHandler) {
	f.handlers[method] = handler
}

// emit queues a signal, as if it was sent by Bluez.
func (f *fakeBus) emit(signal *dbus.Signal) {
	if f.signals != nil {
		f.signals <- signal
	}
}

// emitProperties queues a PropertiesChanged signal.
func (f *fakeBus) emitProperties(path dbus.ObjectPath, iface string, changed map[string]dbus.Variant) {
	f.emit(&dbus.Signal{
		Path: path,
		Name: dbh.DbusSignalPropertiesChangedIface,
		Body: []any{iface, changed, []string{}},
	})
}

// callsTo returns the recorded calls of a method.
func (f *fakeBus) callsTo(method string) []fakeCall {
	var calls []fakeCall

	for _, call := range f.calls {
		if call.method == method {
			calls = append(calls, call)
		}
	}

	return calls
}

// activeMatches returns the number of match rules that were not removed.
func (f *fakeBus) activeMatches() int {
	return len(f.matches) - len(f.removed)
}

func (f *fakeBus) answer(call fakeCall) ([]any, error) {
	handler, ok := f.handlers[call.method]
	if !ok {
		return nil, dbus.Error{Name: dbh.DbusErrorUnknownMethod, Body: []any{"Unknown method " + call.method}}
	}

	return handler(f, call)
}

// reply returns a handler that answers with the provided body.
func reply(body ...any) fakeHandler {
	return func(*fakeBus, fakeCall) ([]any, error) {
		return body, nil
	}
}

// replyError returns a handler that answers with a DBus error.
func replyError(name string) fakeHandler {
	return func(*fakeBus, fakeCall) ([]any, error) {
		return nil, dbus.Error{Name: name, Body: []any{name}}
	}
}

// noReply is a handler that never answers an asynchronous call.
func noReply(*fakeBus, fakeCall) ([]any, error) {
	return nil, errNoReply
}

// deviceProperty returns a handler for Properties.Get on Device1.
func deviceProperty(values map[string]any) fakeHandler {
	return func(_ *fakeBus, call fakeCall) ([]any, error) {
		if call.path != testDevicePath {
			return nil, dbus.Error{Name: dbh.DbusErrorUnknownObject}
		}

		value, ok := values[call.args[1].(string)]
		if !ok {
			return nil, dbus.Error{Name: "org.freedesktop.DBus.Error.InvalidArgs"}
		}

		return []any{dbus.MakeVariant(value)}, nil
	}
}

// testConfig returns a configuration with short timeouts and a test logger.
func testConfig() (config.Configuration, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	cfg := config.New()
	cfg.ConnectTimeout = 200 * time.Millisecond
	cfg.ServicesResolvedTimeout = 200 * time.Millisecond
	cfg.NotifyTimeout = 200 * time.Millisecond
	cfg.Logger = logger

	return cfg, hook
}
