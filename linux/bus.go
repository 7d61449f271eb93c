//go:build linux

package linux

import (
	"context"
	"time"

	dbh "github.com/bluetuith-org/bluele/linux/internal/dbushelper"
	"github.com/godbus/dbus/v5"
)

// Bus describes the connection to the Bluez daemon.
// Method names are fully qualified (for example, "org.bluez.Device1.Connect").
type Bus interface {
	// Call calls a method synchronously.
	Call(path dbus.ObjectPath, method string, args ...any) *dbus.Call

	// Go calls a method asynchronously. The completed call is sent on ch,
	// or sent with an error once the timeout expires.
	Go(path dbus.ObjectPath, method string, timeout time.Duration, ch chan *dbus.Call, args ...any) *dbus.Call

	// AddMatch subscribes the connection to the signals described by the match.
	AddMatch(match Match) error

	// RemoveMatch removes a subscription that was added with AddMatch.
	RemoveMatch(match Match) error

	// Signal registers a channel to receive all signals of the connection.
	Signal(ch chan<- *dbus.Signal)

	// RemoveSignal unregisters a channel that was registered with Signal.
	RemoveSignal(ch chan<- *dbus.Signal)

	// Close closes the connection.
	Close() error
}

// Match describes a signal match rule for the Bluez daemon.
type Match struct {
	Path      dbus.ObjectPath
	Interface string
	Member    string
}

// systemBus is a Bus on a private system bus connection.
type systemBus struct {
	conn   *dbus.Conn
	closed chan struct{}
}

// SystemBus opens a private connection to the system bus.
func SystemBus() (Bus, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, err
	}

	return &systemBus{conn: conn, closed: make(chan struct{})}, nil
}

// Call calls a method on a Bluez object.
func (s *systemBus) Call(path dbus.ObjectPath, method string, args ...any) *dbus.Call {
	return s.conn.Object(dbh.BluezBusName, path).Call(method, 0, args...)
}

// Go calls a method on a Bluez object, without waiting for its reply.
func (s *systemBus) Go(path dbus.ObjectPath, method string, timeout time.Duration, ch chan *dbus.Call, args ...any) *dbus.Call {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	done := make(chan *dbus.Call, 1)
	call := s.conn.Object(dbh.BluezBusName, path).GoWithContext(ctx, method, 0, done, args...)

	go func() {
		defer cancel()

		select {
		case reply := <-done:
			select {
			case ch <- reply:
			case <-s.closed:
			}

		case <-s.closed:
		}
	}()

	return call
}

// AddMatch adds a signal match rule for the Bluez daemon.
func (s *systemBus) AddMatch(match Match) error {
	return s.conn.AddMatchSignal(match.options()...)
}

// RemoveMatch removes a signal match rule.
func (s *systemBus) RemoveMatch(match Match) error {
	return s.conn.RemoveMatchSignal(match.options()...)
}

// Signal registers a signal channel.
func (s *systemBus) Signal(ch chan<- *dbus.Signal) {
	s.conn.Signal(ch)
}

// RemoveSignal unregisters a signal channel.
func (s *systemBus) RemoveSignal(ch chan<- *dbus.Signal) {
	s.conn.RemoveSignal(ch)
}

// Close closes the connection.
func (s *systemBus) Close() error {
	select {
	case <-s.closed:
		return nil

	default:
		close(s.closed)
	}

	return s.conn.Close()
}

func (m Match) options() []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchSender(dbh.BluezBusName),
		dbus.WithMatchObjectPath(m.Path),
		dbus.WithMatchInterface(m.Interface),
		dbus.WithMatchMember(m.Member),
	}
}
