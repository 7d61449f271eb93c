//go:build linux

package dbushelper

import (
	"context"
	"errors"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	bluetooth "github.com/bluetuith-org/bluele/api/bluetooth"
	errorkinds "github.com/bluetuith-org/bluele/api/errorkinds"
	"github.com/godbus/dbus/v5"
)

// PublishSignalError publishes an error message with DBus signal data to the error event stream.
func PublishSignalError(err error, signal *dbus.Signal, message string, metadata ...string) {
	bluetooth.ErrorEvents().PublishAdded(wrapSignalErrors(err, signal, message, metadata...))
}

// PublishError publishes an error to the error event stream.
func PublishError(err error, message string, metadata ...string) {
	bluetooth.ErrorEvents().PublishAdded(errorkinds.GenericError{
		Errors: fault.Wrap(err,
			fctx.With(context.Background(), metadata...),
			ftag.With(ftag.Internal),
			fmsg.With(message),
		),
	})
}

// IsDbusError reports whether err is a DBus error reply with the provided error name.
func IsDbusError(err error, name string) bool {
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) {
		return dbusErr.Name == name
	}

	var dbusErrPtr *dbus.Error
	if errors.As(err, &dbusErrPtr) && dbusErrPtr != nil {
		return dbusErrPtr.Name == name
	}

	return false
}

// WrapCallError wraps an error returned by a method call on the provided object path.
// An UnknownMethod error reply is mapped to errorkinds.ErrNotSupported, and an
// expired call to errorkinds.ErrMethodTimeout.
func WrapCallError(err error, path dbus.ObjectPath, method, message string) error {
	cause := errorkinds.ErrMethodCall
	tag := ftag.Internal

	switch {
	case errors.Is(err, errorkinds.ErrMethodTimeout), errors.Is(err, context.DeadlineExceeded):
		cause = errorkinds.ErrMethodTimeout

	case IsDbusError(err, DbusErrorUnknownMethod):
		cause = errorkinds.ErrNotSupported
		tag = ftag.InvalidArgument

	case IsDbusError(err, DbusErrorUnknownObject):
		tag = ftag.NotFound
	}

	return fault.Wrap(cause,
		fctx.With(context.Background(),
			"error_at", "method-call",
			"path", string(path),
			"method", method,
			"cause", err.Error(),
		),
		ftag.With(tag),
		fmsg.With(message),
	)
}

// wrapSignalErrors returns a GenericError after wrapping the provided error and signal related data.
func wrapSignalErrors(err error, signal *dbus.Signal, message string, metadata ...string) errorkinds.GenericError {
	md := append([]string{"signal-name", signal.Name, "signal-path", string(signal.Path)}, metadata...)

	return errorkinds.GenericError{
		Errors: fault.Wrap(err,
			fctx.With(context.Background(), md...),
			ftag.With(ftag.Internal),
			fmsg.With(message),
		),
	}
}
