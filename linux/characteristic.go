//go:build linux

package linux

import (
	"context"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	bluetooth "github.com/bluetuith-org/bluele/api/bluetooth"
	errorkinds "github.com/bluetuith-org/bluele/api/errorkinds"
	dbh "github.com/bluetuith-org/bluele/linux/internal/dbushelper"
	"github.com/godbus/dbus/v5"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// characteristic describes a function call interface to invoke GATT characteristic related functions.
type characteristic struct {
	id   xid.ID
	d    *device
	b    *BluezSession
	path dbus.ObjectPath
	log  logrus.FieldLogger

	uuid  string
	flags bluetooth.CharacteristicFlags

	notifying bool
	sub       *subscription
	handler   bluetooth.NotifyHandler
}

func newCharacteristic(d *device, record dbh.CharacteristicRecord) *characteristic {
	return &characteristic{
		id:        xid.New(),
		d:         d,
		b:         d.b,
		path:      record.Path,
		log:       d.log.WithField("characteristic", record.UUID),
		uuid:      record.UUID,
		flags:     record.Flags,
		notifying: record.Notifying,
	}
}

// UUID returns the UUID of the characteristic.
func (c *characteristic) UUID() string {
	return c.uuid
}

// Path returns the object path of the characteristic.
func (c *characteristic) Path() string {
	return string(c.path)
}

// Flags returns the capabilities of the characteristic.
func (c *characteristic) Flags() bluetooth.CharacteristicFlags {
	return c.flags
}

// Notifying reports whether notifications are enabled.
func (c *characteristic) Notifying() bool {
	return c.notifying
}

// Read reads the characteristic value into p. It returns the number of bytes
// received, which may exceed len(p) if the value was truncated.
func (c *characteristic) Read(p []byte) (int, error) {
	value, err := c.ReadValue()
	if err != nil {
		return 0, err
	}

	copy(p, value)

	return len(value), nil
}

// ReadValue reads the complete characteristic value.
func (c *characteristic) ReadValue() ([]byte, error) {
	if err := c.require(bluetooth.CharRead, "read"); err != nil {
		return nil, err
	}

	var value []byte

	if err := c.call("ReadValue", map[string]dbus.Variant{}).Store(&value); err != nil {
		return nil, c.b.callError(err, c.path, "ReadValue", "Cannot read characteristic")
	}

	return value, nil
}

// Write writes data to the characteristic. If the characteristic only supports
// writes without response, a write command is used.
func (c *characteristic) Write(data []byte) error {
	if err := c.require(bluetooth.CharWrite|bluetooth.CharWriteWithoutResponse, "write"); err != nil {
		return err
	}

	options := map[string]dbus.Variant{}
	if !c.flags.Has(bluetooth.CharWrite) {
		options["type"] = dbus.MakeVariant("command")
	}

	if err := c.call("WriteValue", data, options).Err; err != nil {
		return c.b.callError(err, c.path, "WriteValue", "Cannot write characteristic")
	}

	return nil
}

// StartNotify enables notifications, and waits until the device reports that
// it is notifying. If notifications are already enabled, only the handler is replaced.
func (c *characteristic) StartNotify(handler bluetooth.NotifyHandler) error {
	if err := c.require(bluetooth.CharNotify|bluetooth.CharIndicate, "notify"); err != nil {
		return err
	}

	c.handler = handler
	if c.sub != nil {
		return nil
	}

	sub, err := c.b.subscribe(Match{
		Path:      c.path,
		Interface: dbh.DbusPropertiesIface,
		Member:    dbh.DbusSignalPropertiesChanged,
	}, c.handleEvent, eventPropertyChange, eventNotifyPayload)
	if err != nil {
		c.handler = nil
		return err
	}

	c.sub = sub

	if err := c.call("StartNotify").Err; err != nil {
		c.stopNotifying()
		return c.b.callError(err, c.path, "StartNotify", "Cannot start notifications")
	}

	if err := c.b.waitUntil(func() bool { return c.notifying }, c.b.cfg.NotifyTimeout); err != nil {
		c.log.WithError(err).Error("Timeout waiting for notifications to start")
		c.stopNotifying()

		return fault.Wrap(err,
			fctx.With(context.Background(),
				"error_at", "characteristic-notify-wait",
				"path", string(c.path),
			),
			ftag.With(ftag.Internal),
			fmsg.With("The characteristic did not start notifying"),
		)
	}

	c.log.Info("Notifications started")

	return nil
}

// StopNotify disables notifications.
func (c *characteristic) StopNotify() error {
	if err := c.d.check(); err != nil {
		return err
	}

	if c.sub == nil {
		return fault.Wrap(errorkinds.ErrNotifyInactive,
			fctx.With(context.Background(),
				"error_at", "characteristic-notify-stop",
				"path", string(c.path),
			),
			ftag.With(ftag.InvalidArgument),
			fmsg.With("Notifications were not started"),
		)
	}

	err := c.call("StopNotify").Err
	c.stopNotifying()

	if err != nil {
		return c.b.callError(err, c.path, "StopNotify", "Cannot stop notifications")
	}

	c.log.Info("Notifications stopped")

	return nil
}

// AcquireWrite acquires a file descriptor to write to the characteristic without
// response. The returned descriptor is owned by the caller. On error, -1 is returned.
func (c *characteristic) AcquireWrite() (int, error) {
	if err := c.require(bluetooth.CharWriteWithoutResponse, "acquire-write"); err != nil {
		return -1, err
	}

	var (
		fd  dbus.UnixFD
		mtu uint16
	)

	if err := c.call("AcquireWrite", map[string]dbus.Variant{}).Store(&fd, &mtu); err != nil {
		return -1, c.b.callError(err, c.path, "AcquireWrite", "Cannot acquire write channel")
	}

	dup, err := unix.Dup(int(fd))
	if cerr := unix.Close(int(fd)); cerr != nil {
		c.log.WithError(cerr).Debug("Cannot close received file descriptor")
	}

	if err != nil {
		return -1, fault.Wrap(err,
			fctx.With(context.Background(),
				"error_at", "characteristic-acquire-write-dup",
				"path", string(c.path),
			),
			ftag.With(ftag.Internal),
			fmsg.With("Cannot duplicate write channel"),
		)
	}

	c.log.WithField("mtu", mtu).Info("Acquired write channel")

	return dup, nil
}

// Release releases the notification subscription of the characteristic.
func (c *characteristic) Release() {
	c.stopNotifying()
	c.d.chars.Delete(c.id)
}

// handleEvent handles the property changes and notified values of the characteristic.
func (c *characteristic) handleEvent(ev event) {
	switch ev.kind {
	case eventPropertyChange:
		if err := dbh.UpdateFlags(ev.changed, map[string]*bool{"Notifying": &c.notifying}); err != nil {
			c.log.WithError(err).Warn("Cannot update characteristic state")
			dbh.PublishError(err, "Bluez event handler error",
				"error_at", "pchanged-characteristic-decode",
				"path", string(c.path),
			)
		}

	case eventNotifyPayload:
		if c.handler != nil {
			c.handler(ev.value, c)
		}
	}
}

// require checks that the characteristic has any of the provided capabilities,
// before any remote call is made.
func (c *characteristic) require(flags bluetooth.CharacteristicFlags, operation string) error {
	if err := c.d.check(); err != nil {
		return err
	}

	if c.flags.Has(flags) {
		return nil
	}

	c.log.WithFields(logrus.Fields{
		"operation": operation,
		"flags":     c.flags.String(),
	}).Error("Characteristic does not support operation")

	return fault.Wrap(errorkinds.ErrNotSupported,
		fctx.With(context.Background(),
			"error_at", "characteristic-capability",
			"path", string(c.path),
			"operation", operation,
		),
		ftag.With(ftag.InvalidArgument),
		fmsg.With("The characteristic does not support this operation"),
	)
}

func (c *characteristic) stopNotifying() {
	c.sub.Release()
	c.sub = nil
	c.handler = nil
	c.notifying = false
}

func (c *characteristic) call(method string, args ...any) *dbus.Call {
	return c.b.bus.Call(c.path, dbh.BluezGattCharIface+"."+method, args...)
}
