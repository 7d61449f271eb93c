//go:build linux

package linux

import (
	"context"
	"slices"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	bluetooth "github.com/bluetuith-org/bluele/api/bluetooth"
	errorkinds "github.com/bluetuith-org/bluele/api/errorkinds"
	dbh "github.com/bluetuith-org/bluele/linux/internal/dbushelper"
	"github.com/godbus/dbus/v5"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

// device describes a function call interface to invoke device related functions.
type device struct {
	id      xid.ID
	b       *BluezSession
	path    dbus.ObjectPath
	address bluetooth.MacAddress
	log     logrus.FieldLogger

	state      connectState
	connectErr error

	connected        bool
	servicesResolved bool
	notified         bool
	released         bool

	sub          *subscription
	onDisconnect bluetooth.DisconnectHandler

	serviceUUIDs []string
	charUUIDs    []string
	chars        *xsync.MapOf[xid.ID, *characteristic]
}

func newDevice(b *BluezSession, path dbus.ObjectPath, address bluetooth.MacAddress) *device {
	id := xid.New()

	return &device{
		id:      id,
		b:       b,
		path:    path,
		address: address,
		log: b.log.WithFields(logrus.Fields{
			"device": address.String(),
			"handle": id.String(),
		}),
		chars: xsync.NewMapOf[xid.ID, *characteristic](),
	}
}

// Address returns the Bluetooth address of the device.
func (d *device) Address() bluetooth.MacAddress {
	return d.address
}

// Path returns the object path of the device.
func (d *device) Path() string {
	return string(d.path)
}

// Connected reports whether the device is connected.
func (d *device) Connected() bool {
	return d.connected
}

// ServicesResolved reports whether the GATT services of the device are resolved.
func (d *device) ServicesResolved() bool {
	return d.servicesResolved
}

// ServiceUUIDs returns the UUIDs of the services offered by the device.
func (d *device) ServiceUUIDs() ([]string, error) {
	if err := d.check(); err != nil {
		return nil, err
	}

	if d.serviceUUIDs != nil {
		return slices.Clone(d.serviceUUIDs), nil
	}

	value, err := d.b.property(d.path, dbh.BluezDeviceIface, "UUIDs")
	if err != nil {
		return nil, d.b.callError(err, d.path, "Get(UUIDs)", "Cannot get services of device")
	}

	uuids, ok := value.Value().([]string)
	if !ok {
		return nil, fault.Wrap(errorkinds.ErrPropertyDataParse,
			fctx.With(context.Background(),
				"error_at", "device-uuids-decode",
				"path", string(d.path),
			),
			ftag.With(ftag.Internal),
			fmsg.With("Error converting services of device"),
		)
	}

	d.serviceUUIDs = uuids

	return slices.Clone(uuids), nil
}

// CharacteristicUUIDs returns the UUIDs of all GATT characteristics of the device.
func (d *device) CharacteristicUUIDs() ([]string, error) {
	if err := d.check(); err != nil {
		return nil, err
	}

	if d.charUUIDs != nil {
		return slices.Clone(d.charUUIDs), nil
	}

	tree, err := d.b.managedObjects()
	if err != nil {
		return nil, err
	}

	count, err := dbh.Walk(tree, dbh.Query{Mode: dbh.ModeCount, Root: d.path})
	if err != nil {
		return nil, d.walkError(err, "device-characteristics-count")
	}

	list, err := dbh.Walk(tree, dbh.Query{
		Mode:     dbh.ModeEnumerate,
		Root:     d.path,
		Capacity: count.Count,
	})
	if err != nil {
		return nil, d.walkError(err, "device-characteristics-list")
	}

	d.charUUIDs = list.UUIDs

	return slices.Clone(list.UUIDs), nil
}

// Characteristic looks up a GATT characteristic of the device by its UUID.
// If more than one characteristic has the UUID, the first one in path order is returned.
func (d *device) Characteristic(uuid string) (bluetooth.Characteristic, error) {
	if err := d.check(); err != nil {
		return nil, err
	}

	tree, err := d.b.managedObjects()
	if err != nil {
		return nil, err
	}

	result, err := dbh.Walk(tree, dbh.Query{
		Mode: dbh.ModeFind,
		Root: d.path,
		UUID: uuid,
	})
	if err != nil {
		return nil, d.walkError(err, "device-characteristic-find")
	}

	if !result.Found {
		d.log.WithField("uuid", uuid).Error("Cannot find characteristic")

		return nil, fault.Wrap(errorkinds.ErrCharacteristicNotFound,
			fctx.With(context.Background(),
				"error_at", "device-characteristic-find",
				"path", string(d.path),
				"uuid", uuid,
			),
			ftag.With(ftag.NotFound),
			fmsg.With("Characteristic not found"),
		)
	}

	c := newCharacteristic(d, result.Characteristic)
	d.chars.Store(c.id, c)

	d.log.WithFields(logrus.Fields{
		"uuid":  c.uuid,
		"flags": c.flags.String(),
	}).Info("Found characteristic")

	return c, nil
}

// Disconnect disconnects the device, and releases its subscription, its
// characteristics and its cached UUID lists. Remote errors are logged, but
// do not prevent the release. It is safe to call more than once.
func (d *device) Disconnect() {
	if d.b.closed {
		d.release()
		return
	}

	if err := d.b.bus.Call(d.path, dbh.BluezDeviceIface+".Disconnect").Err; err != nil {
		d.log.WithError(err).Warn("Cannot disconnect from device")
	}

	d.release()
}

// release releases the resources of the device exactly once.
func (d *device) release() {
	if d.released {
		return
	}

	d.released = true

	d.chars.Range(func(_ xid.ID, c *characteristic) bool {
		c.Release()
		return true
	})

	d.sub.Release()
	d.sub = nil

	d.connected = false
	d.serviceUUIDs = nil
	d.charUUIDs = nil

	d.b.devices.Delete(d.id)
	d.log.Debug("Released device")
}

// handlePropertyChange updates the state of the device from a property change.
func (d *device) handlePropertyChange(ev event) {
	if err := dbh.UpdateFlags(ev.changed, map[string]*bool{
		"Connected":        &d.connected,
		"ServicesResolved": &d.servicesResolved,
	}); err != nil {
		d.log.WithError(err).Warn("Cannot update device state")
		dbh.PublishError(err, "Bluez event handler error",
			"error_at", "pchanged-device-decode",
			"path", string(d.path),
		)

		return
	}

	bluetooth.DeviceEvents().PublishUpdated(bluetooth.DeviceData{
		Address:          d.address,
		Connected:        d.connected,
		ServicesResolved: d.servicesResolved,
	})

	if d.state != stateConnected || d.connected || d.notified {
		return
	}

	d.notified = true
	d.servicesResolved = false
	d.log.Info("Device disconnected")

	if d.onDisconnect != nil {
		d.onDisconnect(d)
	}
}

// check returns an error if the device or its session was released.
func (d *device) check() error {
	if err := d.b.check(); err != nil {
		return err
	}

	if d.released {
		return fault.Wrap(errorkinds.ErrDeviceNotFound,
			fctx.With(context.Background(),
				"error_at", "device-check",
				"path", string(d.path),
			),
			ftag.With(ftag.NotFound),
			fmsg.With("The device was disconnected"),
		)
	}

	return nil
}

func (d *device) walkError(err error, errorAt string) error {
	return fault.Wrap(err,
		fctx.With(context.Background(),
			"error_at", errorAt,
			"path", string(d.path),
		),
		ftag.With(ftag.Internal),
		fmsg.With("Cannot read characteristics of device"),
	)
}
