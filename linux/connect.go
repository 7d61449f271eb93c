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
	"github.com/sirupsen/logrus"
)

// connectState describes the progress of a connection attempt.
type connectState int

// The different connection states.
const (
	stateNotFound connectState = iota
	stateConnectingByPath
	stateConnectingByAddress
	stateAwaitingServicesResolved
	stateConnected
	stateFailed
)

var connectStateNames = map[connectState]string{
	stateNotFound:                 "not-found",
	stateConnectingByPath:         "connecting-by-path",
	stateConnectingByAddress:      "connecting-by-address",
	stateAwaitingServicesResolved: "awaiting-services-resolved",
	stateConnected:                "connected",
	stateFailed:                   "failed",
}

// String returns the name of the connection state.
func (s connectState) String() string {
	return connectStateNames[s]
}

// Connect connects to the device with the provided address, and waits until its
// GATT services are resolved.
//
// If the device is not yet known to the adapter, it is connected by its address.
// With an unspecified address type, a public address is tried first, and a random
// address once if that fails. On failure, no device handle is returned and all its
// resources are released.
func (b *BluezSession) Connect(
	address string,
	addressType bluetooth.AddressType,
	onDisconnect bluetooth.DisconnectHandler,
) (bluetooth.Device, error) {
	if err := b.check(); err != nil {
		return nil, err
	}

	mac, err := bluetooth.ParseMAC(address)
	if err != nil {
		return nil, fault.Wrap(err,
			fctx.With(context.Background(),
				"error_at", "connect-address",
				"address", address,
			),
			ftag.With(ftag.InvalidArgument),
			fmsg.With("Invalid device address"),
		)
	}

	path, err := dbh.DevicePath(b.adapterPath, mac)
	if err != nil {
		return nil, invalidAdapterError(err, b.cfg.Adapter)
	}

	d := newDevice(b, path, mac)
	if err := d.connect(addressType); err != nil {
		return nil, err
	}

	d.onDisconnect = onDisconnect
	b.devices.Store(d.id, d)

	return d, nil
}

// connect runs the connection state machine of the device.
func (d *device) connect(addressType bluetooth.AddressType) error {
	d.setState(d.initialState())

	if d.state == stateFailed {
		return d.connectErr
	}

	sub, err := d.b.subscribe(Match{
		Path:      d.path,
		Interface: dbh.DbusPropertiesIface,
		Member:    dbh.DbusSignalPropertiesChanged,
	}, d.handlePropertyChange, eventPropertyChange)
	if err != nil {
		d.setState(stateFailed)
		return err
	}

	d.sub = sub

	switch d.state {
	case stateConnectingByPath:
		if err := d.b.bus.Call(d.path, dbh.BluezDeviceIface+".Connect").Err; err != nil {
			return d.fail(d.b.callError(err, d.path, "Connect", "Cannot connect to device"))
		}

	case stateConnectingByAddress:
		if err := d.connectByAddress(addressType); err != nil {
			return d.fail(err)
		}
	}

	d.setState(stateAwaitingServicesResolved)

	if err := d.b.waitUntil(func() bool { return d.servicesResolved }, d.b.cfg.ServicesResolvedTimeout); err != nil {
		d.log.WithError(err).Error("Timeout waiting for services to be resolved")
		d.Disconnect()
		d.setState(stateFailed)

		return fault.Wrap(err,
			fctx.With(context.Background(),
				"error_at", "connect-services-resolved",
				"path", string(d.path),
			),
			ftag.With(ftag.Internal),
			fmsg.With("Services of the device were not resolved"),
		)
	}

	d.connected = true
	d.setState(stateConnected)

	return nil
}

// initialState checks whether the device object exists and whether it is already connected.
func (d *device) initialState() connectState {
	connected, err := d.b.property(d.path, dbh.BluezDeviceIface, "Connected")
	switch {
	case dbh.IsDbusError(err, dbh.DbusErrorUnknownObject):
		return stateConnectingByAddress

	case err != nil:
		d.connectErr = d.b.callError(err, d.path, "Get(Connected)", "Cannot get device state")
		return stateFailed
	}

	if isConnected, _ := connected.Value().(bool); !isConnected {
		return stateConnectingByPath
	}

	d.log.Info("Device is already connected")
	d.connected = true

	resolved, err := d.b.property(d.path, dbh.BluezDeviceIface, "ServicesResolved")
	if err != nil {
		d.connectErr = d.b.callError(err, d.path, "Get(ServicesResolved)", "Cannot get device state")
		return stateFailed
	}

	d.servicesResolved, _ = resolved.Value().(bool)

	return stateAwaitingServicesResolved
}

// connectByAddress connects to a device that is unknown to the adapter. An unspecified
// address type is retried exactly once with the opposite type.
func (d *device) connectByAddress(addressType bluetooth.AddressType) error {
	first := addressType.Resolve()

	err := d.connectDevice(first)
	if err == nil || addressType != bluetooth.AddressUnspecified {
		return err
	}

	d.log.WithError(err).WithField("address_type", first.Opposite().String()).
		Info("Retrying connection with the other address type")

	return d.connectDevice(first.Opposite())
}

// connectDevice calls Adapter1.ConnectDevice asynchronously, and waits for its reply.
func (d *device) connectDevice(addressType bluetooth.AddressType) error {
	d.log.WithField("address_type", addressType.String()).Info("Connecting to new device")

	cell := &resultCell{}
	args := map[string]dbus.Variant{
		"Address":     dbus.MakeVariant(d.address.String()),
		"AddressType": dbus.MakeVariant(addressType.String()),
	}

	// Send errors are delivered as replies too.
	call := d.b.bus.Go(d.b.adapterPath, dbh.BluezAdapterIface+".ConnectDevice",
		d.b.cfg.ConnectTimeout, d.b.replies, args,
	)

	d.b.pending[call] = func(ev event) {
		d.completeConnect(cell, ev.reply)
	}

	if err := d.b.waitUntil(cell.completed, d.b.cfg.ConnectTimeout); err != nil {
		if cell.complete("", fault.Wrap(err,
			fctx.With(context.Background(),
				"error_at", "connect-new-wait",
				"address_type", addressType.String(),
			),
			ftag.With(ftag.Internal),
			fmsg.With("No reply from the adapter while connecting to new device"),
		)) {
			d.log.WithError(err).Error("Timeout connecting to new device")
		}
	}

	return cell.value().err
}

// completeConnect stores the result of a ConnectDevice reply in the attempt's cell.
func (d *device) completeConnect(cell *resultCell, reply *dbus.Call) {
	var path dbus.ObjectPath

	err := reply.Store(&path)
	switch {
	case err != nil:
		err = d.b.callError(err, d.b.adapterPath, "ConnectDevice", "Cannot connect to new device")

	case path != d.path:
		d.log.WithFields(logrus.Fields{
			"expected": d.path,
			"returned": path,
		}).Error("Connected device path does not match")

		err = fault.Wrap(errorkinds.ErrPathMismatch,
			fctx.With(context.Background(),
				"error_at", "connect-new-path",
				"expected", string(d.path),
				"returned", string(path),
			),
			ftag.With(ftag.Internal),
			fmsg.With("Cannot connect to new device"),
		)
	}

	if !cell.complete(path, err) {
		d.log.Debug("Dropping late ConnectDevice reply")
	}
}

// fail releases the connection resources of the device, and returns err.
func (d *device) fail(err error) error {
	d.release()
	d.setState(stateFailed)

	return err
}

func (d *device) setState(state connectState) {
	d.state = state
	d.log.WithField("state", state.String()).Debug("Connection state changed")
}
