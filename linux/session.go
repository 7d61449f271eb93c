//go:build linux

package linux

import (
	"context"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	bluetooth "github.com/bluetuith-org/bluele/api/bluetooth"
	"github.com/bluetuith-org/bluele/api/config"
	errorkinds "github.com/bluetuith-org/bluele/api/errorkinds"
	dbh "github.com/bluetuith-org/bluele/linux/internal/dbushelper"
	"github.com/godbus/dbus/v5"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

// signalQueueSize is the capacity of the signal and reply queues.
const signalQueueSize = 128

// BluezSession describes a Linux Bluez DBus session on a single adapter.
// It must only be used from one goroutine at a time.
type BluezSession struct {
	bus         Bus
	cfg         config.Configuration
	log         logrus.FieldLogger
	adapterPath dbus.ObjectPath

	signals chan *dbus.Signal
	replies chan *dbus.Call
	parked  *message

	routes  map[routeKey]map[xid.ID]*subscription
	pending map[*dbus.Call]replyHandler
	devices *xsync.MapOf[xid.ID, *device]

	scan        *subscription
	scanHandler bluetooth.ScanHandler

	closed bool
}

// NewSession connects to the system bus, and powers on the configured adapter.
func NewSession(cfg config.Configuration) (*BluezSession, error) {
	cfg = cfg.WithDefaults()

	if _, err := dbh.AdapterPath(cfg.Adapter); err != nil {
		return nil, invalidAdapterError(err, cfg.Adapter)
	}

	bus, err := SystemBus()
	if err != nil {
		return nil, fault.Wrap(errorkinds.ErrSessionStart,
			fctx.With(context.Background(),
				"error_at", "start-systembus",
				"cause", err.Error(),
			),
			ftag.With(ftag.Internal),
			fmsg.With("Cannot initialize system DBus"),
		)
	}

	return newSession(bus, cfg)
}

// newSession initializes a session on the provided bus.
// The bus is closed if the session cannot be started.
func newSession(bus Bus, cfg config.Configuration) (*BluezSession, error) {
	cfg = cfg.WithDefaults()

	adapterPath, err := dbh.AdapterPath(cfg.Adapter)
	if err != nil {
		_ = bus.Close()
		return nil, invalidAdapterError(err, cfg.Adapter)
	}

	b := &BluezSession{
		bus:         bus,
		cfg:         cfg,
		log:         cfg.Logger.WithField("adapter", cfg.Adapter),
		adapterPath: adapterPath,
		signals:     make(chan *dbus.Signal, signalQueueSize),
		replies:     make(chan *dbus.Call, signalQueueSize),
		routes:      make(map[routeKey]map[xid.ID]*subscription),
		pending:     make(map[*dbus.Call]replyHandler),
		devices:     xsync.NewMapOf[xid.ID, *device](),
	}

	if err := b.powerOn(); err != nil {
		_ = bus.Close()
		return nil, err
	}

	bus.Signal(b.signals)
	b.log.Info("Session started")

	return b, nil
}

// KnownDevices calls the handler for each device that is already known to the adapter.
func (b *BluezSession) KnownDevices(handler bluetooth.ScanHandler) error {
	if err := b.check(); err != nil {
		return err
	}

	tree, err := b.managedObjects()
	if err != nil {
		return err
	}

	if _, err := dbh.Walk(tree, dbh.Query{
		Mode:     dbh.ModeScan,
		Root:     b.adapterPath,
		OnDevice: handler,
	}); err != nil {
		return fault.Wrap(err,
			fctx.With(context.Background(), "error_at", "knowndevices-walk"),
			ftag.With(ftag.Internal),
			fmsg.With("Cannot enumerate known devices"),
		)
	}

	return nil
}

// StartScan starts device discovery on the adapter. Discovered devices are passed
// to the handler while the session is driven, by DriveLoop or any blocking call.
// If a scan is already active, only the handler is replaced.
func (b *BluezSession) StartScan(handler bluetooth.ScanHandler) error {
	if err := b.check(); err != nil {
		return err
	}

	b.scanHandler = handler
	if b.scan != nil {
		return nil
	}

	sub, err := b.subscribe(Match{
		Path:      dbh.BluezRootPath,
		Interface: dbh.DbusObjectManagerIface,
		Member:    dbh.DbusSignalInterfacesAdded,
	}, b.handleScanResult, eventScanResult)
	if err != nil {
		b.scanHandler = nil
		return err
	}

	if err := b.callAdapter("StartDiscovery"); err != nil {
		sub.Release()
		b.scanHandler = nil

		return b.callError(err, b.adapterPath, "StartDiscovery", "Cannot start device discovery")
	}

	b.scan = sub
	b.log.Info("Discovery started")

	return nil
}

// StopScan stops device discovery, and removes the scan handler.
func (b *BluezSession) StopScan() error {
	if err := b.check(); err != nil {
		return err
	}

	err := b.callAdapter("StopDiscovery")

	b.scan.Release()
	b.scan = nil
	b.scanHandler = nil

	if err != nil {
		return b.callError(err, b.adapterPath, "StopDiscovery", "Cannot stop device discovery")
	}

	b.log.Info("Discovery stopped")

	return nil
}

// Close stops any active scan, releases every device, and closes the bus connection.
// It is safe to call more than once.
func (b *BluezSession) Close() error {
	if b.closed {
		return nil
	}

	if b.scan != nil {
		if err := b.StopScan(); err != nil {
			b.log.WithError(err).Warn("Cannot stop discovery while closing session")
		}
	}

	b.devices.Range(func(_ xid.ID, d *device) bool {
		d.release()
		return true
	})

	b.bus.RemoveSignal(b.signals)
	b.closed = true
	b.parked = nil
	clear(b.pending)

	if err := b.bus.Close(); err != nil {
		return fault.Wrap(err,
			fctx.With(context.Background(), "error_at", "stop-systembus"),
			ftag.With(ftag.Internal),
			fmsg.With("Error while closing system bus"),
		)
	}

	b.log.Info("Session closed")

	return nil
}

// handleScanResult passes a newly added device object to the scan handler.
func (b *BluezSession) handleScanResult(ev event) {
	if b.scanHandler == nil {
		return
	}

	_, err := dbh.Walk(dbh.NewObjectTree(ev.object), dbh.Query{
		Mode: dbh.ModeScan,
		Root: b.adapterPath,
		OnDevice: func(device bluetooth.DeviceData) {
			bluetooth.DeviceEvents().PublishAdded(device)

			if b.scanHandler != nil {
				b.scanHandler(device)
			}
		},
	})
	if err != nil {
		b.log.WithError(err).WithField("path", ev.object.Path).Warn("Cannot decode discovered device")
		dbh.PublishError(err, "Bluez event handler error",
			"error_at", "scan-device-decode",
			"path", string(ev.object.Path),
		)
	}
}

// powerOn sets the adapter's Powered property.
func (b *BluezSession) powerOn() error {
	err := b.bus.Call(b.adapterPath, dbh.DbusSetPropertiesIface,
		dbh.BluezAdapterIface, "Powered", dbus.MakeVariant(true),
	).Err
	if err == nil {
		return nil
	}

	b.log.WithError(err).Error("Cannot power on adapter")

	if dbh.IsDbusError(err, dbh.DbusErrorUnknownObject) {
		return fault.Wrap(errorkinds.ErrAdapterNotFound,
			fctx.With(context.Background(),
				"error_at", "adapter-power",
				"path", string(b.adapterPath),
			),
			ftag.With(ftag.NotFound),
			fmsg.With("Adapter not found"),
		)
	}

	return fault.Wrap(errorkinds.ErrSessionStart,
		fctx.With(context.Background(),
			"error_at", "adapter-power",
			"path", string(b.adapterPath),
			"cause", err.Error(),
		),
		ftag.With(ftag.Internal),
		fmsg.With("Cannot power on adapter"),
	)
}

// managedObjects fetches the complete Bluez object tree.
func (b *BluezSession) managedObjects() (*dbh.ObjectTree, error) {
	call := b.bus.Call(dbh.BluezRootPath, dbh.DbusGetManagedObjectsCall)
	if call.Err != nil {
		return nil, b.callError(call.Err, dbh.BluezRootPath, "GetManagedObjects", "Cannot fetch Bluez objects")
	}

	tree, err := dbh.ParseManagedObjects(call.Body)
	if err != nil {
		return nil, fault.Wrap(err,
			fctx.With(context.Background(), "error_at", "managed-objects-decode"),
			ftag.With(ftag.Internal),
			fmsg.With("Error converting Bluez objects"),
		)
	}

	return tree, nil
}

// property fetches a single property of a Bluez object.
func (b *BluezSession) property(path dbus.ObjectPath, iface, name string) (dbus.Variant, error) {
	var value dbus.Variant

	err := b.bus.Call(path, dbh.DbusGetPropertiesIface, iface, name).Store(&value)

	return value, err
}

// callAdapter calls an adapter method that takes no arguments.
func (b *BluezSession) callAdapter(method string) error {
	return b.bus.Call(b.adapterPath, dbh.BluezAdapterIface+"."+method).Err
}

// callError logs a failed method call, and wraps its error.
func (b *BluezSession) callError(err error, path dbus.ObjectPath, method, message string) error {
	b.log.WithError(err).WithFields(logrus.Fields{
		"path":   path,
		"method": method,
	}).Error(message)

	return dbh.WrapCallError(err, path, method, message)
}

// check returns an error if the session is closed.
func (b *BluezSession) check() error {
	if b.closed {
		return fault.Wrap(errorkinds.ErrSessionClosed,
			fctx.With(context.Background(), "error_at", "session-check"),
			ftag.With(ftag.Internal),
			fmsg.With("The session is closed"),
		)
	}

	return nil
}

func invalidAdapterError(err error, adapter string) error {
	return fault.Wrap(err,
		fctx.With(context.Background(),
			"error_at", "adapter-path",
			"adapter", adapter,
		),
		ftag.With(ftag.InvalidArgument),
		fmsg.With("Invalid adapter name"),
	)
}
