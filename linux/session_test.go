//go:build linux

package linux

import (
	"testing"

	bluetooth "github.com/bluetuith-org/bluele/api/bluetooth"
	errorkinds "github.com/bluetuith-org/bluele/api/errorkinds"
	dbh "github.com/bluetuith-org/bluele/linux/internal/dbushelper"
	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type SessionTestSuite struct {
	suite.Suite

	bus  *fakeBus
	hook *test.Hook
	b    *BluezSession
}

func TestSessionTestSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}

func (s *SessionTestSuite) SetupTest() {
	cfg, hook := testConfig()

	s.bus = newFakeBus()
	s.hook = hook

	b, err := newSession(s.bus, cfg)
	s.Require().NoError(err)

	s.b = b
}

func (s *SessionTestSuite) TearDownTest() {
	s.Require().NoError(s.b.Close())
}

func (s *SessionTestSuite) TestPowerOn() {
	calls := s.bus.callsTo(dbh.DbusSetPropertiesIface)
	s.Require().Len(calls, 1)

	s.Equal(testAdapterPath, calls[0].path)
	s.Equal([]any{dbh.BluezAdapterIface, "Powered", dbus.MakeVariant(true)}, calls[0].args)
	s.NotNil(s.bus.signals)
}

func (s *SessionTestSuite) TestKnownDevices() {
	s.bus.handle(dbh.DbusGetManagedObjectsCall, reply(managedObjects(
		deviceEntry(testDevicePath, testAddress, "sensor"),
		deviceEntry("/org/bluez/hci0/dev_11_22_33_44_55_66", "11:22:33:44:55:66", "lamp"),
		deviceEntry("/org/bluez/hci1/dev_00_11_22_33_44_55", "00:11:22:33:44:55", "elsewhere"),
	)))

	var names []string

	err := s.b.KnownDevices(func(device bluetooth.DeviceData) {
		names = append(names, device.Name)
	})
	s.Require().NoError(err)

	s.Equal([]string{"lamp", "sensor"}, names)
}

func (s *SessionTestSuite) TestScan() {
	s.bus.handle(dbh.BluezAdapterIface+".StartDiscovery", reply())
	s.bus.handle(dbh.BluezAdapterIface+".StopDiscovery", reply())

	var found []bluetooth.DeviceData

	s.Require().NoError(s.b.StartScan(func(device bluetooth.DeviceData) {
		found = append(found, device)
	}))

	s.Require().Len(s.bus.matches, 1)
	s.Equal(Match{
		Path:      dbh.BluezRootPath,
		Interface: dbh.DbusObjectManagerIface,
		Member:    dbh.DbusSignalInterfacesAdded,
	}, s.bus.matches[0])

	s.bus.emit(interfacesAdded(testDevicePath, testAddress, "sensor"))
	s.bus.emit(interfacesAdded(testDevicePath+"/service000a", "", ""))

	s.Require().NoError(s.b.DriveLoop(0))
	s.Require().NoError(s.b.DriveLoop(0))

	s.Require().Len(found, 1)
	s.Equal(testAddress, found[0].Address.String())

	s.Require().NoError(s.b.StopScan())
	s.Zero(s.bus.activeMatches())
	s.Nil(s.b.scanHandler)

	s.bus.emit(interfacesAdded("/org/bluez/hci0/dev_11_22_33_44_55_66", "11:22:33:44:55:66", "late"))
	s.Require().NoError(s.b.DriveLoop(0))
	s.Len(found, 1)
}

func (s *SessionTestSuite) TestScanStartFailure() {
	s.bus.handle(dbh.BluezAdapterIface+".StartDiscovery", replyError("org.bluez.Error.NotReady"))

	err := s.b.StartScan(func(bluetooth.DeviceData) {})
	s.Require().ErrorIs(err, errorkinds.ErrMethodCall)

	s.Zero(s.bus.activeMatches())
	s.Nil(s.b.scan)
	s.Empty(s.b.routes)
}

func (s *SessionTestSuite) TestCloseIsIdempotent() {
	s.Require().NoError(s.b.Close())
	s.Require().NoError(s.b.Close())

	s.Equal(1, s.bus.closed)
	s.Nil(s.bus.signals)

	s.ErrorIs(s.b.DriveLoop(0), errorkinds.ErrSessionClosed)
	s.ErrorIs(s.b.KnownDevices(nil), errorkinds.ErrSessionClosed)

	_, err := s.b.Connect(testAddress, bluetooth.AddressUnspecified, nil)
	s.ErrorIs(err, errorkinds.ErrSessionClosed)
}

func TestNewSession_AdapterNotFound(t *testing.T) {
	cfg, _ := testConfig()
	cfg.Adapter = "hci7"

	bus := newFakeBus()
	bus.handle(dbh.DbusSetPropertiesIface, replyError(dbh.DbusErrorUnknownObject))

	_, err := newSession(bus, cfg)
	require.ErrorIs(t, err, errorkinds.ErrAdapterNotFound)
	assert.Equal(t, 1, bus.closed, "the bus must be released")
	assert.Equal(t, dbus.ObjectPath("/org/bluez/hci7"), bus.calls[0].path)
}

func TestNewSession_InvalidAdapter(t *testing.T) {
	cfg, _ := testConfig()
	cfg.Adapter = "hci0/../hci1"

	bus := newFakeBus()

	_, err := newSession(bus, cfg)
	require.ErrorIs(t, err, errorkinds.ErrInvalidAdapter)
	assert.Empty(t, bus.calls)
	assert.Equal(t, 1, bus.closed)
}

func managedObjects(entries ...map[dbus.ObjectPath]map[string]map[string]dbus.Variant) map[dbus.ObjectPath]map[string]map[string]dbus.Variant {
	objects := make(map[dbus.ObjectPath]map[string]map[string]dbus.Variant)
	for _, entry := range entries {
		for path, interfaces := range entry {
			objects[path] = interfaces
		}
	}

	return objects
}

func deviceEntry(path dbus.ObjectPath, address, name string) map[dbus.ObjectPath]map[string]map[string]dbus.Variant {
	return map[dbus.ObjectPath]map[string]map[string]dbus.Variant{
		path: {
			dbh.BluezDeviceIface: {
				"Address": dbus.MakeVariant(address),
				"Name":    dbus.MakeVariant(name),
			},
		},
	}
}

func charEntry(path dbus.ObjectPath, uuid string, flags ...string) map[dbus.ObjectPath]map[string]map[string]dbus.Variant {
	return map[dbus.ObjectPath]map[string]map[string]dbus.Variant{
		path: {
			dbh.BluezGattCharIface: {
				"UUID":      dbus.MakeVariant(uuid),
				"Flags":     dbus.MakeVariant(flags),
				"Notifying": dbus.MakeVariant(false),
			},
		},
	}
}

func interfacesAdded(path dbus.ObjectPath, address, name string) *dbus.Signal {
	interfaces := map[string]map[string]dbus.Variant{
		dbh.BluezGattServiceIface: {"UUID": dbus.MakeVariant("0000180f-0000-1000-8000-00805f9b34fb")},
	}

	if address != "" {
		interfaces = map[string]map[string]dbus.Variant{
			dbh.BluezDeviceIface: {
				"Address": dbus.MakeVariant(address),
				"Name":    dbus.MakeVariant(name),
			},
		}
	}

	return &dbus.Signal{
		Path: dbh.BluezRootPath,
		Name: dbh.DbusSignalInterfacesAddedIface,
		Body: []any{path, interfaces},
	}
}
