//go:build linux

package linux

import (
	"testing"
	"time"

	errorkinds "github.com/bluetuith-org/bluele/api/errorkinds"
	dbh "github.com/bluetuith-org/bluele/linux/internal/dbushelper"
	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) (*BluezSession, *fakeBus) {
	t.Helper()

	cfg, _ := testConfig()
	bus := newFakeBus()

	b, err := newSession(bus, cfg)
	require.NoError(t, err)

	t.Cleanup(func() { _ = b.Close() })

	return b, bus
}

func TestWaitUntil_AlreadyTrue(t *testing.T) {
	b, bus := newTestSession(t)

	// A queued message must not be consumed.
	bus.emitProperties(testDevicePath, dbh.BluezDeviceIface, map[string]dbus.Variant{
		"Connected": dbus.MakeVariant(true),
	})

	start := time.Now()
	require.NoError(t, b.waitUntil(func() bool { return true }, time.Hour))

	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.Len(t, b.signals, 1)
}

func TestWaitUntil_Timeout(t *testing.T) {
	b, _ := newTestSession(t)

	const timeout = 100 * time.Millisecond

	start := time.Now()
	err := b.waitUntil(func() bool { return false }, timeout)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, errorkinds.ErrMethodTimeout)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+500*time.Millisecond)
}

func TestWaitUntil_TimeoutWithTraffic(t *testing.T) {
	b, bus := newTestSession(t)

	for range 10 {
		bus.emitProperties("/org/bluez/hci0/dev_11_22_33_44_55_66", dbh.BluezDeviceIface, map[string]dbus.Variant{
			"RSSI": dbus.MakeVariant(int16(-50)),
		})
	}

	const timeout = 50 * time.Millisecond

	start := time.Now()
	err := b.waitUntil(func() bool { return false }, timeout)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, errorkinds.ErrMethodTimeout)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+500*time.Millisecond)
	assert.Empty(t, b.signals, "queued messages must be dispatched while waiting")
}

func TestWaitUntil_ConditionFromHandler(t *testing.T) {
	b, bus := newTestSession(t)

	var resolved bool

	sub, err := b.subscribe(Match{Path: testDevicePath}, func(ev event) {
		_ = dbh.UpdateFlags(ev.changed, map[string]*bool{"ServicesResolved": &resolved})
	}, eventPropertyChange)
	require.NoError(t, err)
	defer sub.Release()

	bus.emitProperties(testDevicePath, dbh.BluezDeviceIface, map[string]dbus.Variant{
		"Connected": dbus.MakeVariant(true),
	})
	bus.emitProperties(testDevicePath, dbh.BluezDeviceIface, map[string]dbus.Variant{
		"ServicesResolved": dbus.MakeVariant(true),
	})

	require.NoError(t, b.waitUntil(func() bool { return resolved }, time.Second))
	assert.True(t, resolved)
}

func TestWait_ParksMessage(t *testing.T) {
	b, bus := newTestSession(t)

	var received int

	sub, err := b.subscribe(Match{Path: testDevicePath}, func(event) { received++ }, eventPropertyChange)
	require.NoError(t, err)
	defer sub.Release()

	bus.emitProperties(testDevicePath, dbh.BluezDeviceIface, map[string]dbus.Variant{
		"Connected": dbus.MakeVariant(true),
	})

	b.wait(time.Second)
	assert.Zero(t, received, "wait must not dispatch")
	require.NotNil(t, b.parked)

	assert.True(t, b.process())
	assert.Equal(t, 1, received)
	assert.False(t, b.process())
}

func TestDriveLoop_WaitsForMessage(t *testing.T) {
	b, _ := newTestSession(t)

	start := time.Now()
	require.NoError(t, b.DriveLoop(30*time.Millisecond))

	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestSubscriptionRelease(t *testing.T) {
	b, bus := newTestSession(t)

	var received int

	sub, err := b.subscribe(Match{Path: testDevicePath + "/service000a/char000b"}, func(event) {
		received++
	}, eventPropertyChange, eventNotifyPayload)
	require.NoError(t, err)

	bus.emitProperties(testDevicePath+"/service000a/char000b", dbh.BluezGattCharIface, map[string]dbus.Variant{
		"Value": dbus.MakeVariant([]byte{0x01}),
	})
	require.NoError(t, b.DriveLoop(0))
	assert.Equal(t, 2, received, "a value change is both a property change and a payload")

	sub.Release()
	sub.Release()
	assert.Len(t, bus.removed, 1)
	assert.Empty(t, b.routes)

	bus.emitProperties(testDevicePath+"/service000a/char000b", dbh.BluezGattCharIface, map[string]dbus.Variant{
		"Value": dbus.MakeVariant([]byte{0x02}),
	})
	require.NoError(t, b.DriveLoop(0))
	assert.Equal(t, 2, received)
}

func TestDispatch_OrphanedReply(t *testing.T) {
	b, _ := newTestSession(t)

	b.replies <- &dbus.Call{Method: dbh.BluezAdapterIface + ".ConnectDevice"}

	assert.True(t, b.process())
	assert.Empty(t, b.pending)
}
