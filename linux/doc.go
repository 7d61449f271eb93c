//go:build linux

// Package linux implements Bluetooth LE sessions on top of the Bluez DBus API.
//
// A session owns one bus connection, and drives it only from the caller's goroutine:
// signals and asynchronous replies are queued by the bus, and dispatched one at a time
// by the poll engine whenever a blocking operation waits, or when DriveLoop is called.
package linux

import bluetooth "github.com/bluetuith-org/bluele/api/bluetooth"

var (
	_ bluetooth.Session        = (*BluezSession)(nil)
	_ bluetooth.Device         = (*device)(nil)
	_ bluetooth.Characteristic = (*characteristic)(nil)
)
