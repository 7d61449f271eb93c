package bluetooth

import "time"

// Session describes a Bluetooth LE session on a single adapter.
//
// All operations run on the caller's goroutine. Blocking operations pump the
// bus while they wait, so any registered handler (scan, notify, disconnect) may be
// invoked from within any blocking call, not only from DriveLoop.
type Session interface {
	// KnownDevices calls the handler for each device already known to the adapter.
	KnownDevices(handler ScanHandler) error

	// StartScan starts device discovery. Discovered devices are passed to the handler
	// while the bus is being driven.
	StartScan(handler ScanHandler) error

	// StopScan stops device discovery.
	StopScan() error

	// Connect connects to the device with the provided address, and waits
	// until its GATT services are resolved.
	Connect(address string, addressType AddressType, onDisconnect DisconnectHandler) (Device, error)

	// DriveLoop processes pending bus messages, waiting at most timeout
	// for one to arrive.
	DriveLoop(timeout time.Duration) error

	// Close stops the session and releases the bus connection.
	Close() error
}
