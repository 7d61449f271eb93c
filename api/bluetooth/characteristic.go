package bluetooth

import "strings"

// Characteristic describes a function call interface to invoke
// GATT characteristic related functions.
type Characteristic interface {
	// UUID returns the UUID of the characteristic.
	UUID() string

	// Path returns the object path of the characteristic.
	Path() string

	// Flags returns the capabilities of the characteristic.
	Flags() CharacteristicFlags

	// Notifying reports whether notifications are currently enabled.
	Notifying() bool

	// Read reads the characteristic value into p, truncating it if p is too small.
	// It returns the number of bytes that were received from the device, which
	// may be larger than len(p).
	Read(p []byte) (int, error)

	// ReadValue reads and returns the complete characteristic value.
	ReadValue() ([]byte, error)

	// Write writes data to the characteristic.
	Write(data []byte) error

	// StartNotify enables notifications or indications, and waits until
	// the device reports that it is notifying. Each received value is
	// passed to the handler.
	StartNotify(handler NotifyHandler) error

	// StopNotify disables notifications or indications.
	StopNotify() error

	// AcquireWrite acquires a file descriptor to write to the characteristic
	// without response. The ownership of the descriptor is transferred to the caller.
	AcquireWrite() (int, error)

	// Release releases all resources held by the characteristic.
	Release()
}

// NotifyHandler describes a function which is called with a notified value.
type NotifyHandler func(value []byte, c Characteristic)

// CharacteristicFlags describes the capabilities of a GATT characteristic.
type CharacteristicFlags uint16

// The different characteristic capabilities.
const (
	CharBroadcast CharacteristicFlags = 1 << iota
	CharRead
	CharWriteWithoutResponse
	CharWrite
	CharNotify
	CharIndicate
	CharAuthenticatedSignedWrites
	CharReliableWrite
	CharWritableAuxiliaries
	CharEncryptRead
	CharEncryptWrite
)

// characteristicFlagNames maps Bluez flag names to their capabilities, in bit order.
var characteristicFlagNames = []struct {
	name string
	flag CharacteristicFlags
}{
	{"broadcast", CharBroadcast},
	{"read", CharRead},
	{"write-without-response", CharWriteWithoutResponse},
	{"write", CharWrite},
	{"notify", CharNotify},
	{"indicate", CharIndicate},
	{"authenticated-signed-writes", CharAuthenticatedSignedWrites},
	{"reliable-write", CharReliableWrite},
	{"writable-auxiliaries", CharWritableAuxiliaries},
	{"encrypt-read", CharEncryptRead},
	{"encrypt-write", CharEncryptWrite},
}

// ParseCharacteristicFlags translates the "Flags" property of a
// Bluez GATT characteristic into a bitmask. Unknown flags are ignored.
func ParseCharacteristicFlags(names []string) CharacteristicFlags {
	var flags CharacteristicFlags

	for _, name := range names {
		for _, f := range characteristicFlagNames {
			if f.name == name {
				flags |= f.flag
				break
			}
		}
	}

	return flags
}

// Has reports whether any of the provided capabilities are set.
func (c CharacteristicFlags) Has(flags CharacteristicFlags) bool {
	return c&flags != 0
}

// Names returns the Bluez names of all set capabilities.
func (c CharacteristicFlags) Names() []string {
	names := make([]string, 0, len(characteristicFlagNames))

	for _, f := range characteristicFlagNames {
		if c&f.flag != 0 {
			names = append(names, f.name)
		}
	}

	return names
}

// String returns a comma-separated list of the set capabilities.
func (c CharacteristicFlags) String() string {
	return strings.Join(c.Names(), ",")
}
