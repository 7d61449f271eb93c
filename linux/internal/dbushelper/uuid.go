//go:build linux

package dbushelper

import (
	"strings"

	"github.com/google/uuid"
)

// bluetoothBaseUUID is the Bluetooth base UUID, onto which 16-bit and 32-bit
// assigned numbers are mapped.
const bluetoothBaseUUID = "-0000-1000-8000-00805f9b34fb"

// NormalizeUUID returns the canonical lower-case 128-bit form of a UUID.
// 16-bit ("2a19") and 32-bit ("00002a19") forms are expanded onto the
// Bluetooth base UUID. Unparseable input is returned lower-cased.
func NormalizeUUID(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	switch len(s) {
	case 4:
		s = "0000" + s + bluetoothBaseUUID

	case 8:
		s += bluetoothBaseUUID
	}

	u, err := uuid.Parse(s)
	if err != nil {
		return s
	}

	return u.String()
}

// EqualUUID reports whether two UUID strings denote the same UUID.
func EqualUUID(a, b string) bool {
	return NormalizeUUID(a) == NormalizeUUID(b)
}
