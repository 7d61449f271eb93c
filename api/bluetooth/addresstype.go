package bluetooth

import (
	"fmt"
	"strings"

	"github.com/bluetuith-org/bluele/api/errorkinds"
)

// AddressType describes the link-layer addressing mode of a Bluetooth LE peer.
type AddressType int

// The different address types.
// AddressUnspecified lets a connection attempt fall back from one type to the other.
const (
	AddressUnspecified AddressType = iota
	AddressPublic
	AddressRandom
)

// ParseAddressType parses an address type name ("public", "random", or
// "" / "unspecified"). Other names return errorkinds.ErrInvalidAddressType.
func ParseAddressType(s string) (AddressType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unspecified", "auto":
		return AddressUnspecified, nil

	case "public":
		return AddressPublic, nil

	case "random":
		return AddressRandom, nil
	}

	return AddressUnspecified, fmt.Errorf("%w: %q", errorkinds.ErrInvalidAddressType, s)
}

// String returns the Bluez tag for the address type.
func (a AddressType) String() string {
	switch a {
	case AddressPublic:
		return "public"

	case AddressRandom:
		return "random"
	}

	return "unspecified"
}

// Opposite returns the other LE address type. An unspecified address type
// is treated as public, so its opposite is random.
func (a AddressType) Opposite() AddressType {
	if a == AddressRandom {
		return AddressPublic
	}

	return AddressRandom
}

// Resolve returns the address type that is tried first for a connection.
func (a AddressType) Resolve() AddressType {
	if a == AddressUnspecified {
		return AddressPublic
	}

	return a
}
