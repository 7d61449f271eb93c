package bluetooth

import (
	"bytes"

	"github.com/bluetuith-org/bluele/api/errorkinds"
)

// MacAddress represents a Bluetooth address, most significant byte first.
type MacAddress [NumAddressBytes]byte

const (
	// MaxAddressStringLength is the length of a Bluetooth address string (with ':').
	MaxAddressStringLength = 17

	// NumAddressBytes is the total number of bytes in a MacAddress byte array.
	NumAddressBytes = 6
)

// ParseMAC parses the given MAC address, which must be in 11:22:33:AA:BB:CC
// format. Hex digits may be of either case. If it cannot be parsed,
// errorkinds.ErrInvalidAddress is returned.
func ParseMAC(s string) (MacAddress, error) {
	return parseMac([]byte(s))
}

// String returns a human-readable version of this MAC address, such as
// 11:22:33:AA:BB:CC.
func (m MacAddress) String() string {
	return m.format(':')
}

// Underscored returns the address with '_' separators, as used within
// Bluez object paths (11_22_33_AA_BB_CC).
func (m MacAddress) Underscored() string {
	return m.format('_')
}

// IsNil checks if the MacAddress byte array is empty.
func (m MacAddress) IsNil() bool {
	return m == MacAddress{}
}

// MarshalText implements encoding.TextMarshaler.
func (m MacAddress) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// This is mainly used to unmarshal values within go-codec, for example
// mapping the "Address" property of a device to a MacAddress within a struct.
func (m *MacAddress) UnmarshalText(data []byte) error {
	mac, err := parseMac(data)
	if err != nil {
		return err
	}

	*m = mac

	return nil
}

// format writes the address with the provided separator between each byte.
func (m MacAddress) format(sep byte) string {
	const hexDigits = "0123456789ABCDEF"

	s := bytes.NewBuffer(make([]byte, 0, MaxAddressStringLength))

	for i, c := range m {
		if i != 0 {
			s.WriteByte(sep)
		}

		s.WriteByte(hexDigits[c>>4])
		s.WriteByte(hexDigits[c&0x0f])
	}

	return s.String()
}

// parseMac parses a Bluetooth address string of the exact form XX:XX:XX:XX:XX:XX.
func parseMac(b []byte) (MacAddress, error) {
	var mac MacAddress

	if len(b) != MaxAddressStringLength {
		return mac, errorkinds.ErrInvalidAddress
	}

	for i := range NumAddressBytes {
		pos := i * 3
		if i != 0 && b[pos-1] != ':' {
			return mac, errorkinds.ErrInvalidAddress
		}

		hi, ok := hexNibble(b[pos])
		if !ok {
			return mac, errorkinds.ErrInvalidAddress
		}

		lo, ok := hexNibble(b[pos+1])
		if !ok {
			return mac, errorkinds.ErrInvalidAddress
		}

		mac[i] = hi<<4 | lo
	}

	return mac, nil
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 0xA, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 0xA, true
	}

	return 0, false
}
