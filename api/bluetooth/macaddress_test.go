package bluetooth

import (
	"testing"

	"github.com/bluetuith-org/bluele/api/errorkinds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMAC(t *testing.T) {
	mac, err := ParseMAC("aa:BB:0c:dd:Ee:01")
	require.NoError(t, err)

	assert.Equal(t, MacAddress{0xAA, 0xBB, 0x0C, 0xDD, 0xEE, 0x01}, mac)
	assert.Equal(t, "AA:BB:0C:DD:EE:01", mac.String())
	assert.Equal(t, "AA_BB_0C_DD_EE_01", mac.Underscored())
	assert.False(t, mac.IsNil())
}

func TestParseMAC_Invalid(t *testing.T) {
	for _, address := range []string{
		"",
		"AA:BB:CC:DD:EE",
		"AA:BB:CC:DD:EE:FF:00",
		"AA-BB-CC-DD-EE-FF",
		"AA:BB:CC:DD:EE:GG",
		"AAB:B:CC:DD:EE:FF",
	} {
		_, err := ParseMAC(address)
		assert.ErrorIs(t, err, errorkinds.ErrInvalidAddress, address)
	}
}

func TestMacAddressText(t *testing.T) {
	var mac MacAddress

	require.NoError(t, mac.UnmarshalText([]byte("11:22:33:44:55:66")))

	text, err := mac.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "11:22:33:44:55:66", string(text))

	assert.Error(t, mac.UnmarshalText([]byte("invalid")))
	assert.True(t, MacAddress{}.IsNil())
}
