package bluetooth

import (
	"testing"

	"github.com/bluetuith-org/bluele/api/errorkinds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddressType(t *testing.T) {
	for input, expected := range map[string]AddressType{
		"":            AddressUnspecified,
		"auto":        AddressUnspecified,
		"unspecified": AddressUnspecified,
		"public":      AddressPublic,
		" Random ":    AddressRandom,
	} {
		addressType, err := ParseAddressType(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, addressType, input)
	}

	_, err := ParseAddressType("static")
	assert.ErrorIs(t, err, errorkinds.ErrInvalidAddressType)
}

func TestAddressTypeFallback(t *testing.T) {
	assert.Equal(t, AddressPublic, AddressUnspecified.Resolve())
	assert.Equal(t, AddressRandom, AddressUnspecified.Resolve().Opposite())

	assert.Equal(t, AddressRandom, AddressRandom.Resolve())
	assert.Equal(t, AddressPublic, AddressRandom.Opposite())
	assert.Equal(t, AddressRandom, AddressPublic.Opposite())

	assert.Equal(t, "public", AddressPublic.String())
	assert.Equal(t, "random", AddressRandom.String())
}
