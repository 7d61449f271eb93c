//go:build linux

package dbushelper

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/ugorji/go/codec"
)

// variantExt represents a go-codec extension to parse DBus variant values.
type variantExt struct{}

// resolver holds an encoder and decoder.
type resolver struct {
	once sync.Once

	encoder *codec.Encoder
	decoder *codec.Decoder
	data    []byte

	sync.Mutex
}

var variantDecoder resolver

// ConvertExt converts a variant struct into an encodable value.
// Note: v is a pointer iff the registered extension type is a struct or array kind.
func (v variantExt) ConvertExt(variant any) any {
	switch val := variant.(type) {
	case *dbus.Variant:
		return val.Value()

	case dbus.Variant:
		return val.Value()
	}

	return variant
}

// UpdateExt decodes/updates an encoded value (src) to a new variant (dst).
// Note: dst is always a pointer kind to the registered extension type.
func (v variantExt) UpdateExt(dst, src any) {
	if d, ok := dst.(*dbus.Variant); ok {
		*d = dbus.MakeVariant(src)
	}
}

// DecodeVariantMap decodes a map of variants into the provided data.
// Properties listed in requiredProps must be present with a signature.
// Note that, for the "MacAddress" type, a custom TextUnmarshaler
// has been defined.
func DecodeVariantMap(
	variants map[string]dbus.Variant, data any,
	requiredProps ...string,
) error {
	for _, prop := range requiredProps {
		value, ok := variants[prop]
		if !ok {
			return fmt.Errorf("property '%s' is missing", prop)
		}

		if value.Signature().Empty() {
			return fmt.Errorf("no signature found for property '%s'", prop)
		}
	}

	variantDecoder.Lock()
	defer variantDecoder.Unlock()

	variantDecoder.once.Do(func() {
		handle := codec.JsonHandle{}
		handle.TypeInfos = codec.NewTypeInfos([]string{"codec"})
		handle.SetInterfaceExt(reflect.TypeOf(dbus.Variant{}), 1, variantExt{})
		handle.SetInterfaceExt(reflect.TypeOf((*dbus.Variant)(nil)), 1, variantExt{})

		variantDecoder.encoder = codec.NewEncoderBytes(&variantDecoder.data, &handle)
		variantDecoder.decoder = codec.NewDecoderBytes(variantDecoder.data, &handle)
	})

	variantDecoder.encoder.ResetBytes(&variantDecoder.data)

	if err := variantDecoder.encoder.Encode(&variants); err != nil {
		return err
	}

	variantDecoder.decoder.ResetBytes(variantDecoder.data)

	return variantDecoder.decoder.Decode(data)
}
