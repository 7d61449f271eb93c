//go:build linux

package dbushelper

import (
	"context"
	"errors"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	bluetooth "github.com/bluetuith-org/bluele/api/bluetooth"
	errorkinds "github.com/bluetuith-org/bluele/api/errorkinds"
	"github.com/godbus/dbus/v5"
)

// WalkMode selects what a traversal of the object tree produces.
type WalkMode int

// The different traversal modes.
const (
	// ModeScan calls Query.OnDevice for each device directly under the adapter at Query.Root.
	ModeScan WalkMode = iota

	// ModeFind stops at the first characteristic under the device at Query.Root
	// whose UUID matches Query.UUID.
	ModeFind

	// ModeCount counts the characteristics under the device at Query.Root.
	ModeCount

	// ModeEnumerate collects the UUIDs of the characteristics under the device at Query.Root.
	ModeEnumerate
)

// deviceProperties lists the Device1 properties decoded into a DeviceData.
var deviceProperties = []string{
	"Address", "AddressType", "Name", "Alias", "RSSI", "TxPower",
	"UUIDs", "Paired", "Connected", "ServicesResolved",
}

// Query describes a single traversal of the object tree.
type Query struct {
	Mode WalkMode
	Root dbus.ObjectPath

	// UUID is the characteristic UUID to find (ModeFind).
	UUID string

	// Capacity sizes the UUID list (ModeEnumerate).
	Capacity int

	// OnDevice is called for each device (ModeScan).
	OnDevice func(device bluetooth.DeviceData)
}

// Result holds the outcome of a traversal.
type Result struct {
	// Count holds the number of matched objects.
	Count int

	// UUIDs holds the characteristic UUIDs (ModeEnumerate).
	UUIDs []string

	// Characteristic holds the found characteristic (ModeFind), if Found is set.
	Characteristic CharacteristicRecord
	Found          bool
}

// CharacteristicRecord holds the decoded properties of a GATT characteristic.
type CharacteristicRecord struct {
	Path      dbus.ObjectPath
	Service   dbus.ObjectPath
	UUID      string
	Flags     bluetooth.CharacteristicFlags
	Notifying bool
}

// Walk traverses the object tree once, in document order.
// Objects without the interface of interest are skipped, as are unknown properties.
// If an object of interest is malformed, the traversal stops with an error; results
// that were already produced (for example, calls to OnDevice) are kept.
func Walk(tree *ObjectTree, q Query) (Result, error) {
	var (
		result Result
		err    error
	)

	if q.Mode == ModeEnumerate {
		result.UUIDs = make([]string, 0, q.Capacity)
	}

	tree.Range(func(object Object) bool {
		switch q.Mode {
		case ModeScan:
			if !IsDirectChild(q.Root, object.Path) {
				return true
			}

			var device bluetooth.DeviceData

			device, err = DecodeDevice(object)
			switch {
			case errors.Is(err, errorkinds.ErrDeviceNotFound):
				err = nil
				return true

			case err != nil:
				return false
			}

			result.Count++
			if q.OnDevice != nil {
				q.OnDevice(device)
			}

		default:
			if !IsDescendant(q.Root, object.Path) {
				return true
			}

			props, ok := object.Properties(BluezGattCharIface)
			if !ok {
				return true
			}

			var char CharacteristicRecord

			char, err = DecodeCharacteristic(object.Path, props)
			if err != nil {
				return false
			}

			switch q.Mode {
			case ModeFind:
				if !EqualUUID(char.UUID, q.UUID) {
					return true
				}

				result.Characteristic, result.Found = char, true
				result.Count++

				return false

			case ModeEnumerate:
				result.UUIDs = append(result.UUIDs, char.UUID)
			}

			result.Count++
		}

		return true
	})

	return result, err
}

// DecodeDevice decodes the Device1 interface of an object into a DeviceData.
// If the object does not expose the interface, errorkinds.ErrDeviceNotFound is returned.
func DecodeDevice(object Object) (bluetooth.DeviceData, error) {
	var device bluetooth.DeviceData

	props, ok := object.Properties(BluezDeviceIface)
	if !ok {
		return device, errorkinds.ErrDeviceNotFound
	}

	if err := DecodeVariantMap(props.Select(deviceProperties...), &device, "Address"); err != nil {
		return device, fault.Wrap(errorkinds.ErrPropertyDataParse,
			fctx.With(context.Background(),
				"error_at", "device-map-decode",
				"path", string(object.Path),
				"cause", err.Error(),
			),
			ftag.With(ftag.Internal),
			fmsg.With("Error converting device data"),
		)
	}

	return device, nil
}

// DecodeCharacteristic decodes the GattCharacteristic1 properties of an object.
func DecodeCharacteristic(path dbus.ObjectPath, props Properties) (CharacteristicRecord, error) {
	char := CharacteristicRecord{Path: path}

	uuid, ok, err := props.GetString("UUID")
	if err == nil && !ok {
		err = errorkinds.ErrPropertyDataParse
	}
	if err != nil {
		return char, wrapCharacteristicError(err, path, "UUID")
	}

	flags, _, err := props.GetStrings("Flags")
	if err != nil {
		return char, wrapCharacteristicError(err, path, "Flags")
	}

	if v, ok := props["Service"]; ok {
		char.Service, _ = v.Value().(dbus.ObjectPath)
	}

	char.Notifying, _, _ = props.GetBool("Notifying")
	char.UUID = uuid
	char.Flags = bluetooth.ParseCharacteristicFlags(flags)

	return char, nil
}

// UpdateFlags updates the named boolean flags from a single set of changed properties.
// Properties that are not listed in flags are ignored.
func UpdateFlags(changed Properties, flags map[string]*bool) error {
	for name, flag := range flags {
		value, ok, err := changed.GetBool(name)
		if err != nil {
			return fault.Wrap(err,
				fctx.With(context.Background(),
					"error_at", "flags-decode",
					"property", name,
				),
				ftag.With(ftag.Internal),
				fmsg.With("Error converting property data"),
			)
		}

		if ok {
			*flag = value
		}
	}

	return nil
}

func wrapCharacteristicError(err error, path dbus.ObjectPath, property string) error {
	return fault.Wrap(err,
		fctx.With(context.Background(),
			"error_at", "characteristic-map-decode",
			"path", string(path),
			"property", property,
		),
		ftag.With(ftag.Internal),
		fmsg.With("Error converting characteristic data"),
	)
}
