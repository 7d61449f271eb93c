//go:build linux

package dbushelper

import (
	"strings"

	bluetooth "github.com/bluetuith-org/bluele/api/bluetooth"
	errorkinds "github.com/bluetuith-org/bluele/api/errorkinds"
	"github.com/godbus/dbus/v5"
)

// devicePathPrefix is the prefix of the last element of a device object path.
const devicePathPrefix = "dev_"

// AdapterPath returns the object path of the adapter with the provided name
// (for example, "hci0" => /org/bluez/hci0).
func AdapterPath(name string) (dbus.ObjectPath, error) {
	if name == "" || strings.ContainsRune(name, '/') {
		return "", errorkinds.ErrInvalidAdapter
	}

	path := dbus.ObjectPath(BluezPathPrefix + name)
	if !path.IsValid() {
		return "", errorkinds.ErrInvalidAdapter
	}

	return path, nil
}

// DevicePath returns the object path of a device with the provided address,
// under the provided adapter path (for example, /org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF).
// The result depends only on its arguments.
func DevicePath(adapterPath dbus.ObjectPath, address bluetooth.MacAddress) (dbus.ObjectPath, error) {
	if !adapterPath.IsValid() || adapterPath == BluezRootPath {
		return "", errorkinds.ErrInvalidAdapter
	}

	return adapterPath + "/" + devicePathPrefix + dbus.ObjectPath(address.Underscored()), nil
}

// AddressFromDevicePath parses a device object path, and returns the
// adapter path and the device address.
func AddressFromDevicePath(path dbus.ObjectPath) (dbus.ObjectPath, bluetooth.MacAddress, error) {
	p := string(path)

	i := strings.LastIndexByte(p, '/')
	if i <= 0 || !strings.HasPrefix(p[i+1:], devicePathPrefix) {
		return "", bluetooth.MacAddress{}, errorkinds.ErrInvalidAddress
	}

	address, err := bluetooth.ParseMAC(strings.ReplaceAll(p[i+1+len(devicePathPrefix):], "_", ":"))
	if err != nil {
		return "", bluetooth.MacAddress{}, err
	}

	return dbus.ObjectPath(p[:i]), address, nil
}

// IsDirectChild reports whether path is an immediate child of parent.
func IsDirectChild(parent, path dbus.ObjectPath) bool {
	rest, ok := strings.CutPrefix(string(path), string(parent)+"/")

	return ok && rest != "" && !strings.ContainsRune(rest, '/')
}

// IsDescendant reports whether path is nested anywhere under parent.
func IsDescendant(parent, path dbus.ObjectPath) bool {
	rest, ok := strings.CutPrefix(string(path), string(parent)+"/")

	return ok && rest != ""
}
