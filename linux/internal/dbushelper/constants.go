//go:build linux

package dbushelper

import "github.com/godbus/dbus/v5"

// The DBus specific bus, interface and method names.
const (
	DbusPropertiesIface       = "org.freedesktop.DBus.Properties"
	DbusGetPropertiesIface    = "org.freedesktop.DBus.Properties.Get"
	DbusSetPropertiesIface    = "org.freedesktop.DBus.Properties.Set"
	DbusObjectManagerIface    = "org.freedesktop.DBus.ObjectManager"
	DbusGetManagedObjectsCall = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"

	DbusSignalPropertiesChanged = "PropertiesChanged"
	DbusSignalInterfacesAdded   = "InterfacesAdded"

	DbusSignalPropertiesChangedIface = "org.freedesktop.DBus.Properties.PropertiesChanged"
	DbusSignalInterfacesAddedIface   = "org.freedesktop.DBus.ObjectManager.InterfacesAdded"

	DbusErrorUnknownObject = "org.freedesktop.DBus.Error.UnknownObject"
	DbusErrorUnknownMethod = "org.freedesktop.DBus.Error.UnknownMethod"

	BluezBusName          = "org.bluez"
	BluezAdapterIface     = "org.bluez.Adapter1"
	BluezDeviceIface      = "org.bluez.Device1"
	BluezGattCharIface    = "org.bluez.GattCharacteristic1"
	BluezGattServiceIface = "org.bluez.GattService1"

	BluezRootPath   = dbus.ObjectPath("/")
	BluezPathPrefix = "/org/bluez/"
)
