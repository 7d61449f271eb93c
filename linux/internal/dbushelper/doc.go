/*
Package dbushelper provides DBus specific helpers to:
- Construct Bluez object paths from Bluetooth addresses, and back.
- Decode the managed object tree and signal payloads published by Bluez.
- Traverse the object tree to find devices and GATT characteristics.
- Marshal a map of DBus variants to a provided struct.
- Wrap remote errors with DBus call data.

It also has constants defined for various DBus related
bus, interface and property names.
*/
package dbushelper
