// Package session selects the Bluetooth LE session implementation of the current platform.
package session
