//go:build linux

package linux

import (
	"github.com/godbus/dbus/v5"
	"go.uber.org/atomic"
)

// connectResult holds the outcome of a ConnectDevice call.
type connectResult struct {
	path dbus.ObjectPath
	err  error
}

// resultCell holds the result of a single connection attempt.
// It is written once, either by the reply handler or by the waiting
// call when it gives up; later writes are discarded.
type resultCell struct {
	result atomic.Pointer[connectResult]
}

// complete stores the result, and reports whether it was the first write.
func (c *resultCell) complete(path dbus.ObjectPath, err error) bool {
	return c.result.CompareAndSwap(nil, &connectResult{path: path, err: err})
}

// completed reports whether a result was stored.
func (c *resultCell) completed() bool {
	return c.result.Load() != nil
}

// value returns the stored result.
func (c *resultCell) value() connectResult {
	if r := c.result.Load(); r != nil {
		return *r
	}

	return connectResult{}
}
