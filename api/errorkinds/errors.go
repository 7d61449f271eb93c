package errorkinds

import "errors"

// The different general error types.
var (
	ErrSessionStart  = errors.New("cannot start session")
	ErrSessionClosed = errors.New("session is closed")
	ErrMethodCall    = errors.New("cannot call method")
	ErrMethodTimeout = errors.New("timeout on method response")

	ErrInvalidAddress     = errors.New("invalid Bluetooth address")
	ErrInvalidAdapter     = errors.New("invalid adapter name")
	ErrInvalidAddressType = errors.New("invalid address type")

	ErrAdapterNotFound        = errors.New("adapter not found")
	ErrDeviceNotFound         = errors.New("device not found")
	ErrCharacteristicNotFound = errors.New("characteristic not found")

	ErrPathMismatch   = errors.New("connected object path does not match the device path")
	ErrNotifyInactive = errors.New("notifications are not active")

	ErrPropertyDataParse = errors.New("error parsing property data")
	ErrEventDataParse    = errors.New("error parsing event data")

	ErrNotSupported = errors.New("this functionality is not supported")
)

// GenericError represents a standard error message.
type GenericError struct {
	// Errors stores all associated errors.
	Errors error `json:"errors,omitempty" doc:"A set of generic errors."`
}

// Error returns the formatted error as string.
func (e GenericError) Error() string {
	return e.Errors.Error()
}

// Unwrap unwraps all errors associated with this error.
func (e GenericError) Unwrap() error {
	return e.Errors
}
