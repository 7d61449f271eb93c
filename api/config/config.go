package config

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultAdapter is the adapter used when none is specified.
	DefaultAdapter = "hci0"

	// DefaultConnectTimeout is the default timeout for connecting to a
	// device that is not yet known to the adapter.
	DefaultConnectTimeout = 15 * time.Second

	// DefaultServicesResolvedTimeout is the default timeout to wait for the
	// GATT services of a connected device to be resolved.
	DefaultServicesResolvedTimeout = 30 * time.Second

	// DefaultNotifyTimeout is the default timeout to wait for a characteristic
	// to start notifying.
	DefaultNotifyTimeout = 5 * time.Second
)

// Configuration describes a session configuration.
type Configuration struct {
	// Adapter holds the name of the adapter to use (for example, "hci0").
	Adapter string

	// ConnectTimeout holds the timeout for connecting to a device by its address.
	ConnectTimeout time.Duration

	// ServicesResolvedTimeout holds the timeout for a connected device to resolve its services.
	ServicesResolvedTimeout time.Duration

	// NotifyTimeout holds the timeout for a characteristic to start notifying.
	NotifyTimeout time.Duration

	// Logger receives all diagnostics of the session.
	Logger logrus.FieldLogger
}

// New returns a new configuration with the default values.
// The logger discards all output.
func New() Configuration {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return Configuration{
		Adapter:                 DefaultAdapter,
		ConnectTimeout:          DefaultConnectTimeout,
		ServicesResolvedTimeout: DefaultServicesResolvedTimeout,
		NotifyTimeout:           DefaultNotifyTimeout,
		Logger:                  logger,
	}
}

// WithDefaults returns a copy of the configuration, with every unset value
// replaced by its default.
func (c Configuration) WithDefaults() Configuration {
	d := New()

	if c.Adapter == "" {
		c.Adapter = d.Adapter
	}

	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}

	if c.ServicesResolvedTimeout <= 0 {
		c.ServicesResolvedTimeout = d.ServicesResolvedTimeout
	}

	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = d.NotifyTimeout
	}

	if c.Logger == nil {
		c.Logger = d.Logger
	}

	return c
}
