package config

import (
	"fmt"
	"os"
	"time"

	bluetooth "github.com/bluetuith-org/bluele/api/bluetooth"
	apiconfig "github.com/bluetuith-org/bluele/api/config"
	"github.com/sirupsen/logrus"
)

// Values describes the possible configuration values that a user can
// modify and supply to the application.
type Values struct {
	Adapter         string `koanf:"adapter"`
	AddressType     string `koanf:"address-type"`
	LogLevel        string `koanf:"log-level"`
	ConnectTimeout  string `koanf:"connect-timeout"`
	ServicesTimeout string `koanf:"services-timeout"`
	NotifyTimeout   string `koanf:"notify-timeout"`
	NoWarning       bool   `koanf:"no-warning"`

	SelectedAddressType bluetooth.AddressType
	Level               logrus.Level
	Timeouts            Timeouts
}

// Timeouts holds the parsed timeout values.
type Timeouts struct {
	Connect, Services, Notify time.Duration
}

// SessionConfig returns a session configuration from the configuration values.
// Diagnostics are written to stderr at the configured log level.
func (v *Values) SessionConfig() apiconfig.Configuration {
	return apiconfig.Configuration{
		Adapter:                 v.Adapter,
		ConnectTimeout:          v.Timeouts.Connect,
		ServicesResolvedTimeout: v.Timeouts.Services,
		NotifyTimeout:           v.Timeouts.Notify,
		Logger:                  NewLogger(v.Level),
	}.WithDefaults()
}

// NewLogger returns a new logger which writes to stderr at the provided level.
func NewLogger(level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return logger
}

// validateValues validates all configuration values.
func (v *Values) validateValues() error {
	for _, validate := range []func() error{
		v.validateAdapter,
		v.validateAddressType,
		v.validateLogLevel,
		v.validateTimeouts,
	} {
		if err := validate(); err != nil {
			return err
		}
	}

	return nil
}

// validateAdapter validates the adapter name.
func (v *Values) validateAdapter() error {
	if v.Adapter == "" {
		v.Adapter = apiconfig.DefaultAdapter
		return nil
	}

	for _, r := range v.Adapter {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return fmt.Errorf("%s: The adapter name is invalid", v.Adapter)
		}
	}

	return nil
}

// validateAddressType validates the default address type used to connect to devices.
func (v *Values) validateAddressType() error {
	addressType, err := bluetooth.ParseAddressType(v.AddressType)
	if err != nil {
		return fmt.Errorf("%s: The address type must be one of 'public' or 'random'", v.AddressType)
	}

	v.SelectedAddressType = addressType

	return nil
}

// validateLogLevel validates the log level.
func (v *Values) validateLogLevel() error {
	if v.LogLevel == "" {
		v.Level = logrus.WarnLevel
		return nil
	}

	level, err := logrus.ParseLevel(v.LogLevel)
	if err != nil {
		return fmt.Errorf("%s: The log level is invalid", v.LogLevel)
	}

	v.Level = level

	return nil
}

// validateTimeouts validates all timeout values.
// An empty timeout selects the default value.
func (v *Values) validateTimeouts() error {
	for _, timeout := range []struct {
		name, value string
		parsed      *time.Duration
		fallback    time.Duration
	}{
		{"connect-timeout", v.ConnectTimeout, &v.Timeouts.Connect, apiconfig.DefaultConnectTimeout},
		{"services-timeout", v.ServicesTimeout, &v.Timeouts.Services, apiconfig.DefaultServicesResolvedTimeout},
		{"notify-timeout", v.NotifyTimeout, &v.Timeouts.Notify, apiconfig.DefaultNotifyTimeout},
	} {
		if timeout.value == "" {
			*timeout.parsed = timeout.fallback
			continue
		}

		d, err := time.ParseDuration(timeout.value)
		if err != nil || d <= 0 {
			return fmt.Errorf("%s: The value for '%s' must be a positive duration (for example, '10s')", timeout.value, timeout.name)
		}

		*timeout.parsed = d
	}

	return nil
}
