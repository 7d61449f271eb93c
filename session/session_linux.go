//go:build linux

package session

import (
	bluetooth "github.com/bluetuith-org/bluele/api/bluetooth"
	"github.com/bluetuith-org/bluele/api/config"
	"github.com/bluetuith-org/bluele/linux"
)

// NewSession returns a Linux-specific session on the configured adapter.
func NewSession(cfg config.Configuration) (bluetooth.Session, error) {
	s, err := linux.NewSession(cfg)
	if err != nil {
		return nil, err
	}

	return s, nil
}
