//go:build !linux

package session

import (
	"context"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	bluetooth "github.com/bluetuith-org/bluele/api/bluetooth"
	"github.com/bluetuith-org/bluele/api/config"
	errorkinds "github.com/bluetuith-org/bluele/api/errorkinds"
)

// NewSession returns an error, since Bluetooth LE sessions are only supported on Linux.
func NewSession(config.Configuration) (bluetooth.Session, error) {
	return nil, fault.Wrap(errorkinds.ErrNotSupported,
		fctx.With(context.Background(), "error_at", "session-platform"),
		ftag.With(ftag.Internal),
		fmsg.With("Bluetooth LE sessions are only supported on Linux"),
	)
}
