//go:build linux

package linux

import (
	"context"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	errorkinds "github.com/bluetuith-org/bluele/api/errorkinds"
)

// process dispatches at most one pending bus message, and reports
// whether a message was dispatched.
func (b *BluezSession) process() bool {
	if b.parked != nil {
		msg := *b.parked
		b.parked = nil

		b.dispatch(msg)

		return true
	}

	select {
	case signal, ok := <-b.signals:
		if !ok {
			b.signals = nil
			return false
		}

		b.dispatch(message{signal: signal})

	case reply := <-b.replies:
		b.dispatch(message{reply: reply})

	default:
		return false
	}

	return true
}

// wait blocks for at most d until a bus message arrives.
// The message is kept for the next call to process.
func (b *BluezSession) wait(d time.Duration) {
	if b.parked != nil || d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case signal, ok := <-b.signals:
		if !ok {
			b.signals = nil
			return
		}

		b.parked = &message{signal: signal}

	case reply := <-b.replies:
		b.parked = &message{reply: reply}

	case <-timer.C:
	}
}

// waitUntil drives the bus until cond reports true, or until the timeout expires.
// The deadline is computed once; every wait is bounded by the time left.
// Any handler may be invoked while waiting.
func (b *BluezSession) waitUntil(cond func() bool, timeout time.Duration) error {
	if cond() {
		return nil
	}

	deadline := time.Now().Add(timeout)

	for !cond() {
		if b.closed {
			return errorkinds.ErrSessionClosed
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return errorkinds.ErrMethodTimeout
		}

		if b.process() {
			continue
		}

		b.wait(remaining)
	}

	return nil
}

// DriveLoop dispatches one pending bus message. If none is pending, it waits
// at most timeout for a message to arrive, and dispatches it.
func (b *BluezSession) DriveLoop(timeout time.Duration) error {
	if b.closed {
		return fault.Wrap(errorkinds.ErrSessionClosed,
			fctx.With(context.Background(), "error_at", "driveloop-closed"),
			ftag.With(ftag.Internal),
			fmsg.With("Cannot drive a closed session"),
		)
	}

	if b.process() {
		return nil
	}

	b.wait(timeout)
	b.process()

	return nil
}
