package plex

import (
	"context"
	"errors"
	"net"
)

// ErrNotConnected indicates the facade has no usable library connection.
var ErrNotConnected = errors.New("plex: not connected")

// IsTimeout reports whether err is a timeout-class failure: a deadline
// exceeded, or a network error that timed out. These are the errors the
// worker treats as transient and retries with a forced reconnect.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
