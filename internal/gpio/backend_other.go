//go:build !linux

package gpio

import "errors"

// NewLive is unavailable on non-Linux hosts; callers fall back to the dry
// run (Mock) backend, mirroring the live controller's /dev/zero fallback
// when no MIDI device is present.
func NewLive() (Backend, error) {
	return nil, errors.New("gpio: live backend requires linux")
}
