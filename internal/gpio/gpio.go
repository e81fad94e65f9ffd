// Package gpio provides the thin pin-level abstraction the pulse generator
// drives at stepping rate. Two backends exist: a real one built on periph.io
// for Linux hosts with actual GPIO headers, and an in-memory one used in
// tests and whenever no hardware is present.
package gpio

import "fmt"

// PinPair is one drive's (step, direction) GPIO pin assignment.
type PinPair struct {
	Step int `json:"step"`
	Dir  int `json:"dir"`
}

// Backend is the pin-level contract the pulse generator calls from its
// real-time loop. Implementations must not allocate on Write.
type Backend interface {
	// ConfigureOutput prepares pin as a digital output. Called once per pin
	// at startup; a failure here is a fatal startup error, never surfaced
	// mid-run.
	ConfigureOutput(pin int) error

	// Write drives pin high (true) or low (false). Must be safe to call at
	// stepping rate (tens of kHz) without allocation.
	Write(pin int, high bool)

	// Close releases any resources held by the backend.
	Close() error
}

// ErrPinInUse is returned by ConfigureOutput when two drives claim the same
// pin number, a fatal startup condition per the pin-out collision error
// kind.
type ErrPinInUse struct {
	Pin int
}

func (e *ErrPinInUse) Error() string {
	return fmt.Sprintf("gpio: pin %d already configured", e.Pin)
}
