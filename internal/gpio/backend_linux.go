//go:build linux

package gpio

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Live is the Linux backend, built on periph.io's gpioreg pin registry. It
// is the only backend that touches real hardware.
type Live struct {
	pins map[int]gpio.PinIO
}

var _ Backend = (*Live)(nil)

// NewLive initializes the host's GPIO subsystem. A failure here is a fatal
// startup error: the pulse generator must never start against an
// unconfigured backend.
func NewLive() (Backend, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gpio: host.Init failed: %w", err)
	}
	return &Live{pins: make(map[int]gpio.PinIO)}, nil
}

func (l *Live) ConfigureOutput(pin int) error {
	if _, ok := l.pins[pin]; ok {
		return &ErrPinInUse{Pin: pin}
	}

	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
	if p == nil {
		return fmt.Errorf("gpio: no such pin GPIO%d", pin)
	}
	if err := p.Out(gpio.Low); err != nil {
		return fmt.Errorf("gpio: configure pin GPIO%d as output: %w", pin, err)
	}

	l.pins[pin] = p
	return nil
}

func (l *Live) Write(pin int, high bool) {
	p, ok := l.pins[pin]
	if !ok {
		return
	}
	if high {
		p.Out(gpio.High)
	} else {
		p.Out(gpio.Low)
	}
}

func (l *Live) Close() error {
	for pin, p := range l.pins {
		p.Out(gpio.Low)
		delete(l.pins, pin)
	}
	return nil
}
