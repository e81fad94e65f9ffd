// Package drive implements the per-drive state owned by the pulse
// generator: step/direction pins, head position, and the atomically
// published target half-period.
package drive

import (
	"sync/atomic"

	"github.com/quintinfsmith/fddc/internal/gpio"
)

// Direction of head travel.
type Direction int

const (
	Forward Direction = iota
	Reverse
)

// DefaultTrackLimit bounds head position to [-DefaultTrackLimit,
// +DefaultTrackLimit] absent an explicit override.
const DefaultTrackLimit = 80

// Drive is one physical floppy drive. half_period_us, active, position and
// direction are published atomically so the allocator (event-consumer
// goroutine), the visualizer (its own goroutine) and the pulse generator
// goroutine can all read them without a lock; elapsed and stepHigh are
// private to the pulse generator, the only writer.
type Drive struct {
	Index int

	stepPin, dirPin int
	backend         gpio.Backend

	trackLimit int

	halfPeriodUS atomic.Int64
	active       atomic.Bool
	position     atomic.Int32
	direction    atomic.Int32 // Direction, stored as int32

	elapsedUS int64
	stepHigh  bool
}

// New configures pin as outputs and returns a drive in its idle state:
// position zero, direction forward, inactive.
func New(index, stepPin, dirPin int, backend gpio.Backend, trackLimit int) (*Drive, error) {
	if err := backend.ConfigureOutput(stepPin); err != nil {
		return nil, err
	}
	if err := backend.ConfigureOutput(dirPin); err != nil {
		return nil, err
	}
	if trackLimit <= 0 {
		trackLimit = DefaultTrackLimit
	}

	d := &Drive{
		Index:      index,
		stepPin:    stepPin,
		dirPin:     dirPin,
		backend:    backend,
		trackLimit: trackLimit,
	}
	backend.Write(dirPin, false)
	return d, nil
}

// Activate publishes a new target half-period and marks the drive active.
// Called by the allocator goroutine.
func (d *Drive) Activate(halfPeriodUS int64) {
	d.halfPeriodUS.Store(halfPeriodUS)
	d.active.Store(true)
}

// Deactivate marks the drive idle. Called by the allocator goroutine.
func (d *Drive) Deactivate() {
	d.active.Store(false)
	d.halfPeriodUS.Store(0)
}

// Active reports whether the pulse generator should visit this drive.
func (d *Drive) Active() bool {
	return d.active.Load()
}

// HalfPeriodUS returns the currently published target half-period.
func (d *Drive) HalfPeriodUS() int64 {
	return d.halfPeriodUS.Load()
}

// Position returns the current head position. Safe to call from any
// goroutine.
func (d *Drive) Position() int {
	return int(d.position.Load())
}

// Direction returns the current direction of head travel. Safe to call
// from any goroutine.
func (d *Drive) Direction() Direction {
	return Direction(d.direction.Load())
}

// Tick is called by the pulse generator once per tick for every active
// drive. tickUS is the generator's tick duration in microseconds. It
// accumulates elapsed time and steps the head when the target half-period
// has elapsed, preserving phase by subtracting rather than zeroing.
func (d *Drive) Tick(tickUS int64) {
	half := d.halfPeriodUS.Load()
	if half <= 0 {
		return
	}

	d.elapsedUS += tickUS
	if d.elapsedUS >= half {
		d.step()
		d.elapsedUS -= half
	}
}

// ResetPhase clears the accumulated elapsed time. Called when a drive
// transitions from idle to active so the new activation starts at phase
// zero rather than inheriting a stale accumulator.
func (d *Drive) ResetPhase() {
	d.elapsedUS = 0
}

// step emits one step edge, advances position in the current direction, and
// reverses direction if the track limit has been reached.
func (d *Drive) step() {
	d.stepHigh = !d.stepHigh
	d.backend.Write(d.stepPin, d.stepHigh)

	var pos int32
	if Direction(d.direction.Load()) == Forward {
		pos = d.position.Add(1)
	} else {
		pos = d.position.Add(-1)
	}

	if pos >= int32(d.trackLimit) {
		d.direction.Store(int32(Reverse))
		d.backend.Write(d.dirPin, true)
	} else if pos <= -int32(d.trackLimit) {
		d.direction.Store(int32(Forward))
		d.backend.Write(d.dirPin, false)
	}
}

// Purge homes the head back to position zero, ignoring the normal
// track-limit reversal. position ranges over [-trackLimit, +trackLimit] and
// routinely sits negative after ordinary oscillation, so homing steps
// toward zero by sign rather than always decrementing. Called through the
// allocator's PurgeAll when a session starts playing and when it is closed;
// releasing a drive to the free pool does not home it.
func (d *Drive) Purge() {
	for {
		pos := d.position.Load()
		if pos == 0 {
			break
		}

		reverse := pos > 0
		if reverse {
			d.direction.Store(int32(Reverse))
		} else {
			d.direction.Store(int32(Forward))
		}
		d.backend.Write(d.dirPin, reverse)

		d.stepHigh = !d.stepHigh
		d.backend.Write(d.stepPin, d.stepHigh)
		if reverse {
			d.position.Add(-1)
		} else {
			d.position.Add(1)
		}
	}
	d.direction.Store(int32(Forward))
	d.backend.Write(d.dirPin, false)
	d.elapsedUS = 0
}

// Low drives both pins low. Called by the pulse generator on teardown.
func (d *Drive) Low() {
	d.backend.Write(d.stepPin, false)
	d.backend.Write(d.dirPin, false)
	d.stepHigh = false
}
