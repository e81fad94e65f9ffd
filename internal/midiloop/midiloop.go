// Package midiloop implements the top-level MIDI parser loop: it reads
// status bytes from a controller and dispatches NoteOn/NoteOff to the
// voice allocator, recognizing End-of-Track to terminate the session.
package midiloop

import (
	"github.com/quintinfsmith/fddc/internal/controller"
)

// drumChannel is filtered uniformly here rather than in the pacer, so the
// policy lives in exactly one place regardless of whether notes arrive
// live or from a file.
const drumChannel = 9

// Allocator is the subset of the voice allocator's contract this loop
// drives.
type Allocator interface {
	PlayNote(note, channel int)
	StopNote(note, channel int)
}

// Logger receives silent-drop diagnostics. Implementations must not block
// the real-time path.
type Logger interface {
	Debugf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}

// Run reads from ctrl until End-of-Track is seen or cancel is closed,
// dispatching NoteOn/NoteOff to alloc. It returns when the controller
// closes, EOT is recognized, or cancel fires.
func Run(ctrl controller.Controller, alloc Allocator, logger Logger, cancel <-chan struct{}) {
	if logger == nil {
		logger = nopLogger{}
	}

	ctrl.Start()
	defer ctrl.Close()

	for {
		select {
		case <-cancel:
			return
		default:
		}

		status, ok := ctrl.Read()
		if !ok {
			return
		}

		switch {
		case status&0xF0 == 0x90:
			note, ok1 := ctrl.Read()
			_, ok2 := ctrl.Read() // velocity, discarded
			if !ok1 || !ok2 {
				return
			}
			channel := int(status & 0x0F)
			if channel == drumChannel {
				logger.Debugf("dropping NoteOn on drum channel %d", channel)
				continue
			}
			alloc.PlayNote(int(note), channel)

		case status&0xF0 == 0x80:
			note, ok1 := ctrl.Read()
			_, ok2 := ctrl.Read() // velocity, discarded
			if !ok1 || !ok2 {
				return
			}
			channel := int(status & 0x0F)
			if channel == drumChannel {
				logger.Debugf("dropping NoteOff on drum channel %d", channel)
				continue
			}
			alloc.StopNote(int(note), channel)

		case status == 0xFF:
			b1, ok1 := ctrl.Read()
			if !ok1 {
				return
			}
			if b1 == 0x2F {
				b2, ok2 := ctrl.Read()
				if ok2 && b2 == 0x00 {
					return
				}
			}

		default:
			logger.Debugf("ignoring unrecognized status byte %#x", status)
		}
	}
}
