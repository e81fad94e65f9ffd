// Package pitch computes the stepper half-period corresponding to each MIDI
// note number.
package pitch

import "math"

// NumNotes is the size of the MIDI note range the table covers.
const NumNotes = 128

const (
	baseFreq = 16.35 // Hz, frequency of MIDI note 0 (C-1)
)

// Table holds the precomputed half-period, in microseconds, for every MIDI
// note number in [0, NumNotes).
type Table [NumNotes]float64

// NewTable builds the half-period table once. λ(N) is the full wavelength in
// microseconds for note N; τ(N) = λ(N)/2 is the half-period. The allocator
// multiplies τ(N) by 1000 before publishing it to the pulse generator.
func NewTable() *Table {
	var t Table
	for n := 0; n < NumNotes; n++ {
		freq := baseFreq * math.Pow(2, float64(n)/12.0)
		wavelength := 1000000.0 / freq
		t[n] = wavelength / 2
	}
	return &t
}

// HalfPeriodUS returns τ(note) in microseconds. Note values outside
// [0, NumNotes) are clamped to the nearest valid entry: the allocator passes
// note numbers through unchecked, and the clamp avoids an out-of-bounds
// panic on malformed MIDI input reaching this far.
func (t *Table) HalfPeriodUS(note int) float64 {
	if note < 0 {
		note = 0
	}
	if note >= NumNotes {
		note = NumNotes - 1
	}
	return t[note]
}
