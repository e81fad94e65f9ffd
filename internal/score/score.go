// Package score loads a Standard MIDI File into the tick-ordered event
// stream the pacer expects, using a real SMF parser rather than a
// hand-rolled byte reader.
package score

import (
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/quintinfsmith/fddc/internal/pacer"
)

// Score is a parsed Standard MIDI File: tick-ordered events plus the file's
// pulses-per-quarter-note resolution.
type Score struct {
	PPQN  int
	Ticks []pacer.TickEvents
}

// Load parses the Standard MIDI File at path. SMPTE-format files are
// rejected: the pacer's timing model only understands PPQN-quantized
// ticks, and accepting one silently would produce wrong playback speed
// rather than an obvious failure, so this is treated as a fatal startup
// error.
func Load(path string) (*Score, error) {
	sm, err := smf.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("score: read %s: %w", path, err)
	}
	return fromSMF(sm)
}

func fromSMF(sm *smf.SMF) (*Score, error) {
	mt, ok := sm.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("score: unsupported SMF time format %T, only metric (PPQN) ticks are supported", sm.TimeFormat)
	}
	ppqn := int(mt.Resolution())

	byTick := make(map[int64][]pacer.Event)

	for _, track := range sm.Tracks {
		var currentTick int64
		for _, ev := range track {
			currentTick += int64(ev.Delta)

			var channel, key, velocity uint8
			var bpm float64

			switch {
			case ev.Message.GetNoteOn(&channel, &key, &velocity):
				byTick[currentTick] = append(byTick[currentTick], pacer.NoteOn{
					Channel:  int(channel),
					Note:     int(key),
					Velocity: int(velocity),
				})
			case ev.Message.GetNoteOff(&channel, &key, &velocity):
				byTick[currentTick] = append(byTick[currentTick], pacer.NoteOff{
					Channel:  int(channel),
					Note:     int(key),
					Velocity: int(velocity),
				})
			case ev.Message.GetMetaTempo(&bpm):
				byTick[currentTick] = append(byTick[currentTick], pacer.SetTempo{BPM: bpm})
			}
			// Anything else (CC, SysEx, other meta events) is dropped here,
			// one level up from the top-level parser loop's own drop
			// policy for bytes it doesn't recognize.
		}
	}

	ticks := make([]pacer.TickEvents, 0, len(byTick))
	for tick, events := range byTick {
		pacer.SortTickEvents(events)
		ticks = append(ticks, pacer.TickEvents{Tick: tick, Events: events})
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i].Tick < ticks[j].Tick })

	return &Score{PPQN: ppqn, Ticks: ticks}, nil
}
