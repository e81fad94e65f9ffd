// Package pacer reconstructs wall-clock MIDI byte emission from
// tick-quantized score events, compensating for drift and responding to
// tempo changes mid-playback.
package pacer

import (
	"sort"
	"sync"
	"time"

	"github.com/quintinfsmith/fddc/internal/bytequeue"
)

// Event is one of NoteOn, NoteOff or SetTempo. Anything else the score
// loader might have produced is filtered out before reaching the pacer.
type Event interface {
	sortKey() int
}

// NoteOn is a channel voice message with velocity > 0 meaning "sound it"
// and velocity == 0 meaning "release it" per standard MIDI convention.
type NoteOn struct {
	Channel  int
	Note     int
	Velocity int
}

func (NoteOn) sortKey() int { return 2 }

// NoteOff releases a previously sounded voice.
type NoteOff struct {
	Channel  int
	Note     int
	Velocity int
}

func (NoteOff) sortKey() int { return 1 }

// SetTempo changes the tempo for all subsequent ticks.
type SetTempo struct {
	BPM float64
}

func (SetTempo) sortKey() int { return 3 }

// TickEvents is one (tick, events) pair from the score, ascending by Tick.
type TickEvents struct {
	Tick   int64
	Events []Event
}

const defaultBPM = 120.0

// drumChannel is filtered out uniformly at the top-level MIDI parser loop,
// not here (see the design notes on where channel 9 gets dropped); the
// pacer still emits its bytes and lets the upstream loop decide, matching
// §4.G's single point of policy.

// Pacer drives a bytequeue.Queue at wall-clock times reconstructed from
// tick-indexed events and a changing tempo.
type Pacer struct {
	ticks []TickEvents
	ppqn  int
	clock Clock
	queue *bytequeue.Queue

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a pacer over ticks (already sorted ascending by tick, with
// same-tick events sorted NoteOff < NoteOn < SetTempo), writing emitted
// bytes to queue. If clock is nil, RealClock is used.
func New(ticks []TickEvents, ppqn int, queue *bytequeue.Queue, clock Clock) *Pacer {
	if clock == nil {
		clock = RealClock
	}
	return &Pacer{
		ticks:  ticks,
		ppqn:   ppqn,
		clock:  clock,
		queue:  queue,
		stopCh: make(chan struct{}),
	}
}

// SortTickEvents stably sorts the events within each tick so that NoteOff
// events precede NoteOn events, which precede SetTempo events — the
// decisive ordering rule for polyphony correctness at tempo boundaries.
func SortTickEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].sortKey() < events[j].sortKey()
	})
}

// Start launches the pacing loop on its own goroutine and returns
// immediately.
func (p *Pacer) Start() {
	go p.run()
}

// Stop requests the pacing loop to terminate at its next wake point and
// closes the underlying queue, unblocking any pending Read. Safe to call
// multiple times, and safe to call after the pacer has already run to
// completion on its own (end-of-track).
func (p *Pacer) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	p.queue.Close()
}

func (p *Pacer) run() {
	secondsPerTick := 60.0 / (float64(p.ppqn) * defaultBPM)
	var delayAccum time.Duration
	startWall := p.clock.Now()
	var prevTick int64

	for _, te := range p.ticks {
		select {
		case <-p.stopCh:
			p.queue.Close()
			return
		default:
		}

		idealDelay := time.Duration(float64(te.Tick-prevTick) * secondsPerTick * float64(time.Second))
		drift := delayAccum - p.clock.Now().Sub(startWall)
		sleep := idealDelay + drift
		if sleep < 0 {
			sleep = 0
		}
		p.clock.Sleep(sleep)

		delayAccum += idealDelay
		prevTick = te.Tick

		for _, ev := range te.Events {
			switch e := ev.(type) {
			case SetTempo:
				bpm := e.BPM
				if bpm <= 0 {
					bpm = defaultBPM
				}
				secondsPerTick = 60.0 / (float64(p.ppqn) * bpm)
			case NoteOn:
				if e.Velocity > 0 {
					p.queue.Write([]byte{byte(0x90 | (e.Channel & 0x0F)), byte(e.Note), byte(e.Velocity)})
				} else {
					p.queue.Write([]byte{byte(0x80 | (e.Channel & 0x0F)), byte(e.Note), byte(e.Velocity)})
				}
			case NoteOff:
				p.queue.Write([]byte{byte(0x80 | (e.Channel & 0x0F)), byte(e.Note), byte(e.Velocity)})
			}
		}
	}

	// End-of-track meta so the upper parser loop terminates cleanly.
	p.queue.Write([]byte{0xFF, 0x2F, 0x00})
}
