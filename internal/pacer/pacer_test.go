package pacer

import (
	"sync"
	"testing"
	"time"

	"github.com/quintinfsmith/fddc/internal/bytequeue"
)

// fakeClock lets tests advance time deterministically instead of sleeping
// wall-clock time. Sleep advances the virtual clock by d and records the
// virtual time it woke at, so tests can see when each tick's events were
// emitted even though the pacer runs ahead of the reader.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	wakes []time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(0, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.wakes = append(c.wakes, c.now)
}

// wakeAt returns the virtual time of the i-th Sleep's wake-up.
func (c *fakeClock) wakeAt(i int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wakes[i]
}

func readN(t *testing.T, q *bytequeue.Queue, n int) []byte {
	t.Helper()
	out := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		b, ok := q.Read()
		if !ok {
			t.Fatalf("queue closed after %d of %d bytes", i, n)
		}
		out = append(out, b)
	}
	return out
}

func TestEmitsNoteOnThenNoteOffAtDefaultTempo(t *testing.T) {
	ticks := []TickEvents{
		{Tick: 0, Events: []Event{NoteOn{Channel: 0, Note: 60, Velocity: 100}}},
		{Tick: 96, Events: []Event{NoteOff{Channel: 0, Note: 60, Velocity: 0}}},
	}

	q := bytequeue.New(32)
	clock := newFakeClock()
	p := New(ticks, 96, q, clock)
	p.Start()

	noteOn := readN(t, q, 3)
	if noteOn[0] != 0x90 || noteOn[1] != 60 {
		t.Fatalf("unexpected NoteOn bytes: %v", noteOn)
	}

	noteOff := readN(t, q, 3)
	if noteOff[0] != 0x80 || noteOff[1] != 60 {
		t.Fatalf("unexpected NoteOff bytes: %v", noteOff)
	}

	eot := readN(t, q, 3)
	if eot[0] != 0xFF || eot[1] != 0x2F || eot[2] != 0x00 {
		t.Fatalf("unexpected end-of-track bytes: %v", eot)
	}
}

func TestSetTempoChangesSecondsPerTick(t *testing.T) {
	// SetTempo(60 BPM) at tick 0, NoteOn at tick 96, NoteOff at tick 192,
	// PPQN 96. At 60 BPM a quarter note (96 ticks) takes 1 second.
	ticks := []TickEvents{
		{Tick: 0, Events: []Event{SetTempo{BPM: 60}}},
		{Tick: 96, Events: []Event{NoteOn{Channel: 0, Note: 60, Velocity: 100}}},
		{Tick: 192, Events: []Event{NoteOff{Channel: 0, Note: 60, Velocity: 0}}},
	}

	q := bytequeue.New(32)
	clock := newFakeClock()
	p := New(ticks, 96, q, clock)

	start := clock.Now()
	p.Start()

	readN(t, q, 3) // NoteOn
	readN(t, q, 3) // NoteOff
	readN(t, q, 3) // End-of-track: every tick's sleep has now been recorded

	// The pacer sleeps once per tick entry and emits that tick's events on
	// waking, so wake 1 is the NoteOn's emission time and wake 2 the NoteOff's.
	elapsedAtNoteOn := clock.wakeAt(1).Sub(start)
	if d := elapsedAtNoteOn - time.Second; d < -10*time.Millisecond || d > 10*time.Millisecond {
		t.Errorf("NoteOn should land ~1.0s after start, got %v", elapsedAtNoteOn)
	}

	elapsedAtNoteOff := clock.wakeAt(2).Sub(start)
	if d := elapsedAtNoteOff - 2*time.Second; d < -10*time.Millisecond || d > 10*time.Millisecond {
		t.Errorf("NoteOff should land ~2.0s after start, got %v", elapsedAtNoteOff)
	}
}

func TestNoteOnVelocityZeroCanonicalizesToNoteOff(t *testing.T) {
	ticks := []TickEvents{
		{Tick: 0, Events: []Event{NoteOn{Channel: 2, Note: 50, Velocity: 0}}},
	}

	q := bytequeue.New(32)
	p := New(ticks, 96, q, newFakeClock())
	p.Start()

	b := readN(t, q, 3)
	if b[0] != 0x80|0x02 {
		t.Errorf("velocity-0 NoteOn should canonicalize to a NoteOff status byte, got %#x", b[0])
	}
}

func TestSortTickEventsOrdering(t *testing.T) {
	events := []Event{
		SetTempo{BPM: 100},
		NoteOn{Channel: 0, Note: 60, Velocity: 100},
		NoteOff{Channel: 0, Note: 60, Velocity: 0},
	}
	SortTickEvents(events)

	if _, ok := events[0].(NoteOff); !ok {
		t.Errorf("expected NoteOff first, got %T", events[0])
	}
	if _, ok := events[1].(NoteOn); !ok {
		t.Errorf("expected NoteOn second, got %T", events[1])
	}
	if _, ok := events[2].(SetTempo); !ok {
		t.Errorf("expected SetTempo third, got %T", events[2])
	}
}
