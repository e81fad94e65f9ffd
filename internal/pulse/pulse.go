// Package pulse implements the process-wide real-time loop that steps every
// active drive at its target rate.
package pulse

import (
	"sync"
	"time"

	"github.com/quintinfsmith/fddc/internal/drive"
)

// DefaultTick is the generator's tick interval. The reference's native
// layer ticks at roughly 1us; on a goroutine-scheduled host a coarser tick
// is the practical floor without per-note rounding error becoming audible,
// matching the teacher's own tick/sample granularity order of magnitude.
const DefaultTick = 20 * time.Microsecond

// Generator is the single process-wide pulse loop. It owns no locks: the
// drives it steps publish half_period_us/active atomically, and Generator
// only ever runs from its own goroutine once Start has been called.
type Generator struct {
	drives []*drive.Drive
	tick   time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// New creates a generator over drives, ticking at interval tick (DefaultTick
// if zero).
func New(drives []*drive.Drive, tick time.Duration) *Generator {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Generator{
		drives: drives,
		tick:   tick,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the generator loop on its own goroutine. It returns
// immediately; call Stop to request shutdown and block until the loop has
// driven every pin low and returned.
func (g *Generator) Start() {
	go g.run()
}

func (g *Generator) run() {
	defer close(g.doneCh)

	ticker := time.NewTicker(g.tick)
	defer ticker.Stop()

	tickUS := g.tick.Microseconds()

	for {
		select {
		case <-g.stopCh:
			g.teardown()
			return
		case <-ticker.C:
			// Round-robin in index order: independence requires that an
			// expensive step on one drive never starve another, and
			// per-drive work here is O(1).
			for _, d := range g.drives {
				if d.Active() {
					d.Tick(tickUS)
				}
			}
		}
	}
}

// Stop requests the loop to terminate and blocks until it has driven all
// pins low and exited. Safe to call multiple times.
func (g *Generator) Stop() {
	g.once.Do(func() {
		close(g.stopCh)
	})
	<-g.doneCh
}

func (g *Generator) teardown() {
	for _, d := range g.drives {
		d.Deactivate()
		d.Low()
	}
}
