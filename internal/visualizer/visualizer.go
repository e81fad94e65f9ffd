// Package visualizer implements a read-only terminal status display of
// drive state. It never touches the allocator's live structures directly:
// every redraw works from a snapshot, so it cannot stall the event loop.
package visualizer

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/fatih/color"

	"github.com/quintinfsmith/fddc/internal/allocator"
	"github.com/quintinfsmith/fddc/internal/drive"
)

var (
	active = color.New(color.FgGreen).SprintFunc()
	idle   = color.New(color.Faint).SprintFunc()
	header = color.New(color.FgHiBlue).SprintFunc()
)

const (
	escape     = "\x1b["
	hideCursor = escape + "?25l"
	showCursor = escape + "?25h"
)

// Visualizer renders one status line per drive, redrawing in place with a
// cursor-up escape rather than clearing the screen, matching the teacher's
// own render loop.
type Visualizer struct {
	drives []*drive.Drive
	alloc  *allocator.Allocator
	w      io.Writer

	cancelFn       context.CancelFunc
	ctx            context.Context
	wg             sync.WaitGroup
	stopOnce       sync.Once
	keyboardDoneCh chan struct{}

	// RequestStop is closed when a quit keypress is observed; the caller
	// (Session) selects on it alongside SIGINT.
	RequestStop chan struct{}
}

// New builds a visualizer over drives/alloc, writing to w.
func New(drives []*drive.Drive, alloc *allocator.Allocator, w io.Writer) *Visualizer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Visualizer{
		drives:         drives,
		alloc:          alloc,
		w:              w,
		ctx:            ctx,
		cancelFn:       cancel,
		keyboardDoneCh: make(chan struct{}),
		RequestStop:    make(chan struct{}),
	}
}

// Run starts the render loop and keyboard listener on background
// goroutines and returns immediately. Call Stop to tear both down.
func (v *Visualizer) Run() {
	fmt.Fprint(v.w, hideCursor)

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		v.renderLoop()
	}()

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		keyboard.Listen(func(key keys.Key) (stop bool, err error) {
			if key.Code == keys.CtrlC || key.Code == keys.Escape {
				v.signalStop()
				return true, nil
			}
			if key.Code == keys.RuneKey && len(key.Runes) > 0 && key.Runes[0] == 'q' {
				v.signalStop()
				return true, nil
			}
			return false, nil
		})
		close(v.keyboardDoneCh)
	}()
}

func (v *Visualizer) signalStop() {
	v.stopOnce.Do(func() {
		close(v.RequestStop)
	})
}

// refreshInterval is how often the visualizer takes a fresh snapshot. It is
// a read-only observer, not part of the real-time path, so this is far
// coarser than the pulse generator's own tick.
const refreshInterval = 50 * time.Millisecond

func (v *Visualizer) renderLoop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-v.ctx.Done():
			return
		case <-ticker.C:
			v.render()
		}
	}
}

func (v *Visualizer) render() {
	snap := v.alloc.Snapshot()
	freeSet := make(map[int]bool, len(snap.FreePool))
	for _, idx := range snap.FreePool {
		freeSet[idx] = true
	}

	fmt.Fprintln(v.w, header("drive  in-use   pos  dir  state"))
	for _, d := range v.drives {
		state := idle("idle")
		if d.Active() {
			state = active("active")
		}
		dir := "fwd"
		if d.Direction() == drive.Reverse {
			dir = "rev"
		}
		fmt.Fprintf(v.w, "%5d  %7v  %3d  %3s  %s\n", d.Index, !freeSet[d.Index], d.Position(), dir, state)
	}

	// Move cursor back to the top of the table for the next redraw.
	fmt.Fprintf(v.w, escape+"%dF", len(v.drives)+1)
}

// Stop tears down the render loop and restores the cursor. Safe to call
// multiple times. It waits briefly for the keyboard listener to unwind on
// its own; a listener blocked past that window is abandoned rather than
// holding up session shutdown.
func (v *Visualizer) Stop() {
	v.cancelFn()

	select {
	case <-v.keyboardDoneCh:
	case <-time.After(500 * time.Millisecond):
	}

	fmt.Fprint(v.w, showCursor)
}
