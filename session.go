// Package fddc wires the voice allocator, pulse generator, controller and
// MIDI parser loop into one session with an explicit Start/Stop lifecycle
// and guaranteed pin-low teardown.
package fddc

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/quintinfsmith/fddc/internal/allocator"
	"github.com/quintinfsmith/fddc/internal/config"
	"github.com/quintinfsmith/fddc/internal/controller"
	"github.com/quintinfsmith/fddc/internal/drive"
	"github.com/quintinfsmith/fddc/internal/gpio"
	"github.com/quintinfsmith/fddc/internal/logging"
	"github.com/quintinfsmith/fddc/internal/midiloop"
	"github.com/quintinfsmith/fddc/internal/pacer"
	"github.com/quintinfsmith/fddc/internal/pitch"
	"github.com/quintinfsmith/fddc/internal/pulse"
	"github.com/quintinfsmith/fddc/internal/score"
	"github.com/quintinfsmith/fddc/internal/visualizer"
)

// Options configures one Session.
type Options struct {
	Pins         []gpio.PinPair
	Backend      gpio.Backend  // nil selects the live Linux backend, falling back to a mock
	TrackLimit   int           // 0 uses drive.DefaultTrackLimit
	TickInterval time.Duration // 0 uses pulse.DefaultTick

	ChannelConfig config.ChannelConfig

	Visualizer bool
	UIWriter   io.Writer // os.Stdout if nil

	Logger *logging.Logger

	Clock pacer.Clock // nil uses pacer.RealClock; override only in tests
}

// Session owns one play-through: a drive array, a pulse generator, a voice
// allocator, and either a live or file controller feeding the top-level
// MIDI parser loop. Construct one per CLI invocation, or one per file when
// multiple files are given, so a drive left mid-travel by one file doesn't
// start the next file off-phase.
type Session struct {
	opts Options

	backend   gpio.Backend
	drives    []*drive.Drive
	generator *pulse.Generator
	alloc     *allocator.Allocator
	vis       *visualizer.Visualizer

	ctx      context.Context
	cancelFn context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New constructs a session from opts. Any failure here (bad pin
// configuration, GPIO init failure) is a fatal startup error.
func New(opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = logging.New(false)
	}
	if opts.UIWriter == nil {
		opts.UIWriter = os.Stdout
	}

	backend := opts.Backend
	if backend == nil {
		live, err := gpio.NewLive()
		if err != nil {
			opts.Logger.Debugf("live GPIO backend unavailable (%v), falling back to the in-memory backend", err)
			backend = gpio.NewMock()
		} else {
			backend = live
		}
	}

	drives := make([]*drive.Drive, len(opts.Pins))
	seen := make(map[int]bool)
	for i, pp := range opts.Pins {
		if seen[pp.Step] || seen[pp.Dir] {
			return nil, fmt.Errorf("fddc: pin collision at drive %d (step=%d dir=%d)", i, pp.Step, pp.Dir)
		}
		seen[pp.Step], seen[pp.Dir] = true, true

		d, err := drive.New(i, pp.Step, pp.Dir, backend, opts.TrackLimit)
		if err != nil {
			return nil, fmt.Errorf("fddc: configure drive %d: %w", i, err)
		}
		drives[i] = d
	}

	table := pitch.NewTable()
	alloc := allocator.New(drives, table)
	for ch := 0; ch < config.NumChannels; ch++ {
		alloc.SetChannelMap(ch, opts.ChannelConfig.Drives[ch])
		alloc.SetVoicesPerNote(ch, opts.ChannelConfig.Voices[ch])
	}

	generator := pulse.New(drives, opts.TickInterval)

	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		opts:      opts,
		backend:   backend,
		drives:    drives,
		generator: generator,
		alloc:     alloc,
		ctx:       ctx,
		cancelFn:  cancel,
	}

	if opts.Visualizer {
		s.vis = visualizer.New(drives, alloc, opts.UIWriter)
	}

	return s, nil
}

// PlayLive runs the session against a live MIDI device (or /dev/zero if
// absent), blocking until End-of-Track, SIGINT, or ctx cancellation.
func (s *Session) PlayLive(devicePath string) error {
	ctrl, err := controller.NewLive(devicePath)
	if err != nil {
		return fmt.Errorf("fddc: open live controller: %w", err)
	}
	return s.play(ctrl)
}

// PlayFile loads path as a Standard MIDI File and plays it back through the
// pacer, blocking until End-of-Track, SIGINT, or ctx cancellation.
func (s *Session) PlayFile(path string) error {
	sc, err := score.Load(path)
	if err != nil {
		return fmt.Errorf("fddc: load score: %w", err)
	}

	clock := s.opts.Clock
	ctrl := controller.NewFile(sc.Ticks, sc.PPQN, clock)
	return s.play(ctrl)
}

func (s *Session) play(ctrl controller.Controller) error {
	// Startup homing: purge every drive before accepting any notes, not
	// only on a manual purge_all request.
	s.alloc.PurgeAll()

	s.generator.Start()
	defer s.generator.Stop()

	if s.vis != nil {
		s.vis.Run()
		defer s.vis.Stop()
	}

	s.setupSignalHandler()

	cancel := make(chan struct{})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-s.ctx.Done()
		close(cancel)
	}()

	if s.vis != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			select {
			case <-s.vis.RequestStop:
				s.Stop()
			case <-s.ctx.Done():
			}
		}()
	}

	midiloop.Run(ctrl, s.alloc, s.opts.Logger, cancel)

	s.Stop()
	s.wg.Wait()
	return nil
}

func (s *Session) setupSignalHandler() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-sigCh:
			s.Stop()
		case <-s.ctx.Done():
		}
	}()
}

// Stop requests the session to terminate. Safe to call multiple times and
// safe to call after the session has already finished on its own.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.cancelFn()
	})
}

// Close purges every free drive and releases the GPIO backend. Call once
// the session has finished (PlayLive/PlayFile has returned).
func (s *Session) Close() error {
	s.alloc.PurgeAll()
	return s.backend.Close()
}
