// Command fddc drives an array of floppy disk drives as a polyphonic
// stepper-motor tone generator, playing either a live MIDI device or a
// list of MIDI files in order.
package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/quintinfsmith/fddc"
	"github.com/quintinfsmith/fddc/internal/config"
	"github.com/quintinfsmith/fddc/internal/controller"
	"github.com/quintinfsmith/fddc/internal/gpio"
	"github.com/quintinfsmith/fddc/internal/logging"
)

// defaultPins mirrors the reference wiring: an 8-drive array addressed
// through a handful of GPIO headers. Overridable with --pins.
var defaultPins = []gpio.PinPair{
	{Step: 9, Dir: 8},
	{Step: 16, Dir: 15},
	{Step: 4, Dir: 1},
	{Step: 2, Dir: 0},
	{Step: 11, Dir: 10},
	{Step: 12, Dir: 3},
	{Step: 6, Dir: 5},
	{Step: 14, Dir: 13},
}

var (
	flagMaps        []string
	flagVoices      []string
	flagConfigPath  string
	flagPinsPath    string
	flagTick        time.Duration
	flagNoVisualize bool
	flagVerbose     bool
)

func main() {
	root := &cobra.Command{
		Use:   "fddc [midi-file]...",
		Short: "Drive an array of floppy disk drives as a tone generator",
		RunE:  run,
	}

	root.Flags().StringArrayVarP(&flagMaps, "map", "m", nil, "channel:d1,d2,... sets a channel's drive pool (repeatable)")
	root.Flags().StringArrayVarP(&flagVoices, "voices", "r", nil, "channel:n sets a channel's voices-per-note (repeatable)")
	root.Flags().StringVarP(&flagConfigPath, "config", "c", "maps.json", "path to the channel-map config file")
	root.Flags().StringVarP(&flagPinsPath, "pins", "p", "", "path to a JSON pin-out list (default built-in pin-out)")
	root.Flags().DurationVar(&flagTick, "tick", 0, "pulse generator tick interval override")
	root.Flags().BoolVar(&flagNoVisualize, "no-visualizer", false, "suppress the terminal visualizer")
	root.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "log silent-drop diagnostics")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := logging.New(flagVerbose)

	pins, err := loadPins()
	if err != nil {
		logger.Fatal("failed to load pin-out", "err", err)
	}

	mapsFile, err := config.LoadMapsFile(flagConfigPath)
	if err != nil {
		logger.Fatal("failed to load maps.json", "err", err)
	}

	mapFlags, voicesFlags, err := parseOverrideFlags()
	if err != nil {
		logger.Fatal("failed to parse -m/-r flags", "err", err)
	}

	if len(args) == 0 {
		return runLive(pins, mapsFile, mapFlags, voicesFlags, logger)
	}
	return runFiles(args, pins, mapsFile, mapFlags, voicesFlags, logger)
}

func runLive(pins []gpio.PinPair, mapsFile config.MapsFile, mapFlags []config.MapFlag, voicesFlags []config.VoicesFlag, logger *logging.Logger) error {
	cfg := config.Resolve(mapsFile, "", mapFlags, voicesFlags, len(pins))

	sess, err := fddc.New(fddc.Options{
		Pins:          pins,
		TickInterval:  flagTick,
		ChannelConfig: cfg,
		Visualizer:    !flagNoVisualize,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal("failed to start session", "err", err)
	}
	defer sess.Close()

	return sess.PlayLive(controller.DefaultMIDIDevice)
}

func runFiles(paths []string, pins []gpio.PinPair, mapsFile config.MapsFile, mapFlags []config.MapFlag, voicesFlags []config.VoicesFlag, logger *logging.Logger) error {
	for _, path := range paths {
		name := filepath.Base(path)
		cfg := config.Resolve(mapsFile, name, mapFlags, voicesFlags, len(pins))

		sess, err := fddc.New(fddc.Options{
			Pins:          pins,
			TickInterval:  flagTick,
			ChannelConfig: cfg,
			Visualizer:    !flagNoVisualize,
			Logger:        logger,
		})
		if err != nil {
			logger.Fatal("failed to start session", "err", err, "file", path)
		}

		if err := sess.PlayFile(path); err != nil {
			sess.Close()
			logger.Fatal("playback failed", "err", err, "file", path)
		}
		// Graceful multi-file playback: Close purges the drives in the free
		// pool between files so a drive left mid-travel doesn't start the
		// next file off-phase. Drives still assigned to a voice when
		// playback ends are not purged.
		sess.Close()
	}
	return nil
}

func loadPins() ([]gpio.PinPair, error) {
	if flagPinsPath == "" {
		return defaultPins, nil
	}

	return config.LoadPinsFile(flagPinsPath)
}

func parseOverrideFlags() ([]config.MapFlag, []config.VoicesFlag, error) {
	mapFlags := make([]config.MapFlag, 0, len(flagMaps))
	for _, s := range flagMaps {
		mf, err := config.ParseMapFlag(s)
		if err != nil {
			return nil, nil, err
		}
		mapFlags = append(mapFlags, mf)
	}

	voicesFlags := make([]config.VoicesFlag, 0, len(flagVoices))
	for _, s := range flagVoices {
		vf, err := config.ParseVoicesFlag(s)
		if err != nil {
			return nil, nil, err
		}
		voicesFlags = append(voicesFlags, vf)
	}

	return mapFlags, voicesFlags, nil
}
