// Package config turns maps.json and CLI flag values into validated
// session options: per-channel drive pools and voice multipliers.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/quintinfsmith/fddc/internal/gpio"
)

// NumChannels is the number of MIDI channels a map/req table can address.
const NumChannels = 16

// FileEntry is one maps.json entry, keyed by MIDI file basename.
type FileEntry struct {
	Map map[string][]int `json:"map"`
	Req map[string]int   `json:"req"`
}

// MapsFile is the parsed shape of maps.json: file basename -> FileEntry.
type MapsFile map[string]FileEntry

// ChannelConfig is the resolved per-channel configuration the allocator
// consumes.
type ChannelConfig struct {
	Drives [NumChannels][]int
	Voices [NumChannels]int
}

// LoadMapsFile reads and parses a maps.json file. A missing file is not an
// error — it simply means no file-specific overrides exist — but malformed
// JSON is a fatal startup error.
func LoadMapsFile(path string) (MapsFile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return MapsFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var m MapsFile
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return m, nil
}

// LoadPinsFile reads a JSON array of {"step":n,"dir":n} pin assignments,
// one per drive, overriding the built-in pin-out. Unlike maps.json, a
// missing or malformed pins file is always a fatal startup error: without
// it there is no way to know which drives exist.
func LoadPinsFile(path string) ([]gpio.PinPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var pins []gpio.PinPair
	if err := json.Unmarshal(data, &pins); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return pins, nil
}

// MapFlag is one parsed "-m i:d1,d2,..." flag value.
type MapFlag struct {
	Channel int
	Drives  []int
}

// VoicesFlag is one parsed "-r i:n" flag value.
type VoicesFlag struct {
	Channel int
	Voices  int
}

// ParseMapFlag parses "channel:d1,d2,..." into a MapFlag.
func ParseMapFlag(s string) (MapFlag, error) {
	channel, rest, err := splitChannelPrefix(s)
	if err != nil {
		return MapFlag{}, err
	}

	parts := strings.Split(rest, ",")
	drives := make([]int, 0, len(parts))
	seen := make(map[int]bool, len(parts))
	for _, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return MapFlag{}, fmt.Errorf("config: invalid drive index %q in %q", p, s)
		}
		if seen[d] {
			return MapFlag{}, fmt.Errorf("config: duplicate drive index %d in %q", d, s)
		}
		seen[d] = true
		drives = append(drives, d)
	}

	return MapFlag{Channel: channel, Drives: drives}, nil
}

// ParseVoicesFlag parses "channel:n" into a VoicesFlag.
func ParseVoicesFlag(s string) (VoicesFlag, error) {
	channel, rest, err := splitChannelPrefix(s)
	if err != nil {
		return VoicesFlag{}, err
	}

	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil || n <= 0 {
		return VoicesFlag{}, fmt.Errorf("config: invalid voice count %q in %q", rest, s)
	}

	return VoicesFlag{Channel: channel, Voices: n}, nil
}

func splitChannelPrefix(s string) (channel int, rest string, err error) {
	idx := strings.IndexByte(s, ':')
	if idx < 0 {
		return 0, "", fmt.Errorf("config: expected \"channel:value\", got %q", s)
	}

	channel, err = strconv.Atoi(strings.TrimSpace(s[:idx]))
	if err != nil || channel < 0 || channel >= NumChannels {
		return 0, "", fmt.Errorf("config: invalid channel %q in %q", s[:idx], s)
	}
	return channel, s[idx+1:], nil
}

// Resolve merges maps.json's entry for filename (if any) with CLI flags.
// CLI flags take precedence per channel over the file's entries; channels
// named by neither keep the documented defaults (every drive permitted,
// one voice per note).
func Resolve(maps MapsFile, filename string, mapFlags []MapFlag, voicesFlags []VoicesFlag, numDrives int) ChannelConfig {
	var cfg ChannelConfig

	allDrives := make([]int, numDrives)
	for i := range allDrives {
		allDrives[i] = i
	}
	for c := 0; c < NumChannels; c++ {
		cfg.Drives[c] = append([]int(nil), allDrives...)
		cfg.Voices[c] = 1
	}

	if entry, ok := maps[filename]; ok {
		for chStr, drives := range entry.Map {
			if ch, err := strconv.Atoi(chStr); err == nil && ch >= 0 && ch < NumChannels {
				cfg.Drives[ch] = append([]int(nil), drives...)
			}
		}
		for chStr, n := range entry.Req {
			if ch, err := strconv.Atoi(chStr); err == nil && ch >= 0 && ch < NumChannels {
				cfg.Voices[ch] = n
			}
		}
	}

	for _, mf := range mapFlags {
		cfg.Drives[mf.Channel] = append([]int(nil), mf.Drives...)
	}
	for _, vf := range voicesFlags {
		cfg.Voices[vf.Channel] = vf.Voices
	}

	return cfg
}
