package controller

import "os"

// DefaultMIDIDevice is the path a live controller reads from when the
// caller doesn't override it.
const DefaultMIDIDevice = "/dev/midi1"

// Live reads raw bytes from a MIDI device file. If the device is absent it
// falls back to /dev/zero, which returns zero bytes forever -
// dry-run mode that keeps the upper parser loop alive with no actual notes
// arriving.
type Live struct {
	f *os.File
}

var _ Controller = (*Live)(nil)

// NewLive opens path, or /dev/zero if path doesn't exist.
func NewLive(path string) (*Live, error) {
	if path == "" {
		path = DefaultMIDIDevice
	}

	f, err := os.Open(path)
	if err != nil {
		f, err = os.Open("/dev/zero")
		if err != nil {
			return nil, err
		}
	}
	return &Live{f: f}, nil
}

func (l *Live) Start() {}

func (l *Live) Read() (byte, bool) {
	var buf [1]byte
	n, err := l.f.Read(buf[:])
	if n == 0 || err != nil {
		return 0, false
	}
	return buf[0], true
}

func (l *Live) Close() {
	l.f.Close()
}
