package controller

import (
	"github.com/quintinfsmith/fddc/internal/bytequeue"
	"github.com/quintinfsmith/fddc/internal/pacer"
)

// defaultQueueCapacity comfortably holds several pending MIDI messages
// without the pacer ever needing to block on a full queue in practice.
const defaultQueueCapacity = 1024

// File is the file-driven controller variant: it wraps a pacer that
// produces bytes from tick-indexed score events, blocking Read on the
// pacer's queue.
type File struct {
	pacer *pacer.Pacer
	queue *bytequeue.Queue
}

var _ Controller = (*File)(nil)

// NewFile builds a file controller over ticks/ppqn, using clock (nil for
// the real clock).
func NewFile(ticks []pacer.TickEvents, ppqn int, clock pacer.Clock) *File {
	queue := bytequeue.New(defaultQueueCapacity)
	return &File{
		pacer: pacer.New(ticks, ppqn, queue, clock),
		queue: queue,
	}
}

func (f *File) Start() {
	f.pacer.Start()
}

func (f *File) Read() (byte, bool) {
	return f.queue.Read()
}

func (f *File) Close() {
	f.pacer.Stop()
}
