// Package allocator implements the FDDC voice allocator: it maps incoming
// (note, channel) pairs to drive indices, honoring per-channel drive pools
// and voice multipliers, and maintains the free pool. It is not re-entrant;
// callers must serialize access from a single goroutine (the event-consumer
// loop).
package allocator

import (
	"strconv"

	clone "github.com/huandu/go-clone/generic"

	"github.com/quintinfsmith/fddc/internal/drive"
	"github.com/quintinfsmith/fddc/internal/pitch"
)

// NumChannels is the number of MIDI channels.
const NumChannels = 16

// voice is the key into the in-use map.
type voice struct {
	note    int
	channel int
}

// Allocator is the FDDC voice allocator. It owns the free pool and in-use
// map; drive records themselves are shared with the pulse generator, which
// owns their private stepping fields.
type Allocator struct {
	drives []*drive.Drive
	table  *pitch.Table

	channelMap [NumChannels][]int
	voices     [NumChannels]int

	freePool []int
	inUse    map[voice][]int
}

// New builds an allocator over drives. By default every channel may use
// every drive and every channel's voice multiplier is 1, matching the
// documented defaults.
func New(drives []*drive.Drive, table *pitch.Table) *Allocator {
	a := &Allocator{
		drives: drives,
		table:  table,
		inUse:  make(map[voice][]int),
	}

	all := make([]int, len(drives))
	for i := range drives {
		all[i] = i
	}
	for c := 0; c < NumChannels; c++ {
		a.channelMap[c] = append([]int(nil), all...)
		a.voices[c] = 1
	}
	a.freePool = append([]int(nil), all...)

	return a
}

// SetChannelMap installs the permitted drive set for channel.
func (a *Allocator) SetChannelMap(channel int, driveIndices []int) {
	if channel < 0 || channel >= NumChannels {
		return
	}
	a.channelMap[channel] = append([]int(nil), driveIndices...)
}

// SetVoicesPerNote installs the voice multiplier k for channel.
func (a *Allocator) SetVoicesPerNote(channel, k int) {
	if channel < 0 || channel >= NumChannels || k <= 0 {
		return
	}
	a.voices[channel] = k
}

// PlayNote allocates up to voices-per-note(channel) drives for (note,
// channel) and activates them with half_period_us = τ(note)·1000, τ being
// the pitch table's half-period. A duplicate NoteOn on an
// already-sounding voice is a silent no-op. If no eligible drive is free on
// the first attempt, the note is dropped silently; if only later attempts
// within the same call fail, the note sounds with fewer voices than
// requested.
func (a *Allocator) PlayNote(note, channel int) {
	if channel < 0 || channel >= NumChannels {
		return
	}
	v := voice{note: note, channel: channel}
	if _, ok := a.inUse[v]; ok {
		return
	}

	k := a.voices[channel]
	if k <= 0 {
		k = 1
	}

	halfPeriodUS := int64(a.table.HalfPeriodUS(note) * 1000)

	claimed := make([]int, 0, k)
	for i := 0; i < k; i++ {
		idx := a.claimDrive(channel)
		if idx == -1 {
			if len(claimed) == 0 {
				return
			}
			break
		}
		claimed = append(claimed, idx)

		d := a.drives[idx]
		d.ResetPhase()
		d.Activate(halfPeriodUS)
	}

	a.inUse[v] = claimed
}

// claimDrive scans the free pool in order and returns the first drive index
// that is also a member of channel's permitted set, removing it from the
// free pool. Returns -1 if none is eligible.
func (a *Allocator) claimDrive(channel int) int {
	permitted := a.channelMap[channel]

	for i, candidate := range a.freePool {
		for _, p := range permitted {
			if p == candidate {
				a.freePool = append(a.freePool[:i], a.freePool[i+1:]...)
				return candidate
			}
		}
	}
	return -1
}

// StopNote releases the drives claimed by a previous PlayNote for (note,
// channel). Idempotent: stopping a voice that isn't in-use is a no-op.
func (a *Allocator) StopNote(note, channel int) {
	v := voice{note: note, channel: channel}
	indices, ok := a.inUse[v]
	if !ok {
		return
	}

	for _, idx := range indices {
		a.drives[idx].Deactivate()
		a.freePool = append(a.freePool, idx) // FIFO: appended to the end
	}

	delete(a.inUse, v)
}

// PurgeAll homes every drive currently in the free pool. Called when a
// session starts playing and when it is closed.
func (a *Allocator) PurgeAll() {
	for _, idx := range a.freePool {
		a.drives[idx].Purge()
	}
}

// Snapshot is a read-only, deep-copied view of allocator state suitable for
// a visualizer to poll without risking a data race with the event-consumer
// goroutine. It is never a live reference into the allocator's own slices
// and maps.
type Snapshot struct {
	FreePool []int
	InUse    map[string][]int
}

// Snapshot deep-clones the free pool and in-use map via go-clone, matching
// the teacher's own use of go-clone to isolate test fixtures from the live
// object being cloned.
func (a *Allocator) Snapshot() Snapshot {
	free := clone.Clone(a.freePool)

	inUse := make(map[string][]int, len(a.inUse))
	for v, indices := range a.inUse {
		inUse[voiceKey(v)] = clone.Clone(indices)
	}

	return Snapshot{FreePool: free, InUse: inUse}
}

func voiceKey(v voice) string {
	return strconv.Itoa(v.note) + ":" + strconv.Itoa(v.channel)
}
