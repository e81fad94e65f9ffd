package allocator

import (
	"testing"

	"github.com/quintinfsmith/fddc/internal/drive"
	"github.com/quintinfsmith/fddc/internal/gpio"
	"github.com/quintinfsmith/fddc/internal/pitch"
)

func newTestAllocator(t *testing.T, n int) (*Allocator, *gpio.Mock) {
	t.Helper()
	backend := gpio.NewMock()
	drives := make([]*drive.Drive, n)
	for i := 0; i < n; i++ {
		d, err := drive.New(i, i*2, i*2+1, backend, 0)
		if err != nil {
			t.Fatalf("drive.New: %v", err)
		}
		drives[i] = d
	}
	return New(drives, pitch.NewTable()), backend
}

func TestPlayNoteAssignsFreeDrives(t *testing.T) {
	a, _ := newTestAllocator(t, 2)

	a.PlayNote(60, 0)
	a.PlayNote(62, 0)

	snap := a.Snapshot()
	if len(snap.FreePool) != 0 {
		t.Errorf("expected free pool empty after 2 notes on 2 drives, got %v", snap.FreePool)
	}
	if len(snap.InUse) != 2 {
		t.Errorf("expected 2 in-use voices, got %d", len(snap.InUse))
	}
}

func TestThirdNoteDroppedWhenOutOfDrives(t *testing.T) {
	a, _ := newTestAllocator(t, 2)

	a.PlayNote(60, 0)
	a.PlayNote(62, 0)
	a.PlayNote(64, 0)

	snap := a.Snapshot()
	if len(snap.InUse) != 2 {
		t.Errorf("expected 2 in-use voices after dropped 3rd note, got %d", len(snap.InUse))
	}
}

func TestVoiceMultiplierClaimsMultipleDrives(t *testing.T) {
	a, _ := newTestAllocator(t, 2)
	a.SetVoicesPerNote(0, 2)

	a.PlayNote(60, 0)

	snap := a.Snapshot()
	if len(snap.FreePool) != 0 {
		t.Errorf("expected both drives claimed by a single k=2 voice, got free pool %v", snap.FreePool)
	}
}

func TestChannelMapRestrictsDrives(t *testing.T) {
	a, _ := newTestAllocator(t, 2)
	a.SetChannelMap(1, []int{0})
	a.SetChannelMap(2, []int{1})

	a.PlayNote(60, 1)
	a.PlayNote(60, 2)

	snap := a.Snapshot()
	if got := snap.InUse["60:1"]; len(got) != 1 || got[0] != 0 {
		t.Errorf("channel 1 voice should use drive 0, got %v", got)
	}
	if got := snap.InUse["60:2"]; len(got) != 1 || got[0] != 1 {
		t.Errorf("channel 2 voice should use drive 1, got %v", got)
	}
}

func TestDuplicateNoteOnIsNoOp(t *testing.T) {
	a, _ := newTestAllocator(t, 2)

	a.PlayNote(60, 0)
	snapBefore := a.Snapshot()
	a.PlayNote(60, 0) // duplicate
	snapAfter := a.Snapshot()

	if len(snapBefore.FreePool) != len(snapAfter.FreePool) {
		t.Error("duplicate NoteOn should not claim another drive")
	}
}

func TestStopNoteIsIdempotentAndReleasesDrives(t *testing.T) {
	a, _ := newTestAllocator(t, 2)

	a.PlayNote(60, 0)
	a.StopNote(60, 0)
	snap := a.Snapshot()
	if len(snap.FreePool) != 2 {
		t.Errorf("expected both drives released, free pool %v", snap.FreePool)
	}

	a.StopNote(60, 0) // no-op, voice already released
	a.StopNote(99, 5) // no-op, voice never existed
}

func TestPlayThenStopIsEquivalentToNoOp(t *testing.T) {
	a, _ := newTestAllocator(t, 3)

	before := a.Snapshot()
	a.PlayNote(60, 0)
	a.StopNote(60, 0)
	after := a.Snapshot()

	if len(before.FreePool) != len(after.FreePool) {
		t.Error("play immediately followed by stop should leave the free pool's size unchanged")
	}
}

func TestNoteOffBeforeNoteOnOnSameVoice(t *testing.T) {
	// Mirrors the decisive same-tick ordering rule: a NoteOff must be fully
	// applied (drive released) before a NoteOn for the same voice is
	// re-admitted.
	a, _ := newTestAllocator(t, 1)

	a.PlayNote(60, 0)
	a.StopNote(60, 0)
	a.PlayNote(60, 0) // should succeed again since the drive was released

	snap := a.Snapshot()
	if len(snap.InUse) != 1 {
		t.Error("note should be replayable after being stopped")
	}
}
