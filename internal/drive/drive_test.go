package drive

import (
	"testing"
	"time"

	"github.com/quintinfsmith/fddc/internal/gpio"
)

func TestNewConfiguresPins(t *testing.T) {
	backend := gpio.NewMock()
	d, err := New(0, 4, 5, backend, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.Active() {
		t.Error("new drive should be inactive")
	}
	if d.Position() != 0 {
		t.Error("new drive should be at position 0")
	}
}

func TestActivateDeactivate(t *testing.T) {
	backend := gpio.NewMock()
	d, _ := New(0, 4, 5, backend, 0)

	d.Activate(100)
	if !d.Active() || d.HalfPeriodUS() != 100 {
		t.Fatal("activation should publish active=true and the half-period")
	}

	d.Deactivate()
	if d.Active() || d.HalfPeriodUS() != 0 {
		t.Fatal("deactivation should publish active=false and clear the half-period")
	}
}

func TestTickSteppingRate(t *testing.T) {
	backend := gpio.NewMock()
	d, _ := New(0, 4, 5, backend, 0)
	d.Activate(50) // half-period 50us

	// 10 ticks of 10us each should produce exactly 2 step edges (each edge
	// at 50us accumulated).
	for i := 0; i < 10; i++ {
		d.Tick(10)
	}

	history := backend.History()
	edges := 0
	for _, w := range history {
		if w.Pin == 4 {
			edges++
		}
	}
	if edges != 2 {
		t.Errorf("expected 2 step edges over 100us at half-period 50us, got %d", edges)
	}
}

func TestTrackLimitReversal(t *testing.T) {
	backend := gpio.NewMock()
	d, _ := New(0, 4, 5, backend, 2)
	d.Activate(10)

	// Step far enough to hit the limit and reverse, then come back to 0.
	for i := 0; i < 20; i++ {
		d.Tick(10)
	}

	if d.Position() < -2 || d.Position() > 2 {
		t.Errorf("position %d exceeded track limit of 2", d.Position())
	}
}

func TestPhaseResetOnIdle(t *testing.T) {
	backend := gpio.NewMock()
	d, _ := New(0, 4, 5, backend, 0)
	d.Activate(100)
	d.Tick(60) // accumulate 60us, below the 100us half-period

	d.Deactivate()
	d.ResetPhase()
	d.Activate(100)
	d.Tick(60)

	history := backend.History()
	for _, w := range history {
		if w.Pin == 4 {
			t.Fatal("no step edge should occur before phase resets and a fresh half-period elapses")
		}
	}
}

func TestPurgeReturnsToOrigin(t *testing.T) {
	backend := gpio.NewMock()
	d, _ := New(0, 4, 5, backend, 80)
	d.Activate(10)
	for i := 0; i < 30; i++ {
		d.Tick(10)
	}

	d.Purge()
	if d.Position() != 0 {
		t.Errorf("Purge should home position to 0, got %d", d.Position())
	}
}

func TestPurgeFromNegativePosition(t *testing.T) {
	backend := gpio.NewMock()
	d, _ := New(0, 4, 5, backend, 2)
	d.Activate(10)

	// Enough ticks to reverse at the +2 limit and descend through 0 to a
	// negative position, the normal oscillation the data model describes.
	for i := 0; i < 70; i++ {
		d.Tick(10)
	}
	if d.Position() >= 0 {
		t.Fatalf("test setup expected a negative position, got %d", d.Position())
	}

	done := make(chan struct{})
	go func() {
		d.Purge()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Purge did not return from a negative starting position")
	}

	if d.Position() != 0 {
		t.Errorf("Purge should home position to 0, got %d", d.Position())
	}
}
