package controller

import "testing"

func TestLiveFallsBackToDevZero(t *testing.T) {
	l, err := NewLive("/nonexistent/path/to/midi/device")
	if err != nil {
		t.Fatalf("NewLive: %v", err)
	}
	defer l.Close()

	b, ok := l.Read()
	if !ok || b != 0 {
		t.Errorf("dry-run fallback should read zero bytes forever, got %d, %v", b, ok)
	}
}
