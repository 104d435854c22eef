package dashboard

import (
	"testing"

	"beacon/internal/worldmap"
)

func TestNewPeerIndices(t *testing.T) {
	known := map[string]struct{}{"1.2.3.4": {}, "5.6.7.8": {}}
	hosts := []string{"1.2.3.4", "9.9.9.9", "5.6.7.8", "8.8.8.8"}

	fresh := newPeerIndices(hosts, known)
	if len(fresh) != 2 {
		t.Fatalf("got %d fresh indices, want 2", len(fresh))
	}
	for _, idx := range []int{1, 3} {
		if _, ok := fresh[idx]; !ok {
			t.Errorf("index %d missing from fresh set", idx)
		}
	}
}

func TestNewPeerIndicesAllKnown(t *testing.T) {
	known := map[string]struct{}{"1.2.3.4": {}}
	if fresh := newPeerIndices([]string{"1.2.3.4"}, known); len(fresh) != 0 {
		t.Fatalf("got %d fresh indices, want 0", len(fresh))
	}
}

func TestStartBlinkEmptySetClears(t *testing.T) {
	a := &App{mapWidget: NewMapWidget(worldmap.NewRenderer(nil))}
	a.mapWidget.SetBlink(map[int]struct{}{0: {}}, false)

	a.startBlink(nil)

	a.mapWidget.mu.Lock()
	defer a.mapWidget.mu.Unlock()
	if a.mapWidget.blink != nil || !a.mapWidget.blinkVisible {
		t.Fatalf("blink = %v visible = %v, want cleared", a.mapWidget.blink, a.mapWidget.blinkVisible)
	}
}

func TestStartBlinkRestartsPreviousRun(t *testing.T) {
	a := &App{mapWidget: NewMapWidget(worldmap.NewRenderer(nil))}

	a.startBlink(map[int]struct{}{0: {}})
	first := a.blinkStop

	a.startBlink(map[int]struct{}{1: {}})
	if a.blinkStop == first {
		t.Fatal("expected a fresh stop channel for the second run")
	}
	select {
	case <-first:
	default:
		t.Fatal("previous blink run was not stopped")
	}
}
