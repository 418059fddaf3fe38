package orders

import "testing"

func TestStatusToProgress(t *testing.T) {
	tests := []struct {
		status   string
		percent  int
		icon     string
		terminal bool
	}{
		{"pending", 25, IconClock, false},
		{"confirmed", 50, IconPackage, false},
		{"processing", 50, IconPackage, false},
		{"preparing", 75, IconPackage, false},
		{"ready", 75, IconPackage, false},
		{"out_for_delivery", 90, IconTruck, false},
		{"shipped", 90, IconTruck, false},
		{"delivered", 100, IconCheck, true},
		{"cancelled", 0, IconNone, true},
		{"  SHIPPED ", 90, IconTruck, false},
		{"Delivered", 100, IconCheck, true},
		{"", 25, IconClock, false},
		{"lost_in_space", 25, IconClock, false},
	}
	for _, tt := range tests {
		got := StatusToProgress(tt.status)
		if got.Percent != tt.percent || got.Icon != tt.icon || got.Terminal != tt.terminal {
			t.Fatalf("status %q: got %+v", tt.status, got)
		}
	}
}

func TestCancelledIsRed(t *testing.T) {
	if got := StatusToProgress("cancelled").Color; got != "red" {
		t.Fatalf("expected red, got %s", got)
	}
}

func TestTrackingPath(t *testing.T) {
	if got := TrackingPath("abc"); got != "/track-order/abc" {
		t.Fatalf("unexpected path %s", got)
	}
}
