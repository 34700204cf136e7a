package dbtypes

import "testing"

func TestStringRingPushKeepsNewest(t *testing.T) {
	ring := StringRing{}
	for i := 0; i < 25; i++ {
		ring = ring.Push(string(rune('a'+i)), 20)
	}
	if len(ring) != 20 {
		t.Fatalf("expected 20 entries, got %d", len(ring))
	}
	if ring[0] != "f" || ring[19] != "y" {
		t.Fatalf("unexpected window %v", ring)
	}
}

func TestStringRingRoundTrip(t *testing.T) {
	value, err := StringRing{"design", "writing"}.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var scanned StringRing
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(scanned) != 2 || scanned[1] != "writing" {
		t.Fatalf("unexpected ring %v", scanned)
	}

	var empty StringRing
	if err := empty.Scan(nil); err != nil || len(empty) != 0 {
		t.Fatalf("expected empty ring from nil, got %v (%v)", empty, err)
	}
}
