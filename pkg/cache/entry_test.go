package cache

import (
	"testing"
	"time"
)

func TestEntry_NewEntry(t *testing.T) {
	entry := NewEntry([]byte(`[{"id":1}]`), 200, time.Minute)

	if entry.IsExpired() {
		t.Error("Fresh entry must not be expired")
	}
	if entry.TTL() <= 0 || entry.TTL() > time.Minute {
		t.Errorf("TTL = %v, want in (0, 1m]", entry.TTL())
	}
	if entry.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", entry.StatusCode)
	}
}

func TestEntry_Expired(t *testing.T) {
	entry := NewEntry([]byte(`[]`), 200, -time.Minute)

	if !entry.IsExpired() {
		t.Error("Expected entry to be expired")
	}
	if entry.TTL() != 0 {
		t.Errorf("TTL = %v, want 0 for expired entry", entry.TTL())
	}
}
