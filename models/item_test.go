package models

import (
	"testing"
	"time"
)

func TestItemURL(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want string
	}{
		{"present", Item{"url": "https://x.example/1"}, "https://x.example/1"},
		{"absent", Item{}, ""},
		{"null", Item{"url": nil}, ""},
		{"wrong type", Item{"url": 42}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.URL("url"); got != tt.want {
				t.Errorf("URL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestItemTimestamp(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	if ts, ok := (Item{"created_at": now}).Timestamp("created_at"); !ok || !ts.Equal(now) {
		t.Errorf("time.Time value: got (%v, %v)", ts, ok)
	}
	if ts, ok := (Item{"created_at": "2026-05-01"}).Timestamp("created_at"); !ok || ts.Year() != 2026 {
		t.Errorf("string value: got (%v, %v)", ts, ok)
	}
	if _, ok := (Item{"created_at": "not a date"}).Timestamp("created_at"); ok {
		t.Error("unparseable string should report false")
	}
	if _, ok := (Item{"created_at": ""}).Timestamp("created_at"); ok {
		t.Error("empty string should report false")
	}
	if _, ok := (Item{}).Timestamp("created_at"); ok {
		t.Error("absent field should report false")
	}
	if _, ok := (Item{"created_at": 17}).Timestamp("created_at"); ok {
		t.Error("numeric field should report false")
	}
}
