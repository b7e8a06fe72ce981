package models

import (
	"testing"
	"time"
)

func TestVitalSample_Time(t *testing.T) {
	s := VitalSample{Timestamp: 1700000000.25}
	got := s.Time()
	want := time.Unix(1700000000, 250_000_000).UTC()
	if d := got.Sub(want); d > time.Millisecond || d < -time.Millisecond {
		t.Errorf("Time() = %v, want %v", got, want)
	}
}

func TestBed_CurrentVitals(t *testing.T) {
	var empty Bed
	if empty.CurrentVitals() != nil {
		t.Error("CurrentVitals() on empty cache should be nil")
	}

	b := Bed{RecentSamples: []VitalSample{{Timestamp: 1, HeartRate: 60}, {Timestamp: 2, HeartRate: 70}}}
	cur := b.CurrentVitals()
	if cur == nil {
		t.Fatal("CurrentVitals() = nil, want last sample")
	}
	if cur.HeartRate != 70 {
		t.Errorf("HeartRate = %d, want 70", cur.HeartRate)
	}

	// Returned value must be a copy.
	cur.HeartRate = 0
	if b.RecentSamples[1].HeartRate != 70 {
		t.Error("CurrentVitals() must not alias the cache")
	}
}
