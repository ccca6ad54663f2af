package kpi

import (
	"testing"
	"time"
)

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(3)
	for _, v := range []float64{2, 4, 6, 8} {
		r.Push(v)
	}

	got := r.Values()
	want := []float64{4, 6, 8}
	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("values[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if r.Mean() != 6.0 {
		t.Errorf("mean = %v, want 6.0", r.Mean())
	}
}

func TestRingEmptyMean(t *testing.T) {
	r := NewRing(5)
	if r.Mean() != 0 {
		t.Errorf("empty ring mean = %v, want 0", r.Mean())
	}
	if r.Len() != 0 {
		t.Errorf("empty ring len = %d", r.Len())
	}
}

func TestRingWrapsRepeatedly(t *testing.T) {
	r := NewRing(4)
	for i := 1; i <= 10; i++ {
		r.Push(float64(i))
	}
	// Retains 7, 8, 9, 10.
	if r.Mean() != 8.5 {
		t.Errorf("mean = %v, want 8.5", r.Mean())
	}
}

func TestSampleRingOrder(t *testing.T) {
	r := NewSampleRing(3)
	base := time.Unix(0, 0)
	for i := 0; i < 5; i++ {
		r.Push(base.Add(time.Duration(i)*time.Minute), float64(i))
	}

	vals := r.Values()
	if len(vals) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(vals))
	}
	for i, s := range vals {
		if s.Value != float64(i+2) {
			t.Errorf("sample %d = %v, want %v (oldest first)", i, s.Value, float64(i+2))
		}
	}
}
