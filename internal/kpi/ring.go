package kpi

import "time"

// Ring is a fixed-capacity sample buffer: pushing onto a full ring evicts
// the oldest sample. Used for sliding-window averages, not decaying ones.
type Ring struct {
	buf   []float64
	start int
	n     int
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{buf: make([]float64, capacity)}
}

func (r *Ring) Push(v float64) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

func (r *Ring) Len() int { return r.n }

// Values returns the retained samples, oldest first.
func (r *Ring) Values() []float64 {
	out := make([]float64, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Mean is the exact arithmetic mean of the retained samples, recomputed
// from the buffer every call. Empty ring means zero.
func (r *Ring) Mean() float64 {
	if r.n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < r.n; i++ {
		sum += r.buf[(r.start+i)%len(r.buf)]
	}
	return sum / float64(r.n)
}

// TimedSample is one historical observation.
type TimedSample struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"`
}

// SampleRing is a Ring of timestamped samples, used for the historical
// series behind Historical queries.
type SampleRing struct {
	buf   []TimedSample
	start int
	n     int
}

func NewSampleRing(capacity int) *SampleRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &SampleRing{buf: make([]TimedSample, capacity)}
}

func (r *SampleRing) Push(at time.Time, v float64) {
	s := TimedSample{At: at, Value: v}
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = s
		r.n++
		return
	}
	r.buf[r.start] = s
	r.start = (r.start + 1) % len(r.buf)
}

// Values returns the retained samples, oldest first.
func (r *SampleRing) Values() []TimedSample {
	out := make([]TimedSample, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}
