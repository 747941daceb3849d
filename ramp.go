package lumen

import (
	"sync"
	"time"
)

// Ramp is a value that glides linearly towards a target over a wall-clock
// duration. It is safe to read from the audio goroutine while another
// goroutine sets new targets.
type Ramp struct {
	mu    sync.Mutex
	from  float64
	to    float64
	start time.Time
	dur   time.Duration
	now   func() time.Time
}

// NewRamp returns a ramp resting at v. now is used as the clock; nil means
// time.Now.
func NewRamp(v float64, now func() time.Time) *Ramp {
	if now == nil {
		now = time.Now
	}
	return &Ramp{from: v, to: v, now: now}
}

// Value returns the current value of the ramp.
func (r *Ramp) Value() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.valueAt(r.now())
}

func (r *Ramp) valueAt(t time.Time) float64 {
	if r.dur <= 0 {
		return r.to
	}
	elapsed := t.Sub(r.start)
	if elapsed >= r.dur {
		return r.to
	}
	if elapsed <= 0 {
		return r.from
	}
	return r.from + (r.to-r.from)*float64(elapsed)/float64(r.dur)
}

// Target returns the value the ramp is heading to.
func (r *Ramp) Target() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.to
}

// RampTo starts a new glide from the current value to v.
func (r *Ramp) RampTo(v float64, over time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.now()
	r.from = r.valueAt(t)
	r.to = v
	r.start = t
	r.dur = over
}

// Set jumps to v immediately.
func (r *Ramp) Set(v float64) {
	r.RampTo(v, 0)
}
