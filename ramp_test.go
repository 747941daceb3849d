package lumen_test

import (
	"math"
	"testing"
	"time"

	"github.com/lumenaudio/lumen"
)

func TestRamp(t *testing.T) {
	now := time.Unix(0, 0)
	r := lumen.NewRamp(100, func() time.Time { return now })
	r.RampTo(140, 2*time.Second)
	if v := r.Value(); v != 100 {
		t.Fatalf("value at ramp start = %v, want 100", v)
	}
	now = now.Add(time.Second)
	if v := r.Value(); math.Abs(v-120) > 1e-9 {
		t.Fatalf("value halfway = %v, want 120", v)
	}
	if r.Target() != 140 {
		t.Fatalf("target = %v, want 140", r.Target())
	}
	r.RampTo(100, time.Second)
	now = now.Add(500 * time.Millisecond)
	if v := r.Value(); math.Abs(v-110) > 1e-9 {
		t.Fatalf("retargeted ramp = %v, want 110", v)
	}
	now = now.Add(time.Hour)
	if v := r.Value(); v != 100 {
		t.Fatalf("ramp end = %v, want 100", v)
	}
}
