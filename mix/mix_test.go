package mix_test

import (
	"testing"

	"github.com/gopxl/beep"
	"github.com/lumenaudio/lumen"
	"github.com/lumenaudio/lumen/mix"
)

func constant(v float64, n int) beep.Streamer {
	return beep.Take(n, beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			samples[i] = [2]float64{v, v}
		}
		return len(samples), true
	}))
}

func TestMixerSumsAndDrains(t *testing.T) {
	m := mix.New(1000, nil)
	m.Add(constant(0.25, 10))
	m.Add(constant(0.5, 10))
	buf := make([][2]float64, 8)
	if n, ok := m.Stream(buf); n != 8 || !ok {
		t.Fatalf("Stream() = %d, %v", n, ok)
	}
	if buf[0][0] != 0.75 || buf[7][1] != 0.75 {
		t.Fatalf("mixed samples %v", buf)
	}
	m.Stream(buf)
	m.Stream(buf)
	if m.Voices() != 0 {
		t.Fatalf("%d voices left after draining", m.Voices())
	}
	if buf[7][0] != 0 {
		t.Fatalf("drained mixer not silent: %v", buf[7])
	}
}

func TestEchoFollowsWet(t *testing.T) {
	wet := lumen.NewRamp(0, nil)
	m := mix.New(1000, wet)
	m.Add(constant(1, 1))
	buf := make([][2]float64, 375)
	m.Stream(buf)
	m.Stream(buf)
	if buf[0][0] != 0 {
		t.Fatalf("echo heard with wet 0: %v", buf[0])
	}
	wet.Set(0.5)
	m.Stream(buf)
	if buf[0][0] <= 0 {
		t.Fatalf("no echo with wet 0.5: %v", buf[0])
	}
}
