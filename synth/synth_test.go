package synth_test

import (
	"math"
	"testing"
	"time"

	"github.com/lumenaudio/lumen"
	"github.com/lumenaudio/lumen/mix"
	"github.com/lumenaudio/lumen/synth"
)

func TestEveryPresetPlays(t *testing.T) {
	m := mix.New(8000, nil)
	s := synth.New(m)
	for _, v := range append(append([]lumen.Voice{}, lumen.MelodicVoices...), lumen.DrumVoices...) {
		for _, p := range lumen.PresetsFor(v) {
			if err := s.ChangePreset(v, p); err != nil {
				t.Fatalf("ChangePreset(%v, %v): %v", v, p, err)
			}
			if err := s.Play(v, 60, 100*time.Millisecond, 0.8); err != nil {
				t.Fatalf("Play(%v) with %v: %v", v, p, err)
			}
		}
	}
	buf := make([][2]float64, 800)
	m.Stream(buf)
	peak := 0.0
	for _, frame := range buf {
		peak = math.Max(peak, math.Abs(frame[0]))
	}
	if peak == 0 {
		t.Fatal("synth produced silence")
	}
	for range 40 {
		m.Stream(buf)
	}
	if m.Voices() != 0 {
		t.Fatalf("%d notes still sounding after 4 seconds", m.Voices())
	}
}

func TestUnknownPreset(t *testing.T) {
	s := synth.New(mix.New(8000, nil))
	if err := s.ChangePreset(lumen.Lead, "808"); !lumen.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestFrequency(t *testing.T) {
	if f := synth.Frequency(69); f != 440 {
		t.Errorf("A4 = %v Hz", f)
	}
	if f := synth.Frequency(81); math.Abs(f-880) > 1e-9 {
		t.Errorf("A5 = %v Hz", f)
	}
}
