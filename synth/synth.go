// Package synth is the in-process oscillator backend: every note is a small
// beep streamer added to a shared mixer.
package synth

import (
	"math"
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/lumenaudio/lumen"
	"github.com/lumenaudio/lumen/mix"
)

type (
	// Synth renders notes with simple oscillators. It is always ready.
	Synth struct {
		mu      sync.Mutex
		mixer   *mix.Mixer
		presets map[lumen.Voice]string
	}

	OscFunc func(phase float64) float64

	patch struct {
		osc     OscFunc
		attack  time.Duration
		release time.Duration
		detune  float64 // second oscillator, in semitones; 0 disables it
		level   float64
	}

	drumPatch struct {
		decay    time.Duration
		startHz  float64 // pitch sweep for tonal drums
		endHz    float64
		noise    float64 // 0 = pure tone, 1 = pure noise
		level    float64
		brightHz float64 // one-pole highpass corner for the noise
	}
)

var patches = map[string]patch{
	"warm":    {osc: Triangle, attack: 400 * time.Millisecond, release: 800 * time.Millisecond, detune: 0.07, level: 0.5},
	"glass":   {osc: Sine, attack: 200 * time.Millisecond, release: 1200 * time.Millisecond, detune: 12, level: 0.4},
	"choir":   {osc: Triangle, attack: 600 * time.Millisecond, release: time.Second, detune: 0.12, level: 0.45},
	"strings": {osc: Saw, attack: 500 * time.Millisecond, release: 900 * time.Millisecond, detune: 0.1, level: 0.3},
	"sub":     {osc: Sine, attack: 5 * time.Millisecond, release: 80 * time.Millisecond, level: 0.9},
	"acid":    {osc: Saw, attack: 2 * time.Millisecond, release: 60 * time.Millisecond, level: 0.5},
	"fm":      {osc: fmBass, attack: 3 * time.Millisecond, release: 100 * time.Millisecond, level: 0.6},
	"saw":     {osc: Saw, attack: 10 * time.Millisecond, release: 150 * time.Millisecond, detune: 0.05, level: 0.35},
	"square":  {osc: Square, attack: 10 * time.Millisecond, release: 120 * time.Millisecond, level: 0.3},
	"bell":    {osc: bell, attack: 2 * time.Millisecond, release: 600 * time.Millisecond, level: 0.45},
	"flute":   {osc: Sine, attack: 60 * time.Millisecond, release: 200 * time.Millisecond, detune: 12, level: 0.4},
	"pluck":   {osc: Triangle, attack: 2 * time.Millisecond, release: 120 * time.Millisecond, level: 0.5},
	"marimba": {osc: Sine, attack: time.Millisecond, release: 250 * time.Millisecond, detune: 24, level: 0.5},
	"chip":    {osc: Square, attack: time.Millisecond, release: 40 * time.Millisecond, level: 0.25},
}

var kits = map[string]map[lumen.Voice]drumPatch{
	"808": {
		lumen.Kick:    {decay: 600 * time.Millisecond, startHz: 120, endHz: 45, level: 1},
		lumen.Snare:   {decay: 180 * time.Millisecond, startHz: 220, endHz: 180, noise: 0.6, level: 0.7, brightHz: 1500},
		lumen.HiHat:   {decay: 50 * time.Millisecond, noise: 1, level: 0.4, brightHz: 7000},
		lumen.OpenHat: {decay: 300 * time.Millisecond, noise: 1, level: 0.35, brightHz: 6000},
	},
	"909": {
		lumen.Kick:    {decay: 300 * time.Millisecond, startHz: 200, endHz: 55, level: 1},
		lumen.Snare:   {decay: 150 * time.Millisecond, startHz: 250, endHz: 200, noise: 0.75, level: 0.75, brightHz: 2500},
		lumen.HiHat:   {decay: 40 * time.Millisecond, noise: 1, level: 0.45, brightHz: 8000},
		lumen.OpenHat: {decay: 220 * time.Millisecond, noise: 1, level: 0.4, brightHz: 7000},
	},
	"linn": {
		lumen.Kick:    {decay: 200 * time.Millisecond, startHz: 150, endHz: 60, noise: 0.1, level: 1},
		lumen.Snare:   {decay: 200 * time.Millisecond, startHz: 190, endHz: 160, noise: 0.5, level: 0.7, brightHz: 1200},
		lumen.HiHat:   {decay: 60 * time.Millisecond, noise: 1, level: 0.35, brightHz: 5000},
		lumen.OpenHat: {decay: 350 * time.Millisecond, noise: 1, level: 0.3, brightHz: 5000},
	},
	"cr78": {
		lumen.Kick:    {decay: 150 * time.Millisecond, startHz: 90, endHz: 70, level: 0.9},
		lumen.Snare:   {decay: 100 * time.Millisecond, startHz: 400, endHz: 400, noise: 0.4, level: 0.6, brightHz: 3000},
		lumen.HiHat:   {decay: 30 * time.Millisecond, noise: 1, level: 0.3, brightHz: 9000},
		lumen.OpenHat: {decay: 150 * time.Millisecond, noise: 1, level: 0.3, brightHz: 8000},
	},
}

func New(mixer *mix.Mixer) *Synth {
	s := &Synth{mixer: mixer, presets: map[lumen.Voice]string{}}
	for v, ps := range lumen.Presets {
		s.presets[v] = ps[0]
	}
	for _, v := range lumen.DrumVoices {
		s.presets[v] = lumen.Kits[0]
	}
	return s
}

func (s *Synth) IsReady(lumen.Voice) bool { return true }

func (s *Synth) ChangePreset(v lumen.Voice, preset string) error {
	if !lumen.HasPreset(v, preset) {
		return fault.New("unknown preset", ftag.With(ftag.NotFound), fmsg.WithDesc(preset, "No preset "+preset+" for "+string(v)))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presets[v] = preset
	return nil
}

func (s *Synth) preset(v lumen.Voice) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presets[v]
}

func (s *Synth) Play(v lumen.Voice, n lumen.Note, dur time.Duration, velocity float64) error {
	sr := float64(s.mixer.SampleRate())
	if v.IsDrum() {
		p := kits[s.preset(v)][v]
		s.mixer.Add(newDrum(p, sr, velocity))
		return nil
	}
	p, ok := patches[s.preset(v)]
	if !ok {
		return fault.New("no patch for preset", ftag.With(ftag.NotFound), fmsg.WithDesc(s.preset(v), "Synth has no patch for "+s.preset(v)))
	}
	s.mixer.Add(newTone(p, Frequency(n), sr, dur, velocity))
	return nil
}

// Frequency returns the equal-tempered frequency of a note, A4 = 440 Hz.
func Frequency(n lumen.Note) float64 {
	return 440 * math.Pow(2, (float64(n)-69)/12)
}
