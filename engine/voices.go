package engine

import (
	"time"

	"github.com/lumenaudio/lumen"
	"github.com/lumenaudio/lumen/transport"
)

type (
	voiceDef struct {
		voice    lumen.Voice
		every    transport.Subdivision
		octave   int
		length   transport.Subdivision
		velocity float64
		chance   bool // fire with a probability set by the note density
	}

	drumDef struct {
		voice  lumen.Voice
		volume float64
	}
)

var generativeVoices = [...]voiceDef{
	{voice: lumen.Pad, every: transport.TwoBars, octave: 3, length: transport.TwoBars, velocity: 0.35},
	{voice: lumen.Bass, every: transport.Half, octave: 2, length: transport.Quarter, velocity: 0.7},
	{voice: lumen.Lead, every: transport.Eighth, octave: 5, length: transport.Eighth, velocity: 0.55, chance: true},
	{voice: lumen.Arp, every: transport.Sixteenth, octave: 4, length: transport.Sixteenth, velocity: 0.45, chance: true},
}

var drumKit = [...]drumDef{
	{lumen.Kick, 1.0},
	{lumen.Snare, 0.8},
	{lumen.HiHat, 0.5},
	{lumen.OpenHat, 0.6},
}

// DensityThreshold returns the value a uniform random number in [0,1) must
// exceed for a lead or arp note to fire. Density 0 fires about 10% of the
// time, density 100 about 90%.
func DensityThreshold(density float64) float64 {
	return 0.9 - clamp(density, 0, 100)/100*0.8
}

func (p *Player) attachGenerative() {
	for _, v := range generativeVoices {
		id := p.clock.Schedule(v.every, func(int64) { p.playGenerative(v) })
		p.melodic = append(p.melodic, id)
	}
}

// playGenerative reads harmony, density and volume when the task fires, so
// changes apply from the next trigger on.
func (p *Player) playGenerative(v voiceDef) {
	if v.chance && p.gen.Rand().Float64() <= DensityThreshold(p.density) {
		return
	}
	dur := p.clock.Duration(v.length)
	vel := v.velocity * p.volume / 100
	if v.voice == lumen.Pad {
		for _, n := range p.gen.Chord(p.harmony, v.octave) {
			p.dispatch(v.voice, n, dur, vel)
		}
		return
	}
	p.dispatch(v.voice, p.gen.RandomNote(p.harmony, v.octave), dur, vel)
}

func (p *Player) attachAuthored() {
	for i := range p.score.Tracks {
		t := &p.score.Tracks[i]
		id := p.clock.Schedule(transport.Subdivision(t.Pulses()), func(pulse int64) { p.playAuthored(t, pulse) })
		p.melodic = append(p.melodic, id)
	}
}

func (p *Player) playAuthored(t *lumen.Track, pulse int64) {
	step := pulse / int64(t.Pulses()) % int64(t.StepCount())
	s, ok := t.At(int(step))
	if !ok {
		return
	}
	dur := time.Duration(s.Duration * float64(p.clock.Duration(transport.Subdivision(t.Pulses()))))
	vel := s.Velocity * p.volume / 100
	for _, n := range s.Notes {
		p.dispatch(t.Voice, n, dur, vel)
	}
}

func (p *Player) attachDrums() {
	for _, d := range drumKit {
		id := p.clock.Schedule(transport.Sixteenth, func(pulse int64) { p.playDrum(d, pulse) })
		p.drumTasks = append(p.drumTasks, id)
	}
}

// playDrum looks the current pattern up on every tick, so pattern switches
// and step edits are heard on the next sixteenth.
func (p *Player) playDrum(d drumDef, pulse int64) {
	if !p.store.Current().Hit(d.voice, pulse) {
		return
	}
	vel := d.volume * p.drumVolume / 100 * p.volume / 100
	p.dispatch(d.voice, lumen.DrumNote(d.voice), p.clock.Duration(transport.Sixteenth), vel)
}
