package synth

import (
	"math"
	"math/rand/v2"
	"time"
)

func Sine(phase float64) float64 {
	return math.Sin(2 * math.Pi * phase)
}

func Saw(phase float64) float64 {
	return 2*phase - 1
}

func Square(phase float64) float64 {
	if phase < 0.5 {
		return 1
	}
	return -1
}

func Triangle(phase float64) float64 {
	return 1 - 4*math.Abs(phase-0.5)
}

func fmBass(phase float64) float64 {
	return math.Sin(2*math.Pi*phase + 1.5*math.Sin(4*math.Pi*phase))
}

func bell(phase float64) float64 {
	return 0.6*math.Sin(2*math.Pi*phase) + 0.4*math.Sin(2*math.Pi*math.Mod(phase*3.5, 1))
}

// tone is one sustained note: oscillators under a linear attack, hold and
// release envelope.
type tone struct {
	osc      OscFunc
	phase    [2]float64
	step     [2]float64
	position int
	attack   int
	hold     int
	release  int
	gain     float64
}

func newTone(p patch, freq, sr float64, dur time.Duration, velocity float64) *tone {
	t := &tone{
		osc:     p.osc,
		attack:  max(int(p.attack.Seconds()*sr), 1),
		hold:    int(dur.Seconds() * sr),
		release: max(int(p.release.Seconds()*sr), 1),
		gain:    p.level * velocity,
	}
	t.step[0] = freq / sr
	if p.detune != 0 {
		t.step[1] = freq * math.Pow(2, p.detune/12) / sr
	}
	return t
}

func (t *tone) envelope() float64 {
	switch {
	case t.position < t.attack:
		return float64(t.position) / float64(t.attack)
	case t.position < t.hold:
		return 1
	default:
		r := t.position - max(t.hold, t.attack)
		return max(1-float64(r)/float64(t.release), 0)
	}
}

func (t *tone) length() int {
	return max(t.hold, t.attack) + t.release
}

func (t *tone) Stream(samples [][2]float64) (int, bool) {
	n := min(len(samples), t.length()-t.position)
	if n <= 0 {
		return 0, false
	}
	for i := range samples[:n] {
		v := t.osc(t.phase[0])
		if t.step[1] != 0 {
			v = 0.5 * (v + t.osc(t.phase[1]))
		}
		v *= t.envelope() * t.gain
		samples[i] = [2]float64{v, v}
		for j := range t.phase {
			_, t.phase[j] = math.Modf(t.phase[j] + t.step[j])
		}
		t.position++
	}
	return n, true
}

func (t *tone) Err() error { return nil }

// drum is a one-shot: a swept sine mixed with highpassed noise under an
// exponential decay.
type drum struct {
	p        drumPatch
	sr       float64
	phase    float64
	position int
	length   int
	gain     float64
	prevIn   float64
	prevOut  float64
	alpha    float64
}

func newDrum(p drumPatch, sr, velocity float64) *drum {
	d := &drum{p: p, sr: sr, length: int(p.decay.Seconds() * sr), gain: p.level * velocity}
	if p.brightHz > 0 {
		rc := 1 / (2 * math.Pi * p.brightHz)
		d.alpha = rc / (rc + 1/sr)
	}
	return d
}

func (d *drum) Stream(samples [][2]float64) (int, bool) {
	n := min(len(samples), d.length-d.position)
	if n <= 0 {
		return 0, false
	}
	for i := range samples[:n] {
		t := float64(d.position) / float64(d.length)
		env := math.Exp(-5 * t)
		freq := d.p.endHz + (d.p.startHz-d.p.endHz)*math.Exp(-8*t)
		_, d.phase = math.Modf(d.phase + freq/d.sr)
		body := math.Sin(2 * math.Pi * d.phase)
		noise := rand.Float64()*2 - 1
		if d.alpha > 0 {
			hp := d.alpha * (d.prevOut + noise - d.prevIn)
			d.prevIn, d.prevOut = noise, hp
			noise = hp
		}
		v := ((1-d.p.noise)*body + d.p.noise*noise) * env * d.gain
		samples[i] = [2]float64{v, v}
		d.position++
	}
	return n, true
}

func (d *drum) Err() error { return nil }
