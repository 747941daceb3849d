package engine

import (
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/lumenaudio/lumen"
)

// Router dispatches notes to the selected backend. The selection is read on
// every note, so switching engines takes effect on the next trigger without
// touching the scheduled tasks. A Router belongs to the player goroutine.
type Router struct {
	backends    [lumen.NumEngines]lumen.Backend
	attenuation [lumen.NumEngines]float64
	selected    lumen.EngineID
}

var errNotReady = fault.New("backend not ready", ftag.With(lumen.NotReady))

// DefaultAttenuation levels the engines: the sample banks are mastered
// louder than the synth.
var DefaultAttenuation = [lumen.NumEngines]float64{
	lumen.EngineSynth:   1.0,
	lumen.EngineSampler: 0.6,
	lumen.EngineMIDI:    1.0,
}

func NewRouter() *Router {
	return &Router{attenuation: DefaultAttenuation}
}

// Register installs a backend. The first registered backend becomes the
// selected one.
func (r *Router) Register(id lumen.EngineID, b lumen.Backend) {
	if id < 0 || id >= lumen.NumEngines {
		return
	}
	first := true
	for _, x := range r.backends {
		if x != nil {
			first = false
		}
	}
	r.backends[id] = b
	if first {
		r.selected = id
	}
}

// SetAttenuation sets the gain applied to every note sent to an engine.
func (r *Router) SetAttenuation(id lumen.EngineID, gain float64) {
	if id >= 0 && id < lumen.NumEngines {
		r.attenuation[id] = max(gain, 0)
	}
}

// Select switches engines. Unknown or unregistered engines leave the
// selection unchanged.
func (r *Router) Select(id lumen.EngineID) error {
	if id < 0 || id >= lumen.NumEngines || r.backends[id] == nil {
		return fault.New("engine not available", ftag.With(ftag.NotFound), fmsg.WithDesc(id.String(), "Synthesis engine "+id.String()+" is not available"))
	}
	r.selected = id
	return nil
}

func (r *Router) Selected() lumen.EngineID { return r.selected }

// Play sends a note to the selected backend. If the backend cannot play the
// voice yet, the note is dropped and a NotReady error returned.
func (r *Router) Play(v lumen.Voice, n lumen.Note, dur time.Duration, velocity float64) error {
	b := r.backends[r.selected]
	if b == nil || !b.IsReady(v) {
		return errNotReady
	}
	return b.Play(v, n, dur, velocity*r.attenuation[r.selected])
}

// ChangePreset switches the preset of a voice on every registered backend,
// so the sound choice survives engine switches.
func (r *Router) ChangePreset(v lumen.Voice, preset string) error {
	if !lumen.HasPreset(v, preset) {
		return fault.New("unknown preset", ftag.With(ftag.NotFound), fmsg.WithDesc(preset, "No preset "+preset+" for "+string(v)))
	}
	var first error
	for _, b := range r.backends {
		if b == nil {
			continue
		}
		if err := b.ChangePreset(v, preset); err != nil && first == nil {
			first = err
		}
	}
	return first
}
