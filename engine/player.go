package engine

import (
	"context"
	"log"
	"maps"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/lumenaudio/lumen"
	"github.com/lumenaudio/lumen/harmony"
	"github.com/lumenaudio/lumen/patterns"
	"github.com/lumenaudio/lumen/transport"
)

type (
	// Player owns the playback session. All of its fields are touched only
	// from the goroutine calling Run (or Pulse and ProcessMessages, in
	// tests); other goroutines talk to it through the broker and read the
	// published snapshots.
	Player struct {
		broker *Broker
		clock  *transport.Clock
		router *Router
		store  *patterns.Store
		gen    *harmony.Generator
		logger *log.Logger

		gain     *lumen.Ramp // shared with the audio output
		ambience *lumen.Ramp

		harmony    harmony.State
		density    float64
		volume     float64
		drumVolume float64
		drums      bool
		chaos      bool
		presets    map[lumen.Voice]string

		playing    bool
		paused     bool
		pausedGain float64
		mode       lumen.Mode
		score      *lumen.Score
		melodic    []transport.TaskID
		drumTasks  []transport.TaskID

		lastAlert string

		state   atomic.Pointer[State]
		pattern atomic.Pointer[lumen.Pattern]
	}

	PlayerOptions struct {
		Seed   uint64
		BPM    float64
		Scale  string
		Key    string
		Now    func() time.Time
		Logger *log.Logger

		// Gain is the output gain the audio output applies; pausing ramps it
		// to silence. Nil creates a private one.
		Gain *lumen.Ramp
		// Ambience is the wet level of the reverb send.
		Ambience *lumen.Ramp
	}
)

const (
	PauseRamp    = 100 * time.Millisecond
	AmbienceRamp = 4 * time.Second

	DefaultDensity    = 50
	DefaultVolume     = 70
	DefaultDrumVolume = 80
	DefaultAmbience   = 0.2
)

func NewPlayer(broker *Broker, router *Router, store *patterns.Store, o PlayerOptions) *Player {
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.Gain == nil {
		o.Gain = lumen.NewRamp(1, o.Now)
	}
	if o.Ambience == nil {
		o.Ambience = lumen.NewRamp(DefaultAmbience, o.Now)
	}
	if o.BPM == 0 {
		o.BPM = transport.DefaultBPM
	}
	p := &Player{
		broker:     broker,
		clock:      transport.New(o.BPM, o.Now),
		router:     router,
		store:      store,
		gen:        harmony.NewGenerator(rand.New(rand.NewPCG(o.Seed, o.Seed^0x9e3779b97f4a7c15))),
		logger:     o.Logger,
		gain:       o.Gain,
		ambience:   o.Ambience,
		density:    DefaultDensity,
		volume:     DefaultVolume,
		drumVolume: DefaultDrumVolume,
		drums:      true,
		presets:    map[lumen.Voice]string{},
	}
	scale, err := lumen.LookupScale(o.Scale)
	if err != nil {
		scale, _ = lumen.LookupScale(lumen.DefaultScale)
	}
	pc, err := lumen.ParsePitchClass(o.Key)
	if err != nil {
		pc = 0
	}
	p.harmony = harmony.NewState(scale, pc)
	for v, ps := range lumen.Presets {
		p.presets[v] = ps[0]
	}
	for _, v := range lumen.DrumVoices {
		p.presets[v] = lumen.Kits[0]
	}
	p.publishPattern()
	p.publish()
	return p
}

// Run paces the clock in real time and applies messages as they arrive,
// until ctx is cancelled. Pulses are fired on absolute deadlines so the
// tempo does not drift with processing time.
func (p *Player) Run(ctx context.Context) {
	timer := time.NewTimer(p.clock.Interval())
	defer timer.Stop()
	next := time.Now()
	for {
		select {
		case <-ctx.Done():
			p.stop()
			p.publish()
			return
		case msg := <-p.broker.ToPlayer:
			wasRunning := p.clock.Running()
			p.handle(msg)
			p.ProcessMessages()
			if !wasRunning && p.clock.Running() {
				next = time.Now()
				timer.Reset(0)
			}
		case <-timer.C:
			if !p.clock.Running() {
				timer.Reset(p.clock.Interval())
				continue
			}
			p.Pulse()
			next = next.Add(p.clock.Interval())
			d := time.Until(next)
			if d < 0 {
				// fell behind; skip the missed pulses rather than bursting them
				next = time.Now()
				d = 0
			}
			timer.Reset(d)
		}
	}
}

// Pulse applies pending messages and then runs one clock pulse.
func (p *Player) Pulse() {
	p.ProcessMessages()
	p.clock.Pulse()
	p.publish()
}

// ProcessMessages applies every message waiting in the broker.
func (p *Player) ProcessMessages() {
loop:
	for {
		select {
		case msg := <-p.broker.ToPlayer:
			p.handle(msg)
		default:
			break loop
		}
	}
	p.publish()
}

func (p *Player) handle(msg any) {
	switch m := msg.(type) {
	case StartMsg:
		p.start()
	case StopMsg:
		p.stop()
	case PauseMsg:
		p.pause()
	case ResumeMsg:
		p.resume()
	case BPMMsg:
		p.clock.SetTempo(m.float64, transport.TempoRamp)
	case ScaleMsg:
		s, err := lumen.LookupScale(m.string)
		if err != nil {
			p.alert(err)
			return
		}
		p.harmony = p.harmony.WithScale(s)
	case KeyMsg:
		pc, err := lumen.ParsePitchClass(m.string)
		if err != nil {
			p.alert(err)
			return
		}
		p.harmony = p.harmony.WithRoot(harmony.RootFor(pc))
	case DensityMsg:
		p.density = clamp(m.float64, 0, 100)
	case DrumsMsg:
		p.setDrums(m.bool)
	case VolumeMsg:
		p.volume = clamp(m.float64, 0, 100)
	case DrumVolumeMsg:
		p.drumVolume = clamp(m.float64, 0, 100)
	case ChaosMsg:
		p.chaos = m.bool
	case EngineMsg:
		if err := p.router.Select(m.EngineID); err != nil {
			p.alert(err)
		}
	case PatternMsg:
		if err := p.store.Select(m.string); err != nil {
			p.alert(err)
			return
		}
		p.publishPattern()
	case StepMsg:
		if err := p.store.SetStep(m.Voice, m.Step, m.On); err != nil {
			p.alert(err)
			return
		}
		p.publishPattern()
	case SavePatternMsg:
		if err := p.store.SaveCustom(m.string); err != nil {
			p.alert(err)
		}
	case ResetPatternMsg:
		if err := p.store.Reset(); err != nil {
			p.alert(err)
			return
		}
		p.publishPattern()
	case ScoreMsg:
		p.useScore(m.Score)
	case GenerativeMsg:
		p.useGenerative()
	case PresetMsg:
		p.changePreset(m.Voice, m.Preset)
	case KitMsg:
		for _, v := range lumen.DrumVoices {
			p.changePreset(v, m.string)
		}
	case AmbienceMsg:
		p.ambience.RampTo(clamp(m.Wet, 0, 1), m.Over)
	case daemonMsg:
		if p.playing {
			p.handle(m.msg)
		}
	default:
		// ignore unknown messages
	}
}

func (p *Player) start() {
	if p.playing {
		return
	}
	p.playing = true
	p.paused = false
	p.clock.Start()
	p.attachMelodic()
	if p.drums {
		p.attachDrums()
	}
}

func (p *Player) stop() {
	if !p.playing {
		return
	}
	p.detach(&p.melodic)
	p.detach(&p.drumTasks)
	p.clock.Stop()
	if p.paused {
		p.gain.Set(p.pausedGain)
		p.paused = false
	}
	p.playing = false
}

func (p *Player) pause() {
	if !p.playing || p.paused {
		return
	}
	p.pausedGain = p.gain.Target()
	p.gain.RampTo(0, PauseRamp)
	p.paused = true
}

func (p *Player) resume() {
	if !p.paused {
		return
	}
	p.gain.RampTo(p.pausedGain, PauseRamp)
	p.paused = false
}

func (p *Player) setDrums(on bool) {
	if p.drums == on {
		return
	}
	p.drums = on
	if !p.playing {
		return
	}
	if on {
		p.attachDrums()
	} else {
		p.detach(&p.drumTasks)
	}
}

func (p *Player) useScore(s lumen.Score) {
	if err := s.Validate(); err != nil {
		p.alert(err)
		return
	}
	s = s.Copy()
	p.score = &s
	p.mode = lumen.Authored
	if p.playing {
		p.detach(&p.melodic)
		p.attachMelodic()
	}
}

func (p *Player) useGenerative() {
	if p.mode == lumen.Generative {
		return
	}
	p.mode = lumen.Generative
	p.score = nil
	if p.playing {
		p.detach(&p.melodic)
		p.attachMelodic()
	}
}

func (p *Player) changePreset(v lumen.Voice, preset string) {
	if err := p.router.ChangePreset(v, preset); err != nil {
		p.alert(err)
		if lumen.IsNotFound(err) {
			return
		}
	}
	p.presets[v] = preset
}

func (p *Player) attachMelodic() {
	if p.mode == lumen.Authored && p.score != nil {
		p.attachAuthored()
	} else {
		p.attachGenerative()
	}
}

func (p *Player) detach(tasks *[]transport.TaskID) {
	for _, id := range *tasks {
		p.clock.Cancel(id)
	}
	*tasks = (*tasks)[:0]
}

func (p *Player) dispatch(v lumen.Voice, n lumen.Note, dur time.Duration, velocity float64) {
	if velocity <= 0 {
		return
	}
	if err := p.router.Play(v, n, dur, velocity); err != nil && !lumen.IsNotReady(err) {
		p.alert(err)
	}
}

func (p *Player) alert(err error) {
	p.lastAlert = err.Error()
	p.logger.Printf("lumen: %v", err)
}

func (p *Player) publishPattern() {
	pat := p.store.Snapshot()
	p.pattern.Store(&pat)
}

func (p *Player) publish() {
	cur := p.pattern.Load()
	s := State{
		Playing:         p.playing,
		Paused:          p.paused,
		Mode:            p.mode.String(),
		BPM:             p.clock.BPM(),
		TargetBPM:       p.clock.TargetBPM(),
		Scale:           p.harmony.Scale.Name,
		PreviousScale:   p.harmony.PreviousScale,
		Key:             p.harmony.Root.String(),
		PreviousKey:     previousKey(p.harmony),
		Density:         p.density,
		Drums:           p.drums,
		Pattern:         p.store.CurrentKey(),
		PatternModified: cur != nil && cur.Modified,
		Engine:          p.router.Selected(),
		Volume:          p.volume,
		DrumVolume:      p.drumVolume,
		Chaos:           p.chaos,
		Ambience:        p.ambience.Target(),
		Gain:            p.gain.Target(),
		Pulse:           p.clock.Position(),
		Tasks:           p.clock.Tasks(),
		Presets:         maps.Clone(p.presets),
		LastAlert:       p.lastAlert,
	}
	p.state.Store(&s)
}

func previousKey(h harmony.State) string {
	if h.PreviousRoot == 0 {
		return ""
	}
	return h.PreviousRoot.String()
}

// State returns the latest published snapshot. Safe from any goroutine.
func (p *Player) State() State {
	return *p.state.Load()
}

// CurrentPattern returns a copy of the current drum pattern as last
// published. Safe from any goroutine.
func (p *Player) CurrentPattern() lumen.Pattern {
	if pat := p.pattern.Load(); pat != nil {
		return pat.Copy()
	}
	return lumen.Pattern{}
}

func clamp(v, lo, hi float64) float64 {
	return max(min(v, hi), lo)
}
