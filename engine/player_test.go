package engine_test

import (
	"io"
	"log"
	"math"
	"testing"
	"time"

	"github.com/lumenaudio/lumen"
	"github.com/lumenaudio/lumen/engine"
	"github.com/lumenaudio/lumen/patterns"
)

type (
	playCall struct {
		voice    lumen.Voice
		note     lumen.Note
		dur      time.Duration
		velocity float64
	}

	fakeBackend struct {
		calls    []playCall
		notReady map[lumen.Voice]bool
		presets  map[lumen.Voice]string
	}

	rig struct {
		broker  *engine.Broker
		player  *engine.Player
		daemon  *engine.Daemon
		engine  *engine.Engine
		synth   *fakeBackend
		sampler *fakeBackend
		gain    *lumen.Ramp
		now     time.Time
	}
)

func newFake() *fakeBackend {
	return &fakeBackend{notReady: map[lumen.Voice]bool{}, presets: map[lumen.Voice]string{}}
}

func (f *fakeBackend) Play(v lumen.Voice, n lumen.Note, d time.Duration, vel float64) error {
	f.calls = append(f.calls, playCall{v, n, d, vel})
	return nil
}

func (f *fakeBackend) ChangePreset(v lumen.Voice, preset string) error {
	f.presets[v] = preset
	return nil
}

func (f *fakeBackend) IsReady(v lumen.Voice) bool { return !f.notReady[v] }

func (f *fakeBackend) count(v lumen.Voice) int {
	n := 0
	for _, c := range f.calls {
		if c.voice == v {
			n++
		}
	}
	return n
}

func newRig(t *testing.T) *rig {
	t.Helper()
	store, err := patterns.NewStore(patterns.NewMemStore())
	if err != nil {
		t.Fatal(err)
	}
	r := &rig{synth: newFake(), sampler: newFake(), now: time.Unix(1000, 0)}
	now := func() time.Time { return r.now }
	r.gain = lumen.NewRamp(1, now)
	router := engine.NewRouter()
	router.Register(lumen.EngineSynth, r.synth)
	router.Register(lumen.EngineSampler, r.sampler)
	logger := log.New(io.Discard, "", 0)
	r.broker = engine.NewBroker()
	r.player = engine.NewPlayer(r.broker, router, store, engine.PlayerOptions{
		Seed:   1,
		BPM:    120,
		Now:    now,
		Logger: logger,
		Gain:   r.gain,
	})
	r.daemon = engine.NewDaemon(r.broker, 2, logger)
	r.engine = engine.New(r.broker, r.player, r.daemon)
	return r
}

func (r *rig) pulses(n int) {
	for range n {
		r.player.Pulse()
	}
}

func TestStartIsIdempotent(t *testing.T) {
	r := newRig(t)
	r.engine.Start()
	r.pulses(1)
	s := r.engine.State()
	if !s.Playing || s.Tasks != 8 {
		t.Fatalf("after Start: playing=%v tasks=%d, want true, 8", s.Playing, s.Tasks)
	}
	r.engine.Start()
	r.pulses(1)
	if s := r.engine.State(); s.Tasks != 8 || s.Pulse != 2 {
		t.Fatalf("second Start: tasks=%d pulse=%d, want 8, 2", s.Tasks, s.Pulse)
	}
	r.engine.Stop()
	r.engine.Stop()
	r.player.ProcessMessages()
	if s := r.engine.State(); s.Playing || s.Tasks != 0 || s.Pulse != 0 {
		t.Fatalf("after Stop: %+v", s)
	}
}

func TestBasicPatternKick(t *testing.T) {
	r := newRig(t)
	r.engine.Start()
	var kicksAt []int
	for i := range 8 {
		before := r.synth.count(lumen.Kick)
		r.pulses(1)
		if r.synth.count(lumen.Kick) > before {
			kicksAt = append(kicksAt, i)
		}
	}
	if len(kicksAt) != 2 || kicksAt[0] != 0 || kicksAt[1] != 4 {
		t.Fatalf("kicks at %v, want [0 4]", kicksAt)
	}
	for _, c := range r.synth.calls {
		if c.voice == lumen.Kick {
			if c.note != 36 || math.Abs(c.velocity-0.56) > 1e-9 {
				t.Fatalf("kick call %+v, want note 36 velocity 0.56", c)
			}
		}
	}
}

func TestChangeDrumPatternTakesEffectNextStep(t *testing.T) {
	r := newRig(t)
	r.engine.Start()
	r.pulses(2)
	r.engine.ChangeDrumPattern("fourfloor")
	before := r.synth.count(lumen.Snare)
	r.pulses(1) // step 2: snare in basic, silent in fourfloor
	if r.synth.count(lumen.Snare) != before {
		t.Fatal("old pattern played after the switch")
	}
	s := r.engine.State()
	if s.Pattern != "fourfloor" || s.Pulse != 3 || !s.Playing {
		t.Fatalf("state after switch: %+v", s)
	}
	if p := r.engine.CurrentPattern(); p.Name != "fourfloor" {
		t.Fatalf("CurrentPattern() = %q", p.Name)
	}
}

func TestUnknownPatternIsIgnored(t *testing.T) {
	r := newRig(t)
	r.engine.Start()
	r.engine.ChangeDrumPattern("no-such-pattern")
	r.pulses(1)
	s := r.engine.State()
	if s.Pattern != patterns.DefaultPattern || !s.Playing || s.LastAlert == "" {
		t.Fatalf("state after unknown pattern: %+v", s)
	}
}

func TestUpdatePatternStep(t *testing.T) {
	r := newRig(t)
	r.engine.Start()
	r.engine.UpdatePatternStep(lumen.Snare, 1, true)
	r.pulses(1)
	before := r.synth.count(lumen.Snare)
	r.pulses(1)
	if r.synth.count(lumen.Snare) != before+1 {
		t.Fatal("edited step not played")
	}
	if p := r.engine.CurrentPattern(); !p.Modified || !p.Hit(lumen.Snare, 1) {
		t.Fatalf("published pattern not updated: %+v", p)
	}
	r.engine.ResetPattern()
	r.player.ProcessMessages()
	if p := r.engine.CurrentPattern(); p.Modified || p.Hit(lumen.Snare, 1) {
		t.Fatal("ResetPattern did not restore the pattern")
	}
}

func TestEngineSwitchDropsAndDuplicatesNothing(t *testing.T) {
	r := newRig(t)
	r.engine.Start()
	r.pulses(16)
	r.engine.SetSynthEngine(lumen.EngineSampler)
	r.pulses(16)
	if a, b := r.synth.count(lumen.Kick), r.sampler.count(lumen.Kick); a != 4 || b != 4 {
		t.Fatalf("kicks synth=%d sampler=%d, want 4 and 4", a, b)
	}
	if a, b := r.synth.count(lumen.Bass), r.sampler.count(lumen.Bass); a != 2 || b != 2 {
		t.Fatalf("bass synth=%d sampler=%d, want 2 and 2", a, b)
	}
	if s := r.engine.State(); s.Engine != lumen.EngineSampler || s.Tasks != 8 {
		t.Fatalf("state after switch: engine=%v tasks=%d", s.Engine, s.Tasks)
	}
	for _, c := range r.sampler.calls {
		if c.voice == lumen.Kick && math.Abs(c.velocity-0.56*0.6) > 1e-9 {
			t.Fatalf("sampler kick velocity %v, want attenuated %v", c.velocity, 0.56*0.6)
		}
	}
	r.engine.SetSynthEngine(lumen.EngineMIDI)
	r.pulses(1)
	if s := r.engine.State(); s.Engine != lumen.EngineSampler || s.LastAlert == "" {
		t.Fatalf("switching to an unregistered engine: %+v", s)
	}
}

func TestDensityControlsTriggerRate(t *testing.T) {
	rate := func(density float64) float64 {
		r := newRig(t)
		r.engine.SetDrums(false)
		r.engine.SetNoteDensity(density)
		r.engine.Start()
		r.pulses(8000)
		return float64(r.synth.count(lumen.Lead)) / 4000
	}
	low, mid, high := rate(0), rate(50), rate(100)
	if math.Abs(low-0.1) > 0.03 {
		t.Errorf("density 0 fires %.3f of the time, want about 0.1", low)
	}
	if math.Abs(high-0.9) > 0.03 {
		t.Errorf("density 100 fires %.3f of the time, want about 0.9", high)
	}
	if !(low < mid && mid < high) {
		t.Errorf("trigger rate not monotonic: %.3f %.3f %.3f", low, mid, high)
	}
}

func TestDensitySwitchWhilePlaying(t *testing.T) {
	r := newRig(t)
	r.engine.SetDrums(false)
	r.engine.SetNoteDensity(0)
	r.engine.Start()
	run := func(n int) int {
		before := r.synth.count(lumen.Lead)
		for range n {
			want := r.engine.State().Pulse + 1
			r.player.Pulse()
			if got := r.engine.State().Pulse; got != want {
				t.Fatalf("pulse %d after %d", got, want-1)
			}
		}
		return r.synth.count(lumen.Lead) - before
	}
	low := float64(run(4000)) / 2000
	r.engine.SetNoteDensity(100)
	high := float64(run(4000)) / 2000
	if math.Abs(low-0.1) > 0.03 {
		t.Errorf("density 0 fires %.3f of the time, want about 0.1", low)
	}
	if math.Abs(high-0.9) > 0.03 {
		t.Errorf("density 100 fires %.3f of the time, want about 0.9", high)
	}
	if s := r.engine.State(); !s.Playing || s.Pulse != 8000 {
		t.Fatalf("playback interrupted: %+v", s)
	}
}

func TestDensityIsClamped(t *testing.T) {
	r := newRig(t)
	r.engine.SetNoteDensity(250)
	r.engine.SetVolume(-5)
	r.engine.SetBPM(1000)
	r.player.ProcessMessages()
	s := r.engine.State()
	if s.Density != 100 || s.Volume != 0 || s.TargetBPM != 240 {
		t.Fatalf("values not clamped: %+v", s)
	}
}

func TestPauseResumeRestoresGain(t *testing.T) {
	r := newRig(t)
	r.gain.Set(0.8)
	r.engine.Pause()
	r.player.ProcessMessages()
	if s := r.engine.State(); s.Paused || s.Gain != 0.8 {
		t.Fatal("Pause while stopped should do nothing")
	}
	r.engine.Start()
	r.pulses(3)
	r.engine.Pause()
	r.pulses(1)
	if s := r.engine.State(); !s.Paused || s.Gain != 0 || s.Pulse != 4 {
		t.Fatalf("after Pause: %+v", s)
	}
	r.now = r.now.Add(engine.PauseRamp)
	if v := r.gain.Value(); v != 0 {
		t.Fatalf("gain after pause ramp = %v", v)
	}
	r.engine.Resume()
	r.engine.Resume()
	r.pulses(1)
	r.now = r.now.Add(engine.PauseRamp)
	if s := r.engine.State(); s.Paused || s.Pulse != 5 || r.gain.Value() != 0.8 {
		t.Fatalf("after Resume: %+v gain %v", s, r.gain.Value())
	}
}

func TestStopWhilePausedRestoresGain(t *testing.T) {
	r := newRig(t)
	r.engine.Start()
	r.engine.Pause()
	r.engine.Stop()
	r.player.ProcessMessages()
	if s := r.engine.State(); s.Playing || s.Paused || s.Gain != 1 {
		t.Fatalf("after Stop: %+v", s)
	}
}

func authoredBass() lumen.Score {
	return lumen.Score{Tracks: []lumen.Track{{
		Voice:       lumen.Bass,
		Subdivision: 4,
		Length:      3,
		Steps: []lumen.Step{
			{Notes: []lumen.Note{36}, Duration: 2, Velocity: 1},
			{},
			{Notes: []lumen.Note{40}},
		},
	}}}
}

func TestAuthoredMode(t *testing.T) {
	r := newRig(t)
	r.engine.UseCustomPatterns(authoredBass())
	r.engine.Start()
	r.pulses(12)
	s := r.engine.State()
	if s.Mode != "authored" || s.Tasks != 5 {
		t.Fatalf("mode=%v tasks=%d, want authored, 5", s.Mode, s.Tasks)
	}
	var bass []playCall
	for _, c := range r.synth.calls {
		switch c.voice {
		case lumen.Bass:
			bass = append(bass, c)
		case lumen.Pad, lumen.Lead, lumen.Arp:
			t.Fatalf("generative voice %v played in authored mode", c.voice)
		}
	}
	if len(bass) != 2 || bass[0].note != 36 || bass[1].note != 40 {
		t.Fatalf("authored bass %+v", bass)
	}
	if bass[0].dur != time.Second || math.Abs(bass[0].velocity-0.7) > 1e-9 {
		t.Fatalf("first note duration %v velocity %v", bass[0].dur, bass[0].velocity)
	}
	if math.Abs(bass[1].velocity-lumen.DefaultVelocity*0.7) > 1e-9 {
		t.Fatalf("default velocity not applied: %v", bass[1].velocity)
	}

	kicks := r.synth.count(lumen.Kick)
	r.engine.SwitchToGenerativeMode()
	r.pulses(4)
	s = r.engine.State()
	if s.Mode != "generative" || s.Tasks != 8 || s.Pulse != 16 {
		t.Fatalf("after switching back: %+v", s)
	}
	if r.synth.count(lumen.Kick) != kicks+1 {
		t.Fatal("drums interrupted by the mode switch")
	}
}

func TestInvalidScoreIsIgnored(t *testing.T) {
	r := newRig(t)
	r.engine.UseCustomPatterns(lumen.Score{})
	r.engine.UseCustomPatterns(lumen.Score{Tracks: []lumen.Track{{Voice: lumen.Kick, Steps: []lumen.Step{{}}}}})
	r.player.ProcessMessages()
	if s := r.engine.State(); s.Mode != "generative" || s.LastAlert == "" {
		t.Fatalf("invalid score accepted: %+v", s)
	}
}

func TestSetDrums(t *testing.T) {
	r := newRig(t)
	r.engine.Start()
	r.engine.SetDrums(false)
	r.pulses(16)
	if n := r.synth.count(lumen.HiHat); n != 0 {
		t.Fatalf("%d hihats with drums disabled", n)
	}
	if s := r.engine.State(); s.Tasks != 4 || s.Drums {
		t.Fatalf("state with drums disabled: %+v", s)
	}
	r.engine.SetDrums(true)
	r.engine.SetDrums(true)
	r.pulses(8)
	if n := r.synth.count(lumen.HiHat); n != 8 {
		t.Fatalf("%d hihats after enabling drums, want 8", n)
	}
	if s := r.engine.State(); s.Tasks != 8 {
		t.Fatalf("tasks = %d, want 8", s.Tasks)
	}
}

func TestNotReadyVoiceIsSkipped(t *testing.T) {
	r := newRig(t)
	r.synth.notReady[lumen.Kick] = true
	r.engine.Start()
	r.pulses(8)
	if r.synth.count(lumen.Kick) != 0 || r.synth.count(lumen.HiHat) != 8 {
		t.Fatal("unready voice should be skipped and others played")
	}
	if s := r.engine.State(); s.LastAlert != "" {
		t.Fatalf("skipping an unready voice raised an alert: %v", s.LastAlert)
	}
}

func TestHarmonyChanges(t *testing.T) {
	r := newRig(t)
	r.engine.SetScale("nonexistent")
	r.player.ProcessMessages()
	if s := r.engine.State(); s.Scale != lumen.DefaultScale || s.LastAlert == "" {
		t.Fatalf("unknown scale changed state: %+v", s)
	}
	r.engine.SetScale("major")
	r.engine.SetKey("D")
	r.player.ProcessMessages()
	s := r.engine.State()
	if s.Scale != "major" || s.PreviousScale != lumen.DefaultScale || s.Key != "D4" || s.PreviousKey != "C4" {
		t.Fatalf("harmony state: %+v", s)
	}
	r.engine.Start()
	r.pulses(1)
	var pad []lumen.Note
	for _, c := range r.synth.calls {
		if c.voice == lumen.Pad {
			pad = append(pad, c.note)
		}
	}
	if len(pad) != 3 || pad[0] != 50 || pad[1] != 54 || pad[2] != 57 {
		t.Fatalf("pad chord %v, want D major triad in octave 3", pad)
	}
}

func TestChangePreset(t *testing.T) {
	r := newRig(t)
	r.engine.ChangePreset(lumen.Lead, "bell")
	r.engine.ChangePreset(lumen.Kick, "909")
	r.engine.ChangePreset(lumen.Bass, "no-such-preset")
	r.player.ProcessMessages()
	if r.synth.presets[lumen.Lead] != "bell" || r.sampler.presets[lumen.Lead] != "bell" {
		t.Fatal("preset not forwarded to every backend")
	}
	s := r.engine.State()
	if s.Presets[lumen.OpenHat] != "909" || s.Presets[lumen.Bass] != "sub" || s.LastAlert == "" {
		t.Fatalf("presets %v alert %q", s.Presets, s.LastAlert)
	}
}
