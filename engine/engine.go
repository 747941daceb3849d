// Package engine runs a live music session: generative or authored melodic
// voices and a drum step sequencer on one shared transport clock, with
// backends, patterns, harmony and tempo switchable while playing.
package engine

import (
	"context"
	"log"
	"time"

	"github.com/lumenaudio/lumen"
	"github.com/lumenaudio/lumen/patterns"
)

// Engine is the control surface of a session. Its methods never block and
// never fail: each posts a message to the player, which applies it at the
// start of its next pulse. Out-of-range values are clamped; unknown names
// are logged and ignored, and the outcome is visible in State.
type Engine struct {
	broker *Broker
	player *Player
	daemon *Daemon
	logger *log.Logger
}

func New(broker *Broker, player *Player, daemon *Daemon) *Engine {
	return &Engine{broker: broker, player: player, daemon: daemon, logger: player.logger}
}

// ShutdownTimeout bounds how long Run waits for the daemon to exit.
const ShutdownTimeout = 3 * time.Second

// Run drives the player and the daemon until ctx is cancelled. It returns
// once the player has stopped and the daemon has exited, so backends can be
// closed afterwards without the daemon posting into a closed session.
func (e *Engine) Run(ctx context.Context) {
	if e.daemon != nil {
		go e.daemon.Run(ctx)
	}
	e.player.Run(ctx)
	if e.daemon == nil {
		return
	}
	TimeoutReceive(e.broker.FinishedDaemon, ShutdownTimeout)
}

func (e *Engine) send(msg any) {
	if !TrySend(e.broker.ToPlayer, msg) {
		e.logger.Printf("lumen: %T dropped, player queue full", msg)
	}
}

func (e *Engine) Start()  { e.send(StartMsg{}) }
func (e *Engine) Stop()   { e.send(StopMsg{}) }
func (e *Engine) Pause()  { e.send(PauseMsg{}) }
func (e *Engine) Resume() { e.send(ResumeMsg{}) }

// SetBPM ramps the tempo to bpm over two seconds.
func (e *Engine) SetBPM(bpm float64)             { e.send(BPMMsg{bpm}) }
func (e *Engine) SetScale(name string)           { e.send(ScaleMsg{name}) }
func (e *Engine) SetKey(key string)              { e.send(KeyMsg{key}) }
func (e *Engine) SetNoteDensity(density float64) { e.send(DensityMsg{density}) }
func (e *Engine) SetDrums(enabled bool)          { e.send(DrumsMsg{enabled}) }

// SetVolume sets the user volume multiplier, 0..100.
func (e *Engine) SetVolume(volume float64) { e.send(VolumeMsg{volume}) }

// SetDrumMasterVolume sets the drum bus level, 0..100.
func (e *Engine) SetDrumMasterVolume(volume float64) { e.send(DrumVolumeMsg{volume}) }

func (e *Engine) SetSynthEngine(id lumen.EngineID) { e.send(EngineMsg{id}) }

// ChangeDrumPattern points the drum sequencer at another pattern; the clock
// keeps running.
func (e *Engine) ChangeDrumPattern(key string) { e.send(PatternMsg{key}) }

// UpdatePatternStep edits a step of the current pattern in place.
func (e *Engine) UpdatePatternStep(v lumen.Voice, step int, on bool) {
	e.send(StepMsg{Voice: v, Step: step, On: on})
}

// SaveCustomPattern stores the current pattern, edits included, under name.
func (e *Engine) SaveCustomPattern(name string) { e.send(SavePatternMsg{name}) }

// ResetPattern discards the edits made to the current pattern.
func (e *Engine) ResetPattern() { e.send(ResetPatternMsg{}) }

// UseCustomPatterns switches the melodic voices to authored tracks. Called
// before Start, the session starts in authored mode.
func (e *Engine) UseCustomPatterns(s lumen.Score) { e.send(ScoreMsg{s.Copy()}) }

func (e *Engine) SwitchToGenerativeMode() { e.send(GenerativeMsg{}) }

func (e *Engine) SetChaosMode(on bool) {
	if e.daemon != nil {
		e.daemon.SetChaos(on)
	}
	e.send(ChaosMsg{on})
}

// ChangePreset selects the sound of a voice; for drum voices the preset is
// a kit and applies to the whole drum machine.
func (e *Engine) ChangePreset(v lumen.Voice, preset string) {
	if v.IsDrum() {
		e.send(KitMsg{preset})
		return
	}
	e.send(PresetMsg{Voice: v, Preset: preset})
}

// SetAmbience ramps the reverb send to wet, 0..1.
func (e *Engine) SetAmbience(wet float64) { e.send(AmbienceMsg{Wet: wet, Over: AmbienceRamp}) }

func (e *Engine) State() State { return e.player.State() }

func (e *Engine) CurrentPattern() lumen.Pattern { return e.player.CurrentPattern() }

// Patterns lists the pattern library by category.
func (e *Engine) Patterns() map[patterns.Category][]string {
	s := e.player.store
	return map[patterns.Category][]string{
		patterns.Builtin:  s.Keys(patterns.Builtin),
		patterns.Imported: s.Keys(patterns.Imported),
		patterns.Custom:   s.Keys(patterns.Custom),
	}
}
