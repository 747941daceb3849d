package engine

import (
	"context"
	"log"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/lumenaudio/lumen"
)

// Daemon evolves the music on wall-clock timers independent of the
// transport: a new scale every EvolveEvery, a new reverb level every
// AmbienceEvery and, in chaos mode, one or two random changes every
// ChaosMin..ChaosMax. It never touches session state itself; every change
// is posted to the player, which ignores them outside a playback session.
type Daemon struct {
	EvolveEvery   time.Duration
	AmbienceEvery time.Duration
	ChaosMin      time.Duration
	ChaosMax      time.Duration

	broker *Broker
	rand   *rand.Rand
	chaos  atomic.Bool
	logger *log.Logger
}

const (
	ChaosMinBPM = 70
	ChaosMaxBPM = 140

	MinAmbience = 0.1
	MaxAmbience = 0.6
)

func NewDaemon(broker *Broker, seed uint64, logger *log.Logger) *Daemon {
	if logger == nil {
		logger = log.Default()
	}
	return &Daemon{
		EvolveEvery:   16 * time.Second,
		AmbienceEvery: 12 * time.Second,
		ChaosMin:      8 * time.Second,
		ChaosMax:      16 * time.Second,
		broker:        broker,
		rand:          rand.New(rand.NewPCG(seed, ^seed)),
		logger:        logger,
	}
}

func (d *Daemon) SetChaos(on bool) { d.chaos.Store(on) }
func (d *Daemon) Chaos() bool      { return d.chaos.Load() }

// Run fires the timers until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) {
	defer close(d.broker.FinishedDaemon)
	evolve := time.NewTicker(d.EvolveEvery)
	defer evolve.Stop()
	ambience := time.NewTicker(d.AmbienceEvery)
	defer ambience.Stop()
	chaos := time.NewTimer(d.nextChaos())
	defer chaos.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-evolve.C:
			d.Evolve()
		case <-ambience.C:
			d.Ambience()
		case <-chaos.C:
			d.ChaosTick()
			chaos.Reset(d.nextChaos())
		}
	}
}

func (d *Daemon) nextChaos() time.Duration {
	span := d.ChaosMax - d.ChaosMin
	if span <= 0 {
		return d.ChaosMin
	}
	return d.ChaosMin + time.Duration(d.rand.Int64N(int64(span)))
}

// Evolve picks a new scale.
func (d *Daemon) Evolve() {
	d.post(d.randomScale())
}

// Ambience ramps the reverb to a new random level.
func (d *Daemon) Ambience() {
	d.post(d.randomAmbience())
}

// ChaosTick applies one or two random changes if chaos mode is on.
func (d *Daemon) ChaosTick() {
	if !d.chaos.Load() {
		return
	}
	actions := []func() any{
		d.randomKit,
		d.randomPreset,
		d.randomEngine,
		d.randomTempo,
		d.randomScale,
		d.randomAmbience,
	}
	n := 1 + d.rand.IntN(2)
	for _, i := range d.rand.Perm(len(actions))[:n] {
		d.post(actions[i]())
	}
}

func (d *Daemon) post(msg any) {
	if !TrySend(d.broker.ToPlayer, any(daemonMsg{msg})) {
		d.logger.Printf("lumen: daemon message dropped, player queue full")
	}
}

func (d *Daemon) randomScale() any {
	names := lumen.ScaleNames()
	return ScaleMsg{names[d.rand.IntN(len(names))]}
}

func (d *Daemon) randomAmbience() any {
	return AmbienceMsg{Wet: MinAmbience + d.rand.Float64()*(MaxAmbience-MinAmbience), Over: AmbienceRamp}
}

func (d *Daemon) randomKit() any {
	return KitMsg{lumen.Kits[d.rand.IntN(len(lumen.Kits))]}
}

func (d *Daemon) randomPreset() any {
	v := lumen.MelodicVoices[d.rand.IntN(len(lumen.MelodicVoices))]
	ps := lumen.Presets[v]
	return PresetMsg{Voice: v, Preset: ps[d.rand.IntN(len(ps))]}
}

func (d *Daemon) randomEngine() any {
	return EngineMsg{lumen.EngineID(d.rand.IntN(int(lumen.NumEngines)))}
}

func (d *Daemon) randomTempo() any {
	return BPMMsg{ChaosMinBPM + d.rand.Float64()*(ChaosMaxBPM-ChaosMinBPM)}
}
