// Package cmd holds the wiring shared by the lumen binaries.
package cmd

import (
	"errors"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/lumenaudio/lumen"
	"github.com/lumenaudio/lumen/config"
	"github.com/lumenaudio/lumen/engine"
	"github.com/lumenaudio/lumen/mix"
	"github.com/lumenaudio/lumen/patterns"
	"github.com/lumenaudio/lumen/sampler"
	"github.com/lumenaudio/lumen/synth"
)

// SamplerAttenuation keeps sample banks, which are mastered hot, level with
// the synth.
const SamplerAttenuation = 0.6

// Session is a configured engine with its backends and the mixer the
// in-process backends render into.
type Session struct {
	Engine *engine.Engine
	Mixer  *mix.Mixer
	Gain   *lumen.Ramp
	Store  *patterns.Store

	closers []io.Closer
}

// NewSession builds an engine from cfg. Backends that cannot be opened are
// logged and left unregistered; selecting them later logs an alert.
func NewSession(cfg config.Config, logger *log.Logger) (*Session, error) {
	if logger == nil {
		logger = log.Default()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	gain := lumen.NewRamp(1, nil)
	wet := lumen.NewRamp(cfg.Ambience, nil)
	s := &Session{Mixer: mix.New(mix.DefaultSampleRate, wet), Gain: gain}

	dir := cfg.PatternDir
	if dir == "" {
		var err error
		if dir, err = patterns.DefaultDir(); err != nil {
			return nil, err
		}
	}
	store, err := patterns.NewStore(patterns.FileStore{Dir: dir})
	if err != nil {
		return nil, err
	}
	if cfg.LibraryDir != "" {
		n, err := store.Import(cfg.LibraryDir)
		if err != nil {
			logger.Printf("pattern library %v: %v", cfg.LibraryDir, err)
		}
		logger.Printf("imported %d patterns from %v", n, cfg.LibraryDir)
	}
	s.Store = store

	router := engine.NewRouter()
	router.Register(lumen.EngineSynth, synth.New(s.Mixer))
	banks, err := sampleDir(cfg)
	if err != nil {
		return nil, err
	}
	router.Register(lumen.EngineSampler, sampler.New(s.Mixer, os.DirFS(banks), logger))
	router.SetAttenuation(lumen.EngineSampler, SamplerAttenuation)
	if out, err := OpenMIDI(cfg.MIDIPort, gain); err != nil {
		logger.Printf("MIDI backend disabled: %v", err)
	} else {
		router.Register(lumen.EngineMIDI, out)
		s.closers = append(s.closers, out)
	}

	broker := engine.NewBroker()
	player := engine.NewPlayer(broker, router, store, engine.PlayerOptions{
		Seed:     seed,
		BPM:      cfg.BPM,
		Scale:    cfg.Scale,
		Key:      cfg.Key,
		Logger:   logger,
		Gain:     gain,
		Ambience: wet,
	})
	s.Engine = engine.New(broker, player, engine.NewDaemon(broker, seed+1, logger))

	s.Engine.SetNoteDensity(cfg.Density)
	s.Engine.SetVolume(cfg.Volume)
	s.Engine.SetDrumMasterVolume(cfg.DrumVolume)
	s.Engine.SetDrums(cfg.Drums)
	if cfg.Pattern != "" {
		s.Engine.ChangeDrumPattern(cfg.Pattern)
	}
	if id, err := cfg.EngineID(); err == nil {
		s.Engine.SetSynthEngine(id)
	}
	s.Engine.SetChaosMode(cfg.Chaos)
	return s, nil
}

func sampleDir(cfg config.Config) (string, error) {
	if cfg.SampleDir != "" {
		return cfg.SampleDir, nil
	}
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "samples"), nil
}

// Close releases the external backends.
func (s *Session) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
