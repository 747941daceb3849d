package engine

import (
	"time"

	"github.com/lumenaudio/lumen"
)

type (
	StartMsg  struct{}
	StopMsg   struct{}
	PauseMsg  struct{}
	ResumeMsg struct{}

	BPMMsg        struct{ float64 }
	ScaleMsg      struct{ string }
	KeyMsg        struct{ string }
	DensityMsg    struct{ float64 }
	DrumsMsg      struct{ bool }
	VolumeMsg     struct{ float64 }
	DrumVolumeMsg struct{ float64 }
	ChaosMsg      struct{ bool }
	EngineMsg     struct{ lumen.EngineID }

	PatternMsg      struct{ string }
	SavePatternMsg  struct{ string }
	ResetPatternMsg struct{}
	StepMsg         struct {
		Voice lumen.Voice
		Step  int
		On    bool
	}

	ScoreMsg      struct{ lumen.Score }
	GenerativeMsg struct{}

	PresetMsg struct {
		Voice  lumen.Voice
		Preset string
	}
	KitMsg      struct{ string }
	AmbienceMsg struct {
		Wet  float64
		Over time.Duration
	}

	// daemonMsg wraps a change requested by the evolution daemon. The player
	// applies it only during a playback session.
	daemonMsg struct{ msg any }
)
