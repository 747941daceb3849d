package lumen

import (
	"strings"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

type (
	// Backend is a sound source the engine can trigger voices on. Play is
	// fire-and-forget: the backend owns the note until its duration has
	// passed.
	Backend interface {
		Play(voice Voice, note Note, duration time.Duration, velocity float64) error
		ChangePreset(voice Voice, preset string) error
		IsReady(voice Voice) bool
	}

	// EngineID selects one of the synthesis backends.
	EngineID int
)

const (
	EngineSynth EngineID = iota
	EngineSampler
	EngineMIDI
	NumEngines
)

var engineNames = [NumEngines]string{"synth", "sampler", "midi"}

func (e EngineID) String() string {
	if e < 0 || e >= NumEngines {
		return "unknown"
	}
	return engineNames[e]
}

// ParseEngine accepts the engine names and the letters a, b and c.
func ParseEngine(s string) (EngineID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range engineNames {
		if s == n || (len(s) == 1 && s[0] == byte('a'+i)) {
			return EngineID(i), nil
		}
	}
	return 0, fault.New("unknown engine", ftag.With(ftag.NotFound), fmsg.WithDesc(s, "No such synthesis engine: "+s))
}

func (e EngineID) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *EngineID) UnmarshalText(text []byte) error {
	v, err := ParseEngine(string(text))
	if err != nil {
		return err
	}
	*e = v
	return nil
}
