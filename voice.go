package lumen

import (
	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// Voice names one of the eight instruments the engine drives: four melodic
// voices and four drum channels.
type Voice string

const (
	Pad  Voice = "pad"
	Bass Voice = "bass"
	Lead Voice = "lead"
	Arp  Voice = "arp"

	Kick    Voice = "kick"
	Snare   Voice = "snare"
	HiHat   Voice = "hihat"
	OpenHat Voice = "openhat"
)

var (
	MelodicVoices = []Voice{Pad, Bass, Lead, Arp}
	DrumVoices    = []Voice{Kick, Snare, HiHat, OpenHat}
)

// Mode is the composition mode of a playback session.
type Mode int

const (
	Generative Mode = iota
	Authored
)

func (m Mode) String() string {
	if m == Authored {
		return "authored"
	}
	return "generative"
}

func (v Voice) IsDrum() bool {
	switch v {
	case Kick, Snare, HiHat, OpenHat:
		return true
	}
	return false
}

func (v Voice) IsMelodic() bool {
	switch v {
	case Pad, Bass, Lead, Arp:
		return true
	}
	return false
}

// ParseVoice returns the voice with the given name.
func ParseVoice(name string) (Voice, error) {
	v := Voice(name)
	if v.IsDrum() || v.IsMelodic() {
		return v, nil
	}
	return "", fault.New("unknown voice", ftag.With(ftag.NotFound), fmsg.WithDesc(name, "No such voice: "+name))
}

// DrumNote returns the General MIDI percussion key of a drum voice, or 0 for
// melodic voices.
func DrumNote(v Voice) Note {
	switch v {
	case Kick:
		return 36
	case Snare:
		return 38
	case HiHat:
		return 42
	case OpenHat:
		return 46
	}
	return 0
}
