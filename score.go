package lumen

import (
	"fmt"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

type (
	// Score is a set of authored tracks played in place of the generative
	// voices. Voices without a track stay silent.
	Score struct {
		Tracks []Track
	}

	// Track is a looping list of steps for one melodic voice. Each step lasts
	// Subdivision clock pulses (sixteenth notes). Length defaults to
	// len(Steps); steps past the end of Steps are rests.
	Track struct {
		Voice       Voice
		Subdivision int    `yaml:",omitempty"`
		Length      int    `yaml:",omitempty"`
		Steps       []Step `yaml:",omitempty"`
	}

	// Step holds the notes started on one step. Duration is in steps, Velocity
	// in 0..1. A step with no notes is a rest.
	Step struct {
		Notes    []Note  `yaml:",flow,omitempty"`
		Duration float64 `yaml:",omitempty"`
		Velocity float64 `yaml:",omitempty"`
	}
)

const DefaultVelocity = 0.8

// Copy makes a deep copy of a Score.
func (s Score) Copy() Score {
	tracks := make([]Track, len(s.Tracks))
	for i, t := range s.Tracks {
		tracks[i] = t
		tracks[i].Steps = make([]Step, len(t.Steps))
		for j, st := range t.Steps {
			tracks[i].Steps[j] = st
			tracks[i].Steps[j].Notes = append([]Note(nil), st.Notes...)
		}
	}
	return Score{Tracks: tracks}
}

// Validate checks that every track plays a melodic voice, at most once.
func (s Score) Validate() error {
	if len(s.Tracks) == 0 {
		return fault.New("score has no tracks", ftag.With(ftag.InvalidArgument), fmsg.WithDesc("empty score", "The authored score has no tracks"))
	}
	seen := map[Voice]bool{}
	for i, t := range s.Tracks {
		if !t.Voice.IsMelodic() {
			return fault.New("track voice is not melodic", ftag.With(ftag.InvalidArgument), fmsg.WithDesc(fmt.Sprintf("track %d: %q", i, t.Voice), "Authored tracks play pad, bass, lead or arp"))
		}
		if seen[t.Voice] {
			return fault.New("duplicate track voice", ftag.With(ftag.InvalidArgument), fmsg.WithDesc(string(t.Voice), "Only one authored track per voice"))
		}
		seen[t.Voice] = true
		if t.Subdivision < 0 || t.Length < 0 {
			return fault.New("negative track timing", ftag.With(ftag.InvalidArgument), fmsg.WithDesc(string(t.Voice), "Subdivision and length cannot be negative"))
		}
		if t.StepCount() == 0 {
			return fault.New("track has no steps", ftag.With(ftag.InvalidArgument), fmsg.WithDesc(string(t.Voice), "Authored track has no steps"))
		}
	}
	return nil
}

// Pulses returns the number of clock pulses per step, at least 1.
func (t *Track) Pulses() int {
	return max(t.Subdivision, 1)
}

// StepCount returns the loop length of the track in steps.
func (t *Track) StepCount() int {
	if t.Length > 0 {
		return t.Length
	}
	return len(t.Steps)
}

// At returns the step at index i of the loop, and false for rests.
func (t *Track) At(i int) (Step, bool) {
	n := t.StepCount()
	if n == 0 {
		return Step{}, false
	}
	i %= n
	if i >= len(t.Steps) || len(t.Steps[i].Notes) == 0 {
		return Step{}, false
	}
	s := t.Steps[i]
	if s.Duration <= 0 {
		s.Duration = 1
	}
	if s.Velocity <= 0 {
		s.Velocity = DefaultVelocity
	}
	return s, true
}
