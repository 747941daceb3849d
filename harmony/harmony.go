// Package harmony turns the current key and scale into concrete notes for the
// melodic voices.
package harmony

import (
	"math/rand/v2"

	"github.com/lumenaudio/lumen"
)

// BaseOctave is the octave of the root note: with key C, the root is C4.
const BaseOctave = 4

type (
	// State is the harmonic context shared by all voices. It is a value:
	// writers build a new State with WithScale or WithRoot and replace the old
	// one whole, so a reader never sees a half-updated scale.
	State struct {
		Scale         lumen.Scale
		Root          lumen.Note
		PreviousScale string
		PreviousRoot  lumen.Note
	}

	// Generator picks notes from a State. Its random source is the only
	// randomness of the melodic voices.
	Generator struct {
		rand *rand.Rand
	}
)

// NewState returns the state for the given scale with the root on the given
// pitch class in BaseOctave.
func NewState(scale lumen.Scale, pitchClass int) State {
	return State{Scale: scale, Root: RootFor(pitchClass)}
}

// RootFor returns the root note of a key in BaseOctave.
func RootFor(pitchClass int) lumen.Note {
	return lumen.Note((BaseOctave+1)*12 + ((pitchClass%12)+12)%12)
}

func (s State) WithScale(scale lumen.Scale) State {
	s.PreviousScale = s.Scale.Name
	s.Scale = scale
	return s
}

func (s State) WithRoot(root lumen.Note) State {
	s.PreviousRoot = s.Root
	s.Root = root
	return s
}

func NewGenerator(r *rand.Rand) *Generator {
	return &Generator{rand: r}
}

// Rand exposes the generator's random source so voice triggers share it.
func (g *Generator) Rand() *rand.Rand {
	return g.rand
}

// Note returns the note on the given scale degree and octave. Degrees past
// the end of the scale continue into the next octave.
func (g *Generator) Note(s State, octave, degree int) lumen.Note {
	n := len(s.Scale.Intervals)
	if n == 0 {
		return lumen.ClampNote(int(s.Root) + (octave-BaseOctave)*12)
	}
	carry := degree / n
	degree %= n
	if degree < 0 {
		degree += n
		carry--
	}
	return lumen.ClampNote(int(s.Root) + s.Scale.Intervals[degree] + (octave-BaseOctave+carry)*12)
}

// RandomNote returns a note on a uniformly chosen degree of the scale.
func (g *Generator) RandomNote(s State, octave int) lumen.Note {
	return g.Note(s, octave, g.rand.IntN(max(len(s.Scale.Intervals), 1)))
}

// Chord returns the triad built on the root: scale degrees 0, 2 and 4.
func (g *Generator) Chord(s State, octave int) [3]lumen.Note {
	return [3]lumen.Note{g.Note(s, octave, 0), g.Note(s, octave, 2), g.Note(s, octave, 4)}
}
