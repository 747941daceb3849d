package lumen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// Note is a MIDI note number, 60 being middle C (C4).
type Note uint8

const MaxNote Note = 127

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var pitchClasses = map[string]int{
	"C": 0, "B#": 0,
	"C#": 1, "DB": 1,
	"D":  2,
	"D#": 3, "EB": 3,
	"E": 4, "FB": 4,
	"F": 5, "E#": 5,
	"F#": 6, "GB": 6,
	"G":  7,
	"G#": 8, "AB": 8,
	"A":  9,
	"A#": 10, "BB": 10,
	"B": 11, "CB": 11,
}

func (n Note) String() string {
	return fmt.Sprintf("%s%d", noteNames[n%12], int(n)/12-1)
}

// PitchClass returns the note's position within the octave, 0 = C.
func (n Note) PitchClass() int {
	return int(n) % 12
}

// ClampNote returns v limited to the MIDI note range.
func ClampNote(v int) Note {
	return Note(max(min(v, int(MaxNote)), 0))
}

// ParsePitchClass parses a key name such as "C", "F#" or "Bb".
func ParsePitchClass(name string) (int, error) {
	pc, ok := pitchClasses[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return 0, fault.New("unknown key", ftag.With(ftag.NotFound), fmsg.WithDesc(name, "No such key: "+name))
	}
	return pc, nil
}

// ParseNote parses a note name with octave ("C4", "f#2", "Bb-1") or a plain
// MIDI note number.
func ParseNote(s string) (Note, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > int(MaxNote) {
			return 0, fault.New("note out of range", ftag.With(ftag.InvalidArgument), fmsg.WithDesc(s, "MIDI notes are 0..127"))
		}
		return Note(n), nil
	}
	i := len(s)
	for i > 0 && (s[i-1] >= '0' && s[i-1] <= '9') {
		i--
	}
	if i > 0 && s[i-1] == '-' {
		i--
	}
	if i == len(s) || i == 0 {
		return 0, fault.New("malformed note", ftag.With(ftag.InvalidArgument), fmsg.WithDesc(s, "Notes look like C4 or F#2"))
	}
	pc, err := ParsePitchClass(s[:i])
	if err != nil {
		return 0, err
	}
	octave, err := strconv.Atoi(s[i:])
	if err != nil {
		return 0, fault.Wrap(err, ftag.With(ftag.InvalidArgument))
	}
	v := (octave+1)*12 + pc
	if v < 0 || v > int(MaxNote) {
		return 0, fault.New("note out of range", ftag.With(ftag.InvalidArgument), fmsg.WithDesc(s, "MIDI notes are 0..127"))
	}
	return Note(v), nil
}

// UnmarshalYAML accepts both note names and numbers. The signature is the
// one understood by both yaml.v2 and yaml.v3.
func (n *Note) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := ParseNote(s)
	if err != nil {
		return err
	}
	*n = v
	return nil
}

func (n Note) MarshalYAML() (any, error) {
	return n.String(), nil
}
