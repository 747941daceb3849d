package lumen

import (
	"slices"
	"sort"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// Scale is a named set of semitone offsets from the root, ascending, within
// one octave.
type Scale struct {
	Name      string
	Intervals []int
}

var scales = map[string][]int{
	"major":           {0, 2, 4, 5, 7, 9, 11},
	"minor":           {0, 2, 3, 5, 7, 8, 10},
	"dorian":          {0, 2, 3, 5, 7, 9, 10},
	"phrygian":        {0, 1, 3, 5, 7, 8, 10},
	"lydian":          {0, 2, 4, 6, 7, 9, 11},
	"mixolydian":      {0, 2, 4, 5, 7, 9, 10},
	"locrian":         {0, 1, 3, 5, 6, 8, 10},
	"harmonicMinor":   {0, 2, 3, 5, 7, 8, 11},
	"pentatonic":      {0, 2, 4, 7, 9},
	"minorPentatonic": {0, 3, 5, 7, 10},
	"blues":           {0, 3, 5, 6, 7, 10},
	"wholeTone":       {0, 2, 4, 6, 8, 10},
}

const DefaultScale = "minor"

// ScaleNames lists the scale table in alphabetical order.
func ScaleNames() []string {
	ret := make([]string, 0, len(scales))
	for k := range scales {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

// LookupScale returns the scale with the given name.
func LookupScale(name string) (Scale, error) {
	iv, ok := scales[name]
	if !ok {
		return Scale{}, fault.New("unknown scale", ftag.With(ftag.NotFound), fmsg.WithDesc(name, "No such scale: "+name))
	}
	return Scale{Name: name, Intervals: slices.Clone(iv)}, nil
}

// Validate checks that the scale has at least one interval and all of them
// fall within an octave.
func (s Scale) Validate() error {
	if len(s.Intervals) == 0 {
		return fault.New("scale has no intervals", ftag.With(ftag.InvalidArgument), fmsg.WithDesc(s.Name, "Empty scale"))
	}
	for _, i := range s.Intervals {
		if i < 0 || i > 11 {
			return fault.New("scale interval out of range", ftag.With(ftag.InvalidArgument), fmsg.WithDesc(s.Name, "Scale intervals are 0..11"))
		}
	}
	return nil
}
