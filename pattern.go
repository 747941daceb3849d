package lumen

import (
	"fmt"
	"maps"
	"slices"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

type (
	// Pattern is a drum step pattern: one on/off array per drum voice, all
	// looping over Length steps of a sixteenth note each.
	Pattern struct {
		Name     string
		Length   int
		Steps    map[Voice]Steps
		Custom   bool `yaml:",omitempty"`
		Modified bool `yaml:"-"`
	}

	// Steps is the on/off array of a single drum voice. In files it is
	// written as a list of 0s and 1s.
	Steps []bool
)

// Hit reports whether voice sounds on the given step. Steps wrap around
// Length; a voice with a shorter array is silent on the missing steps.
func (p *Pattern) Hit(v Voice, step int64) bool {
	if p == nil || p.Length <= 0 {
		return false
	}
	i := int(step % int64(p.Length))
	if i < 0 {
		i += p.Length
	}
	s := p.Steps[v]
	return i < len(s) && s[i]
}

// SetStep switches a step on or off and marks the pattern modified.
func (p *Pattern) SetStep(v Voice, step int, on bool) error {
	if !v.IsDrum() {
		return fault.New("not a drum voice", ftag.With(ftag.NotFound), fmsg.WithDesc(string(v), "Patterns only hold drum voices"))
	}
	if step < 0 || step >= p.Length {
		return fault.New("step out of range", ftag.With(ftag.InvalidArgument), fmsg.WithDesc(fmt.Sprint(step), fmt.Sprintf("Step must be in 0..%d", p.Length-1)))
	}
	if p.Steps == nil {
		p.Steps = map[Voice]Steps{}
	}
	s := p.Steps[v]
	for len(s) < p.Length {
		s = append(s, false)
	}
	s[step] = on
	p.Steps[v] = s
	p.Modified = true
	return nil
}

// Copy makes a deep copy of a Pattern.
func (p *Pattern) Copy() Pattern {
	ret := *p
	ret.Steps = maps.Clone(p.Steps)
	for k, v := range ret.Steps {
		ret.Steps[k] = slices.Clone(v)
	}
	return ret
}

// Validate checks the pattern has a positive length and drum voices only.
func (p *Pattern) Validate() error {
	if p.Name == "" {
		return fault.New("pattern has no name", ftag.With(ftag.InvalidArgument))
	}
	if p.Length <= 0 {
		return fault.New("pattern length must be positive", ftag.With(ftag.InvalidArgument), fmsg.WithDesc(p.Name, "Pattern length must be positive"))
	}
	for v := range p.Steps {
		if !v.IsDrum() {
			return fault.New("pattern has a non-drum voice", ftag.With(ftag.InvalidArgument), fmsg.WithDesc(string(v), "Patterns only hold drum voices"))
		}
	}
	return nil
}

// UnmarshalYAML reads a list of 0/1 integers.
func (s *Steps) UnmarshalYAML(unmarshal func(any) error) error {
	var ints []int
	if err := unmarshal(&ints); err != nil {
		return err
	}
	*s = make(Steps, len(ints))
	for i, v := range ints {
		(*s)[i] = v != 0
	}
	return nil
}

func (s Steps) MarshalYAML() (any, error) {
	ints := make([]int, len(s))
	for i, v := range s {
		if v {
			ints[i] = 1
		}
	}
	return ints, nil
}
