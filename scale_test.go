package lumen_test

import (
	"testing"

	"github.com/lumenaudio/lumen"
)

func TestScaleTableIsValid(t *testing.T) {
	for _, name := range lumen.ScaleNames() {
		s, err := lumen.LookupScale(name)
		if err != nil {
			t.Fatalf("LookupScale(%q) failed: %v", name, err)
		}
		if err := s.Validate(); err != nil {
			t.Errorf("scale %q is invalid: %v", name, err)
		}
	}
}

func TestLookupUnknownScale(t *testing.T) {
	_, err := lumen.LookupScale("nonexistent")
	if !lumen.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestParseNote(t *testing.T) {
	tests := []struct {
		in   string
		want lumen.Note
	}{
		{"C4", 60},
		{"a4", 69},
		{"F#2", 42},
		{"Bb3", 58},
		{"C-1", 0},
		{"64", 64},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := lumen.ParseNote(tt.in)
			if err != nil {
				t.Fatalf("ParseNote(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseNote(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
	for _, bad := range []string{"H4", "C", "C12", "200", ""} {
		if _, err := lumen.ParseNote(bad); err == nil {
			t.Errorf("ParseNote(%q) should fail", bad)
		}
	}
}

func TestNoteString(t *testing.T) {
	if s := lumen.Note(61).String(); s != "C#4" {
		t.Errorf("Note(61).String() = %q, want C#4", s)
	}
}

func TestParseEngine(t *testing.T) {
	for in, want := range map[string]lumen.EngineID{"synth": lumen.EngineSynth, "B": lumen.EngineSampler, "midi": lumen.EngineMIDI} {
		got, err := lumen.ParseEngine(in)
		if err != nil || got != want {
			t.Errorf("ParseEngine(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := lumen.ParseEngine("d"); !lumen.IsNotFound(err) {
		t.Errorf("ParseEngine(d) should be NotFound, got %v", err)
	}
}
