package lumen

import "slices"

// Presets lists the sounds each melodic voice can switch between; the first
// entry is the default. All backends understand these names.
var Presets = map[Voice][]string{
	Pad:  {"warm", "glass", "choir", "strings"},
	Bass: {"sub", "acid", "pluck", "fm"},
	Lead: {"saw", "square", "bell", "flute"},
	Arp:  {"pluck", "bell", "marimba", "chip"},
}

// Kits lists the drum machines; a kit is the preset of all drum voices.
var Kits = []string{"808", "909", "linn", "cr78"}

// PresetsFor returns the preset names valid for a voice.
func PresetsFor(v Voice) []string {
	if v.IsDrum() {
		return Kits
	}
	return Presets[v]
}

// HasPreset reports whether name is a valid preset for the voice.
func HasPreset(v Voice, name string) bool {
	return slices.Contains(PresetsFor(v), name)
}
