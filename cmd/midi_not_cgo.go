//go:build !cgo

package cmd

import (
	"errors"

	"github.com/lumenaudio/lumen"
	"github.com/lumenaudio/lumen/gomidi"
)

const MIDIAvailable = false

// OpenMIDI fails: with no cgo there is no MIDI driver to send through.
func OpenMIDI(string, *lumen.Ramp) (*gomidi.Output, error) {
	return nil, errors.New("MIDI output is not available in builds without cgo")
}
