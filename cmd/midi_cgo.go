//go:build cgo

package cmd

import (
	"github.com/lumenaudio/lumen"
	"github.com/lumenaudio/lumen/gomidi"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

const MIDIAvailable = true

// OpenMIDI opens the MIDI output backend on the port matching name.
func OpenMIDI(name string, gain *lumen.Ramp) (*gomidi.Output, error) {
	return gomidi.Open(name, gain)
}
