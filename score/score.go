// Package score reads authored tracks from YAML and Standard MIDI Files.
package score

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lumenaudio/lumen"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
	"gopkg.in/yaml.v3"
)

// Channels maps MIDI channels to voices when importing; it matches the
// channels the MIDI backend plays on, so recorded output imports back.
var Channels = map[uint8]lumen.Voice{
	0: lumen.Pad,
	1: lumen.Bass,
	2: lumen.Lead,
	3: lumen.Arp,
}

// Load reads a score file, choosing the format by extension.
func Load(path string) (lumen.Score, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return lumen.Score{}, fmt.Errorf("could not read score: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mid", ".midi":
		s, _, err := ReadMIDI(bytes.NewReader(data))
		return s, err
	}
	return ReadYAML(data)
}

func ReadYAML(data []byte) (lumen.Score, error) {
	var s lumen.Score
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("could not parse score: %w", err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func WriteYAML(w io.Writer, s lumen.Score) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("could not write score: %w", err)
	}
	return enc.Close()
}

// ReadMIDI quantizes the notes of a Standard MIDI File to sixteenth-note
// steps. Each of the channels in Channels becomes a track; the loop length
// is rounded up to whole bars. The file's first tempo is returned, or 0 if
// it has none.
func ReadMIDI(r io.Reader) (lumen.Score, float64, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return lumen.Score{}, 0, fmt.Errorf("failed to parse MIDI: %w", err)
	}
	resolution := int64(96)
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		resolution = int64(mt.Resolution())
	}
	ticksPerStep := float64(max(resolution/4, 1))

	type noteOn struct {
		tick int64
		vel  uint8
	}
	type event struct {
		start, end int64
		key, vel   uint8
	}
	var bpm float64
	var lastTick int64
	events := map[lumen.Voice][]event{}
	for _, track := range s.Tracks {
		var tick int64
		open := map[[2]uint8]noteOn{}
		for _, ev := range track {
			tick += int64(ev.Delta)
			msg := ev.Message
			if bpm == 0 && msg.GetMetaTempo(&bpm) {
				continue
			}
			var ch, key, vel uint8
			switch m := midi.Message(msg); {
			case m.GetNoteStart(&ch, &key, &vel):
				if _, ok := Channels[ch]; ok {
					open[[2]uint8{ch, key}] = noteOn{tick, vel}
				}
			case m.GetNoteEnd(&ch, &key):
				on, ok := open[[2]uint8{ch, key}]
				if !ok {
					continue
				}
				delete(open, [2]uint8{ch, key})
				v := Channels[ch]
				events[v] = append(events[v], event{on.tick, tick, key, on.vel})
				lastTick = max(lastTick, tick)
			}
		}
	}

	var score lumen.Score
	steps := int(math.Ceil(float64(lastTick) / ticksPerStep))
	steps = max((steps+15)/16*16, 16)
	for _, v := range lumen.MelodicVoices {
		evs := events[v]
		if len(evs) == 0 {
			continue
		}
		sort.Slice(evs, func(i, j int) bool { return evs[i].start < evs[j].start })
		t := lumen.Track{Voice: v, Subdivision: 1, Length: steps, Steps: make([]lumen.Step, steps)}
		for _, e := range evs {
			i := int(math.Round(float64(e.start)/ticksPerStep)) % steps
			st := &t.Steps[i]
			st.Notes = append(st.Notes, lumen.Note(e.key))
			st.Duration = max(st.Duration, max(float64(e.end-e.start)/ticksPerStep, 0.25))
			st.Velocity = max(st.Velocity, float64(e.vel)/127)
		}
		score.Tracks = append(score.Tracks, t)
	}
	if err := score.Validate(); err != nil {
		return score, bpm, err
	}
	return score, bpm, nil
}
