// Package gomidi is the external MIDI backend: each voice plays on its own
// channel of a MIDI output port, drums on the General MIDI drum channel.
package gomidi

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/lumenaudio/lumen"
	"gitlab.com/gomidi/midi/v2"
)

type Output struct {
	// AfterFunc schedules note offs; time.AfterFunc by default.
	AfterFunc func(d time.Duration, f func())
	// Logger reports note offs that could not be sent.
	Logger *log.Logger

	mu       sync.Mutex
	send     func(midi.Message) error
	gain     *lumen.Ramp
	sounding map[noteKey]int
	closed   bool
}

type noteKey struct {
	channel uint8
	key     uint8
}

const DrumChannel = 9

var channels = map[lumen.Voice]uint8{
	lumen.Pad:  0,
	lumen.Bass: 1,
	lumen.Lead: 2,
	lumen.Arp:  3,
}

// programs maps presets to General MIDI programs (0-based). Drum kits map to
// GS drum set numbers.
var programs = map[string]uint8{
	"warm": 89, "glass": 92, "choir": 52, "strings": 48,
	"sub": 38, "acid": 87, "pluck": 45, "fm": 39,
	"saw": 81, "square": 80, "bell": 14, "flute": 73,
	"marimba": 12, "chip": 80,
	"808": 25, "909": 26, "linn": 0, "cr78": 24,
}

// New returns an output sending through send. gain scales every velocity;
// it is the engine's output gain, so pausing silences external gear too.
func New(send func(midi.Message) error, gain *lumen.Ramp) *Output {
	if gain == nil {
		gain = lumen.NewRamp(1, nil)
	}
	return &Output{
		AfterFunc: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		Logger:    log.Default(),
		send:      send,
		gain:      gain,
		sounding:  map[noteKey]int{},
	}
}

// Open connects to the first output port whose name contains name, or the
// first port if name is empty. A MIDI driver must have been registered.
func Open(name string, gain *lumen.Ramp) (*Output, error) {
	for _, port := range midi.GetOutPorts() {
		if name != "" && !strings.Contains(strings.ToLower(port.String()), strings.ToLower(name)) {
			continue
		}
		send, err := midi.SendTo(port)
		if err != nil {
			return nil, fault.Wrap(err, fmsg.With("could not open MIDI output "+port.String()))
		}
		return New(send, gain), nil
	}
	return nil, fault.New("no MIDI output", ftag.With(ftag.NotFound), fmsg.WithDesc("no matching MIDI output port: "+name, "No MIDI output device found"))
}

// Ports lists the names of the available output ports.
func Ports() []string {
	var ret []string
	for _, port := range midi.GetOutPorts() {
		ret = append(ret, port.String())
	}
	return ret
}

func channel(v lumen.Voice) uint8 {
	if v.IsDrum() {
		return DrumChannel
	}
	return channels[v]
}

func (o *Output) IsReady(lumen.Voice) bool {
	return o.send != nil
}

func (o *Output) ChangePreset(v lumen.Voice, preset string) error {
	prog, ok := programs[preset]
	if !ok || !lumen.HasPreset(v, preset) {
		return fault.New("unknown preset", ftag.With(ftag.NotFound), fmsg.WithDesc(preset, "No preset "+preset+" for "+string(v)))
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.send(midi.ProgramChange(channel(v), prog))
}

// Play sends a note on now and the matching note off after dur. Notes that
// would be silent at the current output gain are not sent.
func (o *Output) Play(v lumen.Voice, n lumen.Note, dur time.Duration, velocity float64) error {
	vel := int(velocity*o.gain.Value()*127 + 0.5)
	if vel < 1 {
		return nil
	}
	k := noteKey{channel(v), uint8(n)}
	o.mu.Lock()
	err := o.send(midi.NoteOn(k.channel, k.key, uint8(min(vel, 127))))
	if err == nil {
		o.sounding[k]++
	}
	o.mu.Unlock()
	if err != nil {
		return fault.Wrap(err, fmsg.With("could not send note on"))
	}
	o.AfterFunc(dur, func() { o.release(k) })
	return nil
}

// release sends the note off once the last overlapping instance of a note
// has ended, so a retriggered note is not cut short. After Close the port
// has been silenced and nothing is sent.
func (o *Output) release(k noteKey) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.sounding[k]--
	if o.sounding[k] > 0 {
		return
	}
	delete(o.sounding, k)
	if err := o.send(midi.NoteOff(k.channel, k.key)); err != nil {
		o.Logger.Printf("gomidi: could not send note off %d on channel %d: %v", k.key, k.channel, err)
	}
}

// Close silences every channel.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	clear(o.sounding)
	for ch := range uint8(16) {
		if err := o.send(midi.ControlChange(ch, 123, 0)); err != nil {
			return fault.Wrap(err, fmsg.With("could not send all notes off"))
		}
	}
	return nil
}
