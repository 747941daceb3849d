// Package mix sums the voices of the in-process backends into one stream
// and adds the ambience echo.
package mix

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/lumenaudio/lumen"
)

const (
	DefaultSampleRate beep.SampleRate = 44100

	echoTime     = 375 * time.Millisecond
	echoFeedback = 0.45
)

// Mixer plays every streamer added to it until it is drained. Add is called
// from the engine goroutine and Stream from the audio goroutine.
type Mixer struct {
	mu    sync.Mutex
	sr    beep.SampleRate
	voice beep.Mixer
	wet   *lumen.Ramp

	echo     [][2]float64
	position int
}

// New returns a mixer running at sr. wet sets how much of the echo is heard;
// nil means none.
func New(sr beep.SampleRate, wet *lumen.Ramp) *Mixer {
	if wet == nil {
		wet = lumen.NewRamp(0, nil)
	}
	return &Mixer{sr: sr, wet: wet, echo: make([][2]float64, max(sr.N(echoTime), 1))}
}

func (m *Mixer) SampleRate() beep.SampleRate { return m.sr }

// Add starts playing s.
func (m *Mixer) Add(s beep.Streamer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voice.Add(s)
}

// Voices returns the number of streamers still playing.
func (m *Mixer) Voices() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voice.Len()
}

// Stream always fills samples; silence when nothing is playing.
func (m *Mixer) Stream(samples [][2]float64) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range samples {
		samples[i] = [2]float64{}
	}
	m.voice.Stream(samples)
	wet := m.wet.Value()
	for i := range samples {
		d := m.echo[m.position]
		m.echo[m.position][0] = samples[i][0] + d[0]*echoFeedback
		m.echo[m.position][1] = samples[i][1] + d[1]*echoFeedback
		samples[i][0] += d[0] * wet
		samples[i][1] += d[1] * wet
		m.position = (m.position + 1) % len(m.echo)
	}
	return len(samples), true
}

func (m *Mixer) Err() error { return nil }
