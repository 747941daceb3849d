// Package sampler is the sample-bank backend. Banks are WAV files laid out
// as <preset>/<voice>.wav under a root directory; melodic samples are
// pitched from RootNote.
package sampler

import (
	"fmt"
	"io/fs"
	"log"
	"math"
	"path"
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/wav"
	"github.com/lumenaudio/lumen"
	"github.com/lumenaudio/lumen/mix"
)

// RootNote is the pitch melodic samples are recorded at.
const RootNote lumen.Note = 60

type (
	// Sampler plays notes from sample banks loaded in the background. A
	// voice is ready once the bank of its current preset has loaded.
	Sampler struct {
		mu      sync.Mutex
		mixer   *mix.Mixer
		banks   fs.FS
		buffers map[bankKey]*beep.Buffer
		failed  map[bankKey]error
		presets map[lumen.Voice]string
		loads   sync.WaitGroup
		logger  *log.Logger
	}

	bankKey struct {
		preset string
		voice  lumen.Voice
	}
)

// New starts loading the default preset of every voice from banks.
func New(mixer *mix.Mixer, banks fs.FS, logger *log.Logger) *Sampler {
	if logger == nil {
		logger = log.Default()
	}
	s := &Sampler{
		mixer:   mixer,
		banks:   banks,
		buffers: map[bankKey]*beep.Buffer{},
		failed:  map[bankKey]error{},
		presets: map[lumen.Voice]string{},
		logger:  logger,
	}
	for v, ps := range lumen.Presets {
		s.use(v, ps[0])
	}
	for _, v := range lumen.DrumVoices {
		s.use(v, lumen.Kits[0])
	}
	return s
}

func (s *Sampler) ChangePreset(v lumen.Voice, preset string) error {
	if !lumen.HasPreset(v, preset) {
		return fault.New("unknown preset", ftag.With(ftag.NotFound), fmsg.WithDesc(preset, "No preset "+preset+" for "+string(v)))
	}
	s.use(v, preset)
	return nil
}

func (s *Sampler) use(v lumen.Voice, preset string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presets[v] = preset
	key := bankKey{preset, v}
	if _, ok := s.buffers[key]; ok {
		return
	}
	if _, ok := s.failed[key]; ok {
		return
	}
	s.buffers[key] = nil // loading
	s.loads.Add(1)
	go s.load(key)
}

func (s *Sampler) load(key bankKey) {
	defer s.loads.Done()
	buf, err := s.decode(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		delete(s.buffers, key)
		s.failed[key] = err
		s.logger.Printf("sampler: %v", err)
		return
	}
	s.buffers[key] = buf
}

func (s *Sampler) decode(key bankKey) (*beep.Buffer, error) {
	name := path.Join(key.preset, string(key.voice)+".wav")
	f, err := s.banks.Open(name)
	if err != nil {
		return nil, fmt.Errorf("could not open sample %v: %w", name, err)
	}
	defer f.Close()
	streamer, format, err := wav.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode sample %v: %w", name, err)
	}
	defer streamer.Close()
	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	return buf, nil
}

// Wait blocks until all started bank loads have finished.
func (s *Sampler) Wait() {
	s.loads.Wait()
}

func (s *Sampler) buffer(v lumen.Voice) *beep.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffers[bankKey{s.presets[v], v}]
}

func (s *Sampler) IsReady(v lumen.Voice) bool {
	return s.buffer(v) != nil
}

func (s *Sampler) Play(v lumen.Voice, n lumen.Note, dur time.Duration, velocity float64) error {
	buf := s.buffer(v)
	if buf == nil {
		return fault.New("sample bank not loaded", ftag.With(lumen.NotReady), fmsg.WithDesc(string(v), "Samples for "+string(v)+" are still loading"))
	}
	var st beep.Streamer = buf.Streamer(0, buf.Len())
	if v.IsMelodic() {
		st = beep.ResampleRatio(4, math.Pow(2, float64(int(n)-int(RootNote))/12), st)
	}
	if sr := s.mixer.SampleRate(); buf.Format().SampleRate != sr {
		st = beep.Resample(4, buf.Format().SampleRate, sr, st)
	}
	if v.IsMelodic() {
		st = beep.Take(s.mixer.SampleRate().N(dur), st)
	}
	s.mixer.Add(&effects.Gain{Streamer: st, Gain: velocity - 1})
	return nil
}
