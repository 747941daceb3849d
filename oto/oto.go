// Package oto plays an audio source on the default output device.
package oto

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/lumenaudio/lumen"
	"github.com/viterin/vek/vek32"
)

type (
	Context struct {
		ctx *oto.Context
	}

	// Reader pulls stereo frames from a source and encodes them as the
	// interleaved float32 stream oto plays, applying the output gain and
	// clipping to -1..1.
	Reader struct {
		src    lumen.AudioSource
		gain   *lumen.Ramp
		frames [][2]float64
		floats []float32
	}
)

const bufferDuration = 60 * time.Millisecond

// NewContext opens the output device at the given sample rate.
func NewContext(sampleRate int) (*Context, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{ctx: ctx}, nil
}

// Play starts streaming src. Closing the returned player stops it.
func (c *Context) Play(src lumen.AudioSource, gain *lumen.Ramp) (io.Closer, error) {
	p := c.ctx.NewPlayer(NewReader(src, gain))
	p.Play()
	if err := c.ctx.Err(); err != nil {
		p.Close()
		return nil, fmt.Errorf("cannot start oto player: %w", err)
	}
	return p, nil
}

func (c *Context) Close() error {
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

func NewReader(src lumen.AudioSource, gain *lumen.Ramp) *Reader {
	if gain == nil {
		gain = lumen.NewRamp(1, nil)
	}
	return &Reader{src: src, gain: gain}
}

func (r *Reader) Read(p []byte) (int, error) {
	n := len(p) / 8
	if n == 0 {
		return 0, nil
	}
	if cap(r.frames) < n {
		r.frames = make([][2]float64, n)
		r.floats = make([]float32, 2*n)
	}
	frames, floats := r.frames[:n], r.floats[:2*n]
	clear(frames)
	r.src.Stream(frames)
	for i, f := range frames {
		floats[2*i] = float32(f[0])
		floats[2*i+1] = float32(f[1])
	}
	vek32.MulNumber_Inplace(floats, float32(r.gain.Value()))
	vek32.MinimumNumber_Inplace(floats, 1)
	vek32.MaximumNumber_Inplace(floats, -1)
	return Float32ToLE(p, floats), nil
}
