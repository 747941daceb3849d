package lumen

import "io"

type (
	// AudioSource fills stereo frames, values nominally in -1..1. It has the
	// same shape as a beep.Streamer so mixers can be passed directly.
	AudioSource interface {
		Stream(samples [][2]float64) (n int, ok bool)
		Err() error
	}

	// AudioContext plays sources on an output device.
	AudioContext interface {
		Play(source AudioSource, gain *Ramp) (io.Closer, error)
		Close() error
	}
)
