// Package transport provides the musical clock that every voice and drum
// channel is scheduled on.
package transport

import (
	"time"

	"github.com/lumenaudio/lumen"
)

type (
	// Subdivision is a note length measured in clock pulses. One pulse is a
	// sixteenth note.
	Subdivision int

	// Task is called on each pulse that falls on its subdivision.
	Task func(pulse int64)

	TaskID int

	// Clock counts pulses and runs scheduled tasks on them. It does not
	// sleep: the owner calls Pulse once per Interval. A Clock is not safe for
	// concurrent use; it belongs to the goroutine driving it.
	Clock struct {
		bpm     *lumen.Ramp
		running bool
		pulse   int64
		tasks   []scheduled
		nextID  TaskID
	}

	scheduled struct {
		id   TaskID
		div  Subdivision
		task Task
	}
)

const (
	Sixteenth Subdivision = 1
	Eighth    Subdivision = 2
	Quarter   Subdivision = 4
	Half      Subdivision = 8
	Whole     Subdivision = 16
	TwoBars   Subdivision = 32
)

const (
	MinBPM = 40
	MaxBPM = 240

	DefaultBPM = 100

	// TempoRamp is how long a tempo change takes to reach its target.
	TempoRamp = 2 * time.Second
)

// New returns a stopped clock at the given tempo. now is passed to the
// tempo ramp; nil means time.Now.
func New(bpm float64, now func() time.Time) *Clock {
	return &Clock{bpm: lumen.NewRamp(ClampBPM(bpm), now)}
}

func ClampBPM(bpm float64) float64 {
	return max(min(bpm, MaxBPM), MinBPM)
}

// Start starts counting from pulse 0. Starting a running clock does nothing.
func (c *Clock) Start() {
	if c.running {
		return
	}
	c.running = true
	c.pulse = 0
}

// Stop stops the clock and rewinds it. Scheduled tasks are kept.
func (c *Clock) Stop() {
	c.running = false
	c.pulse = 0
}

func (c *Clock) Running() bool { return c.running }

// Position returns the index of the next pulse to be run.
func (c *Clock) Position() int64 { return c.pulse }

// SetTempo glides the tempo to bpm over the given duration.
func (c *Clock) SetTempo(bpm float64, over time.Duration) {
	c.bpm.RampTo(ClampBPM(bpm), over)
}

// BPM returns the current, possibly ramping, tempo.
func (c *Clock) BPM() float64 { return c.bpm.Value() }

// TargetBPM returns the tempo the clock is ramping to.
func (c *Clock) TargetBPM() float64 { return c.bpm.Target() }

// Interval returns the wall-clock length of one pulse at the current tempo.
func (c *Clock) Interval() time.Duration {
	return c.Duration(Sixteenth)
}

// Duration returns the wall-clock length of a subdivision at the current
// tempo.
func (c *Clock) Duration(d Subdivision) time.Duration {
	beat := time.Duration(float64(time.Minute) / c.bpm.Value())
	return beat * time.Duration(d) / time.Duration(Quarter)
}

// Schedule adds a task firing every d pulses, aligned to pulse 0. Tasks
// sharing a pulse run in the order they were scheduled.
func (c *Clock) Schedule(d Subdivision, t Task) TaskID {
	c.nextID++
	c.tasks = append(c.tasks, scheduled{id: c.nextID, div: max(d, 1), task: t})
	return c.nextID
}

// Cancel removes a task. Cancelling an unknown task does nothing.
func (c *Clock) Cancel(id TaskID) {
	for i, s := range c.tasks {
		if s.id == id {
			c.tasks = append(c.tasks[:i], c.tasks[i+1:]...)
			return
		}
	}
}

// Tasks returns the number of scheduled tasks.
func (c *Clock) Tasks() int { return len(c.tasks) }

// Pulse runs the tasks due on the current pulse and advances the clock. It
// does nothing while the clock is stopped.
func (c *Clock) Pulse() {
	if !c.running {
		return
	}
	p := c.pulse
	for _, s := range c.tasks {
		if p%int64(s.div) == 0 {
			s.task(p)
		}
	}
	c.pulse++
}
