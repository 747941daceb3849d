package engine

import "github.com/lumenaudio/lumen"

// State is a snapshot of the session, published by the player after every
// message and pulse.
type State struct {
	Playing         bool                   `json:"playing"`
	Paused          bool                   `json:"paused"`
	Mode            string                 `json:"mode"`
	BPM             float64                `json:"bpm"`
	TargetBPM       float64                `json:"targetBpm"`
	Scale           string                 `json:"scale"`
	PreviousScale   string                 `json:"previousScale,omitempty"`
	Key             string                 `json:"key"`
	PreviousKey     string                 `json:"previousKey,omitempty"`
	Density         float64                `json:"density"`
	Drums           bool                   `json:"drums"`
	Pattern         string                 `json:"pattern"`
	PatternModified bool                   `json:"patternModified"`
	Engine          lumen.EngineID         `json:"engine"`
	Volume          float64                `json:"volume"`
	DrumVolume      float64                `json:"drumVolume"`
	Chaos           bool                   `json:"chaos"`
	Ambience        float64                `json:"ambience"`
	Gain            float64                `json:"gain"`
	Pulse           int64                  `json:"pulse"`
	Tasks           int                    `json:"tasks"`
	Presets         map[lumen.Voice]string `json:"presets"`
	LastAlert       string                 `json:"lastAlert,omitempty"`
}
