package model

// Track is one signal-graph node: zero or more plugin Modules in series,
// zero or more note/automation Lanes feeding them, plus fader state.
type Track struct {
	Name string `json:"name"`

	// Volume is normalized 0..1. The engine's mixer applies it directly as a
	// linear gain; no dB fader curve is applied.
	Volume float64 `json:"volume" validate:"gte=0,lte=1"`
	// Pan is 0..1, 0.5 is center.
	Pan float64 `json:"pan" validate:"gte=0,lte=1"`

	Mute bool `json:"mute"`
	Solo bool `json:"solo"`

	Modules           []Module            `json:"modules,omitempty"`
	Lanes             []Lane              `json:"lanes,omitempty"`
	AutomationParams  []AutomationBinding `json:"automationParams,omitempty"`
}

// NewTrack returns a Track with sane defaults (full volume, centered pan).
func NewTrack(name string) *Track {
	return &Track{
		Name:   name,
		Volume: 1.0,
		Pan:    0.5,
	}
}

// IsMaster reports whether this is track index 0, the mixdown bus. The
// engine's dependency-graph builder levels it like any other track (see
// pkg/engine/graph.go).
func IsMaster(trackIndex int) bool {
	return trackIndex == 0
}
