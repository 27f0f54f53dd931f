// Package track implements the per-track processing pipeline: generating
// MIDI-shaped events from a track's score, wiring audio-input connections
// between slots, driving each module in order over the audio-plane
// transport, and metering the result.
package track

import (
	"github.com/ticktrack/core/pkg/model"
	"github.com/ticktrack/core/pkg/processdata"
	"github.com/ticktrack/core/pkg/transport"
)

// instrumentModuleIndex is the module note events are routed to: the first
// module in a track's chain, conventionally the instrument/synth a track's
// Lanes drive. Point items instead route through an explicit
// AutomationBinding.ModuleIndex, since one track's automation lanes can
// target any module in its chain, not just the instrument.
const instrumentModuleIndex = 0

// ScoredEvent pairs a generated processdata.Event with the module index it
// targets, since events_in is per-slot but score generation happens once
// per track across every module (§4.5 step 1 feeds step 2a).
type ScoredEvent struct {
	ModuleIndex int
	Event       processdata.Event
}

// OnKey tracks one lane's outstanding held note across blocks and loop
// wraps, per §4.5 "NoteOff tracking": "this state persists until explicit
// all-notes-off".
type OnKey struct {
	Key int16
	Has bool
}

// ScoreState holds the per-lane OnKey state for one track, living for the
// track's lifetime (not reset per block).
type ScoreState struct {
	onKey []OnKey
}

// NewScoreState allocates on-key tracking for a track with laneCount lanes.
func NewScoreState(laneCount int) *ScoreState {
	return &ScoreState{onKey: make([]OnKey, laneCount)}
}

// GenerateEvents implements §4.5 step 1: given one sub-range of the block's
// affected tick range (already split across any loop wrap by the caller -
// see transport.Range.Split) and offset, the number of ticks already
// consumed by earlier sub-ranges in this same block, emit
// NoteOn/NoteOff/ParamValue events with delay relative to the undivided
// block start, each tagged with the module it targets.
func (s *ScoreState) GenerateEvents(tr *model.Track, r transport.Range, offset uint32) []ScoredEvent {
	var events []ScoredEvent

	for laneIdx := range tr.Lanes {
		if laneIdx >= len(s.onKey) {
			s.onKey = append(s.onKey, make([]OnKey, laneIdx+1-len(s.onKey))...)
		}
		lane := &tr.Lanes[laneIdx]
		onKey := &s.onKey[laneIdx]

		startLine := transport.Line(r.Start)
		endLine := transport.Line(r.End)
		for line := startLine; line <= endLine; line++ {
			item, ok := lane.Items[line]
			if !ok {
				continue
			}
			tick := item.Tick(line)
			if tick < r.Start || tick >= r.End {
				continue
			}
			delay := offset + uint32(tick-r.Start)

			switch item.Kind {
			case model.LaneItemNote:
				for _, ev := range s.applyNoteItem(onKey, item, delay) {
					events = append(events, ScoredEvent{ModuleIndex: instrumentModuleIndex, Event: ev})
				}
			case model.LaneItemPoint:
				if se, ok := resolvePoint(tr, item, delay); ok {
					events = append(events, se)
				}
			}
		}
	}
	return events
}

// applyNoteItem implements the note-off-before-note-on rule: "if a note is
// emitted while that lane has an outstanding on key, emit a NoteOff for the
// outstanding key first ... then NoteOn (unless the new item is an explicit
// note-off, in which case only the off)".
func (s *ScoreState) applyNoteItem(onKey *OnKey, item model.LaneItem, delay uint32) []processdata.Event {
	note := item.Note
	var events []processdata.Event

	if onKey.Has {
		events = append(events, processdata.Event{
			Kind: processdata.EventNoteOff, Delay: delay,
			Key: onKey.Key, Channel: int16(note.Channel),
		})
		onKey.Has = false
	}

	if note.Off {
		return events
	}

	events = append(events, processdata.Event{
		Kind: processdata.EventNoteOn, Delay: delay,
		Key: int16(note.Key), Channel: int16(note.Channel),
		Velocity: float64(note.Velocity) / 127.0,
	})
	onKey.Key = int16(note.Key)
	onKey.Has = true
	return events
}

// resolvePoint implements "Point items resolve through the track's
// automation_params binding table to ParamValue(module_index, param_id,
// value/255, delay)".
func resolvePoint(tr *model.Track, item model.LaneItem, delay uint32) (ScoredEvent, bool) {
	idx := item.Point.AutomationParamsIndex
	if idx < 0 || idx >= len(tr.AutomationParams) {
		return ScoredEvent{}, false
	}
	binding := tr.AutomationParams[idx]
	return ScoredEvent{
		ModuleIndex: binding.ModuleIndex,
		Event: processdata.Event{
			Kind:    processdata.EventParamValue,
			Delay:   delay,
			ParamID: binding.ParamID,
			Value:   float64(item.Point.Value) / 255.0,
		},
	}, true
}
