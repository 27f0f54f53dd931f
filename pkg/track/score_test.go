package track

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ticktrack/core/pkg/model"
	"github.com/ticktrack/core/pkg/processdata"
	"github.com/ticktrack/core/pkg/transport"
)

func trackWithNoteAt(line, delay, key int) *model.Track {
	tr := model.NewTrack("t")
	lane := model.NewLane()
	lane.Set(line, model.LaneItem{Kind: model.LaneItemNote, Note: model.Note{Key: key, Velocity: 100, Delay: delay}})
	tr.Lanes = []model.Lane{*lane}
	return tr
}

func TestGenerateEventsEmitsNoteOn(t *testing.T) {
	tr := trackWithNoteAt(0, 10, 60)
	s := NewScoreState(1)

	events := s.GenerateEvents(tr, transport.Range{Start: 0, End: 256}, 0)
	require.Len(t, events, 1)
	require.Equal(t, processdata.EventNoteOn, events[0].Event.Kind)
	require.EqualValues(t, 10, events[0].Event.Delay)
	require.EqualValues(t, 60, events[0].Event.Key)
}

func TestGenerateEventsClosesOutstandingNoteBeforeNewOne(t *testing.T) {
	tr := model.NewTrack("t")
	lane := model.NewLane()
	lane.Set(0, model.LaneItem{Kind: model.LaneItemNote, Note: model.Note{Key: 60, Velocity: 100, Delay: 0}})
	lane.Set(1, model.LaneItem{Kind: model.LaneItemNote, Note: model.Note{Key: 64, Velocity: 100, Delay: 0}})
	tr.Lanes = []model.Lane{*lane}

	s := NewScoreState(1)
	events := s.GenerateEvents(tr, transport.Range{Start: 0, End: 512}, 0)

	require.Len(t, events, 3)
	require.Equal(t, processdata.EventNoteOn, events[0].Event.Kind)
	require.EqualValues(t, 60, events[0].Event.Key)
	require.Equal(t, processdata.EventNoteOff, events[1].Event.Kind)
	require.EqualValues(t, 60, events[1].Event.Key)
	require.Equal(t, processdata.EventNoteOn, events[2].Event.Kind)
	require.EqualValues(t, 64, events[2].Event.Key)
}

func TestGenerateEventsExplicitNoteOffOnlyClosesHeldNote(t *testing.T) {
	tr := model.NewTrack("t")
	lane := model.NewLane()
	lane.Set(0, model.LaneItem{Kind: model.LaneItemNote, Note: model.Note{Key: 60, Velocity: 100}})
	lane.Set(1, model.LaneItem{Kind: model.LaneItemNote, Note: model.Note{Off: true}})
	tr.Lanes = []model.Lane{*lane}

	s := NewScoreState(1)
	events := s.GenerateEvents(tr, transport.Range{Start: 0, End: 512}, 0)

	require.Len(t, events, 2)
	require.Equal(t, processdata.EventNoteOn, events[0].Event.Kind)
	require.Equal(t, processdata.EventNoteOff, events[1].Event.Kind)
	require.EqualValues(t, 60, events[1].Event.Key)
}

func TestGenerateEventsDelayContinuesAcrossLoopWrap(t *testing.T) {
	// A block spanning a loop boundary is split into a pre-wrap sub-range
	// [960, 1024) and a post-wrap sub-range [0, 64); a note at tick 0 in the
	// post-wrap half is really 64 ticks into the block, not 0.
	tr := trackWithNoteAt(0, 0, 60)
	s := NewScoreState(1)

	r := transport.Range{Start: 960, End: 64}
	var offset uint32
	var events []ScoredEvent
	for _, sub := range r.Split(0, 1024) {
		events = append(events, s.GenerateEvents(tr, sub, offset)...)
		offset += uint32(sub.End - sub.Start)
	}

	require.Len(t, events, 1)
	require.Equal(t, processdata.EventNoteOn, events[0].Event.Kind)
	require.EqualValues(t, 64, events[0].Event.Delay)
}

func TestGenerateEventsResolvesPointThroughAutomationBinding(t *testing.T) {
	tr := model.NewTrack("t")
	tr.AutomationParams = []model.AutomationBinding{{ModuleIndex: 2, ParamID: 7}}
	lane := model.NewLane()
	lane.Set(0, model.LaneItem{Kind: model.LaneItemPoint, Point: model.Point{AutomationParamsIndex: 0, Value: 255}})
	tr.Lanes = []model.Lane{*lane}

	s := NewScoreState(1)
	events := s.GenerateEvents(tr, transport.Range{Start: 0, End: 256}, 0)

	require.Len(t, events, 1)
	require.Equal(t, 2, events[0].ModuleIndex)
	require.Equal(t, processdata.EventParamValue, events[0].Event.Kind)
	require.EqualValues(t, 7, events[0].Event.ParamID)
	require.InDelta(t, 1.0, events[0].Event.Value, 1e-9)
}
