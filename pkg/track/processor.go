package track

import (
	"fmt"
	"time"

	"github.com/ticktrack/core/pkg/audiotransport"
	"github.com/ticktrack/core/pkg/herr"
	"github.com/ticktrack/core/pkg/model"
	"github.com/ticktrack/core/pkg/transport"
)

// ModuleSlot is everything the Processor needs to drive one module's audio
// plane for a block: its endpoint and the audio-input connections bound to
// it (resolved to a concrete upstream Endpoint by the caller, typically the
// engine's dependency-graph dispatcher).
type ModuleSlot struct {
	Endpoint *audiotransport.Endpoint
	Inputs   []ResolvedInput
}

// ResolvedInput is one AudioInput connection with its source endpoint
// already looked up (the engine resolves model.AudioInput.SrcModule into an
// Endpoint before calling Processor.Process, since that lookup spans
// tracks).
type ResolvedInput struct {
	DstPort  int
	SrcPort  int
	Source   *audiotransport.Endpoint
}

// ResponseTimeout bounds how long the engine waits for a plugin
// subprocess's response event before treating the slot as unresponsive
// (REDESIGN FLAGS: replaces the original's WaitForSingleObject(INFINITE)).
const ResponseTimeout = 50 * time.Millisecond

// Processor drives one track's modules for one block.
type Processor struct {
	score *ScoreState
}

// NewProcessor returns a Processor with fresh on-key tracking for a track
// with the given lane count.
func NewProcessor(laneCount int) *Processor {
	return &Processor{score: NewScoreState(laneCount)}
}

// Process generates events from the score, feeds each module its events
// and bound audio inputs in order, triggers it over the audio-plane
// transport, and returns the final module's output peak (in dB) for
// metering. A SlotFatal error aborts remaining modules in this track for
// this block but does not abort other tracks.
func (p *Processor) Process(tr *model.Track, slots []ModuleSlot, r transport.Range, loopStart, loopEnd int) (peakDB float64, err error) {
	var offset uint32
	for _, sub := range r.Split(loopStart, loopEnd) {
		scored := p.score.GenerateEvents(tr, sub, offset)
		for _, se := range scored {
			if se.ModuleIndex < 0 || se.ModuleIndex >= len(slots) {
				continue
			}
			slots[se.ModuleIndex].Endpoint.Block.PushEventIn(se.Event)
		}
		offset += uint32(sub.End - sub.Start)
	}

	var lastOutputPort = -1
	for i, slot := range slots {
		block := slot.Endpoint.Block

		for _, in := range slot.Inputs {
			ApplyAudioInput(block, in.DstPort, in.Source.Block, in.SrcPort)
		}

		if err := slot.Endpoint.SignalRequest(); err != nil {
			return 0, herr.New(herr.SlotFatal, slot.Endpoint.SlotID, fmt.Sprintf("module %d signal request", i), err)
		}
		if err := slot.Endpoint.WaitResponse(ResponseTimeout); err != nil {
			return 0, herr.New(herr.SlotFatal, slot.Endpoint.SlotID, fmt.Sprintf("module %d wait response", i), err)
		}
		if block.NPortsOut > 0 {
			lastOutputPort = 0
		}
	}

	if lastOutputPort < 0 || len(slots) == 0 {
		return 0, nil
	}
	return PeakDB(slots[len(slots)-1].Endpoint.Block, lastOutputPort), nil
}
