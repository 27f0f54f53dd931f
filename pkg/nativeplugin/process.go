package nativeplugin

/*
#include <stdlib.h>
#include <string.h>
#include "abi.h"

static int32_t np_call_process(np_plugin *p, int64_t steady_time, uint32_t frames,
                                const np_transport *transport,
                                np_audio_buffer *audio_in, uint32_t audio_in_count,
                                np_audio_buffer *audio_out, uint32_t audio_out_count,
                                const np_event_list *in_events, np_event_list *out_events) {
    return p->process(p, steady_time, frames, transport, audio_in, audio_in_count,
                       audio_out, audio_out_count, in_events, out_events);
}

static void np_event_list_init(np_event_list *list, np_event *storage, uint32_t capacity) {
    list->events = storage;
    list->count = 0;
    list->capacity = capacity;
}
*/
import "C"

import (
	"fmt"
	"math"
	"unsafe"

	"gitlab.com/gomidi/midi/v2"

	"github.com/ticktrack/core/pkg/process"
	"github.com/ticktrack/core/pkg/processdata"
)

// midiClockState tracks the beat-clock housekeeping accumulator across
// blocks (§4.1 step 6). It lives on the Wrapper since clock phase is
// per-plugin-instance state, not per-block state.
type midiClockState struct {
	wasPlaying        bool
	samplesUntilClock float64
}

// ProcessOutcome reports whether the call succeeded, distinguishing a fatal
// plugin failure from success (§4.1 step 7: "a failing status is fatal and
// aborts the slot").
type ProcessOutcome struct {
	Fatal bool
	Err   error
}

// Process runs one audio block through the plugin: prepares transport and
// event data, calls the plugin's process callback, and interprets its
// status code. block is the shared ProcessData view already populated by
// the caller (inputs, events, transport); steadyTime is a monotonically
// increasing sample counter.
func (w *Wrapper) Process(block *processdata.Block, steadyTime int64) ProcessOutcome {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Step 1: clamp declared port counts to MAX_PORTS.
	inCount := minInt(len(w.inputPorts), block.NPortsIn, processdata.MaxPorts)
	outCount := minInt(len(w.outputPorts), block.NPortsOut, processdata.MaxPorts)

	// Step 2: build native audio-buffer descriptors over the block's fixed
	// arrays - no copy, no allocation beyond the small per-port descriptor
	// and channel-pointer slices (freed when Process returns).
	cIn := buildAudioBuffers(block, true, inCount)
	cOut := buildAudioBuffers(block, false, outCount)

	// Step 3: transport descriptor.
	cTransport := buildTransport(block)

	// Step 4: samples-per-delay mapping, ticks -> frames.
	samplesPerDelay := samplesPerTick(float64(block.SampleRate), block.BPM, block.LPB)

	// Step 5: translate input events, dropping unknown param ids.
	inEvents := make([]C.np_event, 0, block.NEventsIn+8)
	for i := 0; i < block.NEventsIn; i++ {
		ce, ok := w.translateEventIn(block.EventsIn[i], samplesPerDelay)
		if !ok {
			continue
		}
		inEvents = append(inEvents, ce)
	}

	// Step 6: MIDI beat-clock housekeeping on transport edges.
	inEvents = appendClockEvents(inEvents, &w.clock, block)

	cInEvents := makeCEventList(inEvents)
	outStorage := make([]C.np_event, processdata.MaxEvents)
	var cOutEvents C.np_event_list
	C.np_event_list_init(&cOutEvents, (*C.np_event)(unsafe.Pointer(&outStorage[0])), C.uint32_t(len(outStorage)))

	var cInHead, cOutHead *C.np_audio_buffer
	if inCount > 0 {
		cInHead = &cIn[0]
	}
	if outCount > 0 {
		cOutHead = &cOut[0]
	}

	// Step 7: call the plugin.
	status := C.np_call_process(w.plugin, C.int64_t(steadyTime), C.uint32_t(block.FrameCount),
		&cTransport,
		cInHead, C.uint32_t(inCount),
		cOutHead, C.uint32_t(outCount),
		&cInEvents, &cOutEvents)
	result := process.NewProcessResult(int32(status))
	if result.IsError() {
		return ProcessOutcome{Fatal: true, Err: fmt.Errorf("nativeplugin: %s process returned %s", w.descriptorID, result.String())}
	}

	// Step 8: copy constant masks from output descriptors back to ProcessData.
	for port := 0; port < outCount; port++ {
		block.ConstantMaskOut[port] = uint32(cOut[port].constant_mask)
	}

	// Step 9: drain output events, converting frame offsets back to delay.
	block.NEventsOut = 0
	n := int(cOutEvents.count)
	if n > processdata.MaxEvents {
		n = processdata.MaxEvents
	}
	for i := 0; i < n; i++ {
		out, ok := translateEventOut(outStorage[i], samplesPerDelay)
		if !ok {
			continue
		}
		block.PushEventOut(out)
	}

	// Step 10: clear both event lists - nothing from this call is retained
	// by the Go side past this point; the C-visible storage is released
	// when the goroutine's stack/heap backing inEvents/outStorage is GC'd.
	return ProcessOutcome{}
}

func minInt(vs ...int) int {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// buildAudioBuffers constructs one np_audio_buffer descriptor per port,
// pointing channel_ptrs directly at the block's fixed sample arrays (no
// copy - §4.4 "the engine never allocates on this path").
func buildAudioBuffers(block *processdata.Block, isInput bool, count int) []C.np_audio_buffer {
	bufs := make([]C.np_audio_buffer, count)
	for port := 0; port < count; port++ {
		var nch int
		var mask uint32
		var chanPtrs []*C.float
		if isInput {
			nch = block.NChannelsIn[port]
			mask = block.ConstantMaskIn[port]
			chanPtrs = make([]*C.float, nch)
			for ch := 0; ch < nch; ch++ {
				chanPtrs[ch] = (*C.float)(unsafe.Pointer(&block.BufferIn[port][ch][0]))
			}
		} else {
			nch = block.NChannelsOut[port]
			mask = 0 // §4.1 step 2: "set to 0 on output side, plugin writes back"
			chanPtrs = make([]*C.float, nch)
			for ch := 0; ch < nch; ch++ {
				chanPtrs[ch] = (*C.float)(unsafe.Pointer(&block.BufferOut[port][ch][0]))
			}
		}
		var head **C.float
		if nch > 0 {
			head = (**C.float)(unsafe.Pointer(&chanPtrs[0]))
		}
		bufs[port] = C.np_audio_buffer{
			channel_ptrs:  head,
			channel_count: C.uint32_t(nch),
			constant_mask: C.uint64_t(mask),
		}
		// keep chanPtrs alive for the duration of the call by capturing it;
		// Go's GC won't move/collect it while bufs (which the caller holds
		// a reference to until the C call returns) is reachable, because
		// the slice backing the np_audio_buffer array is itself kept alive
		// by the caller's local variable in Process.
		_ = chanPtrs
	}
	return bufs
}

func buildTransport(block *processdata.Block) C.np_transport {
	t := &block.Transport
	var flags uint32 = C.NP_TRANSPORT_HAS_TEMPO | C.NP_TRANSPORT_HAS_BEATS_TIMELINE |
		C.NP_TRANSPORT_HAS_SECONDS_TIMELINE | C.NP_TRANSPORT_HAS_TIME_SIGNATURE
	if t.Playing {
		flags |= C.NP_TRANSPORT_IS_PLAYING
	}
	if t.LoopOn {
		flags |= C.NP_TRANSPORT_IS_LOOP_ACTIVE
	}
	return C.np_transport{
		flags:                C.uint32_t(flags),
		tempo_bpm:            C.double(block.BPM),
		song_pos_beats:       C.double(t.Beats),
		song_pos_seconds:     C.double(t.Seconds),
		loop_start_beats:     C.double(t.LoopStartBeats),
		loop_end_beats:       C.double(t.LoopEndBeats),
		loop_start_seconds:   C.double(t.LoopStartSeconds),
		loop_end_seconds:     C.double(t.LoopEndSeconds),
		bar_number:           C.int16_t(t.Bar),
		bar_start_beats:      C.double(t.BarStartBeats),
		time_sig_numerator:   4,
		time_sig_denominator: 4,
	}
}

// samplesPerTick implements §4.1 step 4: samples_per_delay = sample_rate *
// 60 / (bpm * LPB * 256).
func samplesPerTick(sampleRate, bpm float64, lpb int) float64 {
	return sampleRate * 60 / (bpm * float64(lpb) * 256)
}

func (w *Wrapper) translateEventIn(ev processdata.Event, samplesPerDelay float64) (C.np_event, bool) {
	frame := uint32(math.Round(float64(ev.Delay) * samplesPerDelay))
	switch ev.Kind {
	case processdata.EventNoteOn:
		return C.np_event{kind: C.NP_EVENT_NOTE_ON, delay_frames: C.uint32_t(frame), key: C.int16_t(ev.Key), channel: C.int16_t(ev.Channel), velocity: C.double(ev.Velocity)}, true
	case processdata.EventNoteOff:
		return C.np_event{kind: C.NP_EVENT_NOTE_OFF, delay_frames: C.uint32_t(frame), key: C.int16_t(ev.Key), channel: C.int16_t(ev.Channel)}, true
	case processdata.EventParamValue:
		if _, known := w.Params[ev.ParamID]; !known {
			return C.np_event{}, false // unknown param ids are silently dropped
		}
		return C.np_event{kind: C.NP_EVENT_PARAM_VALUE, delay_frames: C.uint32_t(frame), param_id: C.np_id(ev.ParamID), value: C.double(ev.Value)}, true
	default:
		return C.np_event{}, false
	}
}

func translateEventOut(ce C.np_event, samplesPerDelay float64) (processdata.Event, bool) {
	delay := uint32(math.Round(float64(ce.delay_frames) / samplesPerDelay))
	switch ce.kind {
	case C.NP_EVENT_NOTE_ON:
		return processdata.Event{Kind: processdata.EventNoteOn, Delay: delay, Key: int16(ce.key), Channel: int16(ce.channel), Velocity: float64(ce.velocity)}, true
	case C.NP_EVENT_NOTE_OFF:
		return processdata.Event{Kind: processdata.EventNoteOff, Delay: delay, Key: int16(ce.key), Channel: int16(ce.channel)}, true
	case C.NP_EVENT_PARAM_VALUE:
		return processdata.Event{Kind: processdata.EventParamValue, Delay: delay, ParamID: uint32(ce.param_id), Value: float64(ce.value)}, true
	default:
		return processdata.Event{}, false
	}
}

func makeCEventList(events []C.np_event) C.np_event_list {
	if len(events) == 0 {
		return C.np_event_list{}
	}
	return C.np_event_list{
		events:   (*C.np_event)(unsafe.Pointer(&events[0])),
		count:    C.uint32_t(len(events)),
		capacity: C.uint32_t(len(events)),
	}
}

// midiClockByte returns msg's status byte for appendClockEvents, which emits
// MIDI beat-clock bytes on transport edges and during playback, per §4.1
// step 6. The realtime status bytes themselves
// come from gitlab.com/gomidi/midi/v2's message builders rather than being
// spelled out as hex literals, so the one place this host touches MIDI
// semantics goes through the same library a MIDI-aware plugin or the song
// file importer would.
func midiClockByte(msg midi.Message) C.uint8_t {
	b := msg.Bytes()
	if len(b) == 0 {
		return 0
	}
	return C.uint8_t(b[0])
}

func appendClockEvents(events []C.np_event, clock *midiClockState, block *processdata.Block) []C.np_event {
	playing := block.Transport.Playing
	if playing && !clock.wasPlaying {
		events = append(events, C.np_event{kind: C.NP_EVENT_MIDI_CLOCK, delay_frames: 0, midi_byte: midiClockByte(midi.Start())})
		clock.samplesUntilClock = 0
	} else if !playing && clock.wasPlaying {
		events = append(events, C.np_event{kind: C.NP_EVENT_MIDI_CLOCK, delay_frames: 0, midi_byte: midiClockByte(midi.Stop())})
	}
	clock.wasPlaying = playing

	if playing && block.BPM > 0 {
		framesPerClock := float64(block.SampleRate) / (block.BPM / 60 * 24)
		pos := clock.samplesUntilClock
		tick := midiClockByte(midi.Tick())
		for pos < float64(block.FrameCount) {
			events = append(events, C.np_event{kind: C.NP_EVENT_MIDI_CLOCK, delay_frames: C.uint32_t(pos), midi_byte: tick})
			pos += framesPerClock
		}
		clock.samplesUntilClock = pos - float64(block.FrameCount)
	}
	return events
}
