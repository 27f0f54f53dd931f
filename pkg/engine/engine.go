package engine

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ticktrack/core/internal/ids"
	"github.com/ticktrack/core/internal/ringbuffer"
	"github.com/ticktrack/core/internal/workerpool"
	"github.com/ticktrack/core/pkg/audiotransport"
	"github.com/ticktrack/core/pkg/control"
	"github.com/ticktrack/core/pkg/herr"
	"github.com/ticktrack/core/pkg/model"
	"github.com/ticktrack/core/pkg/performance"
	"github.com/ticktrack/core/pkg/processdata"
	"github.com/ticktrack/core/pkg/songstate"
	"github.com/ticktrack/core/pkg/track"
	"github.com/ticktrack/core/pkg/transport"
	"github.com/ticktrack/core/pkg/util"
)

// procTimeHistory is how many recent block durations the engine keeps for
// diagnostics (see Engine.procTimes); unrelated to cpuEMA, which is what
// SongState actually publishes.
const procTimeHistory = 256

// defaultChannels is the fixed stereo channel count every slot's audio
// ports are provisioned with. Per-plugin port/channel negotiation happens
// inside pkg/nativeplugin against the plugin's own descriptor; the engine
// side of the shared ProcessData block fixes port 0 at two channels so the
// dependency-graph dispatcher and the final mixdown never need to branch
// on a module's channel layout - pkg/track's channel-adaptation matrix
// still runs per connection, so a mono plugin feeding a stereo one (or
// vice versa) is still handled correctly.
const defaultChannels = 2

// Config bundles an Engine's collaborators.
type Config struct {
	Logger      *log.Logger
	Conn        *control.Conn // control-plane connection to the plugin subprocess
	Workers     *workerpool.Pool
	State       *songstate.Block // shared-memory status block, may be nil
	Broadcaster *songstate.Broadcaster
}

// Engine drives one Song: the audio callback path (ProcessBlock) and the
// slot lifecycle the command thread (pkg/engine/commands.go) mutates
// through. The split is two-thread: Engine owns the realtime path,
// CommandLoop (in commands.go) owns Song edits and plugin load/unload.
type Engine struct {
	log     *log.Logger
	conn    *control.Conn
	workers *workerpool.Pool
	state   *songstate.Block
	bcast   *songstate.Broadcaster
	ids     *ids.Generator

	mu      sync.Mutex
	song    *model.Song
	playing bool

	slotsMu    sync.Mutex
	slots      map[model.ModuleRef]*audiotransport.Endpoint
	processors map[int]*track.Processor
	procLanes  map[int]int

	prevEnd    int
	lastLine   int
	steadyTime int64
	cpuEMA     float64

	metrics   *performance.PerformanceMetrics
	allocs    *performance.AllocationTracker
	procTimes *ringbuffer.Float64Ring
}

// New constructs an idle Engine with no Song loaded.
func New(cfg Config) *Engine {
	workers := cfg.Workers
	if workers == nil {
		workers = workerpool.New(0)
	}
	state := cfg.State
	if state == nil && cfg.Broadcaster != nil {
		// Broadcast snapshots are read from a Block; keep a private one when
		// no shared-memory block was supplied.
		state = &songstate.Block{}
	}
	return &Engine{
		log:        cfg.Logger,
		conn:       cfg.Conn,
		workers:    workers,
		state:      state,
		bcast:      cfg.Broadcaster,
		ids:        ids.NewGenerator(),
		slots:      make(map[model.ModuleRef]*audiotransport.Endpoint),
		processors: make(map[int]*track.Processor),
		procLanes:  make(map[int]int),
		allocs:     performance.NewAllocationTracker(),
		procTimes:  ringbuffer.NewFloat64Ring(procTimeHistory),
	}
}

// SetSong installs song as the active Song, replacing whatever was
// playing. Called by the command thread; the audio callback only ever
// observes a fully-formed Song via getSong's mutex-guarded read, never a
// partial edit (§4.6 "Song structure kept immutable during a block").
func (e *Engine) SetSong(song *model.Song) {
	e.mu.Lock()
	e.song = song
	e.prevEnd = 0
	e.mu.Unlock()
}

func (e *Engine) getSong() *model.Song {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.song
}

// SetPlaying starts or stops transport advance (Play/Stop commands).
// Stopping leaves Song untouched; ProcessBlock still runs every block
// (modules keep their steady-state, e.g. tail/reverb) but no new note or
// automation events are scored.
func (e *Engine) SetPlaying(playing bool) {
	e.mu.Lock()
	e.playing = playing
	e.mu.Unlock()
}

func (e *Engine) isPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// bindSlot records the audio-plane Endpoint for a newly loaded module.
// Called by the command thread after a successful Load round-trip.
func (e *Engine) bindSlot(ref model.ModuleRef, ep *audiotransport.Endpoint) {
	e.slotsMu.Lock()
	defer e.slotsMu.Unlock()
	e.slots[ref] = ep
	ep.Block.NPortsIn = 1
	ep.Block.NPortsOut = 1
	ep.Block.NChannelsIn[0] = defaultChannels
	ep.Block.NChannelsOut[0] = defaultChannels
}

// unbindSlot drops a slot's Endpoint after Unload without closing it -
// closing the engine-owned region is commands.go's job, once it has also
// told the subprocess side to tear down.
func (e *Engine) unbindSlot(ref model.ModuleRef) {
	e.slotsMu.Lock()
	defer e.slotsMu.Unlock()
	delete(e.slots, ref)
}

func (e *Engine) endpointFor(ref model.ModuleRef) *audiotransport.Endpoint {
	e.slotsMu.Lock()
	defer e.slotsMu.Unlock()
	return e.slots[ref]
}

func (e *Engine) processorFor(trackIdx, laneCount int) *track.Processor {
	e.slotsMu.Lock()
	defer e.slotsMu.Unlock()
	if p, ok := e.processors[trackIdx]; ok && e.procLanes[trackIdx] == laneCount {
		return p
	}
	p := track.NewProcessor(laneCount)
	e.processors[trackIdx] = p
	e.procLanes[trackIdx] = laneCount
	return p
}

// trackContribution is one track's downmixed output for a block, produced
// in parallel by processOneTrack and summed sequentially afterward.
type trackContribution struct {
	mono   [processdata.MaxFrames]float32
	peakDB float64
	ok     bool
}

// ProcessBlock is the audio device callback: it advances transport by
// frameCount frames, dispatches every track's module chain across the
// dependency graph's levels, mixes the result into the returned
// interleaved stereo buffer (len == frameCount*2), and publishes
// SongState.
func (e *Engine) ProcessBlock(frameCount int) ([]float32, error) {
	out := make([]float32, frameCount*2)

	song := e.getSong()
	if song == nil || frameCount == 0 {
		return out, nil
	}

	if e.metrics == nil {
		e.metrics = performance.NewPerformanceMetrics(uint32(song.SampleRate), uint32(frameCount))
	}
	e.allocs.StartBuffer()
	start := e.metrics.StartProcess()
	defer func() {
		e.metrics.EndProcess(start)
		e.allocs.EndBuffer()
		e.procTimes.Push(float64(time.Since(start)) / float64(time.Millisecond))
	}()

	playing := e.isPlaying()
	delta := 0
	if playing {
		delta = transport.DeltaTicks(frameCount, song.SampleRate, song.BPM, song.LPB)
	}
	r := transport.Advance(e.prevEnd, delta, song.LoopOn, song.LoopStart, song.LoopEnd)
	e.prevEnd = r.End

	levels, err := BuildLevels(song)
	if err != nil {
		// Transient (§7): skip this block, retry next - the graph resolves
		// itself once the offending edit is corrected or undone.
		e.log.Warn("engine: dependency graph invalid, skipping block", "err", err)
		return out, herr.New(herr.Transient, 0, "build dependency levels", err)
	}
	groups := levelsToTrackGroups(trackLevels(levels, len(song.Tracks)))

	contributions := make([]trackContribution, len(song.Tracks))
	for _, trackIdxs := range groups {
		idxs := trackIdxs
		e.workers.Execute(len(idxs), func(i int) {
			trackIdx := idxs[i]
			contributions[trackIdx] = e.processOneTrack(&song.Tracks[trackIdx], trackIdx, r, song, frameCount, playing)
		})
	}

	anySolo := false
	for i := range song.Tracks {
		if song.Tracks[i].Solo {
			anySolo = true
			break
		}
	}
	for i := range song.Tracks {
		tr := &song.Tracks[i]
		if tr.Mute || (anySolo && !tr.Solo) || !contributions[i].ok {
			continue
		}
		left, right := util.EqualPowerPan(tr.Pan)
		gain := tr.Volume
		c := contributions[i]
		for f := 0; f < frameCount; f++ {
			out[f*2] += c.mono[f] * float32(left*gain)
			out[f*2+1] += c.mono[f] * float32(right*gain)
		}
	}

	e.publishSongState(song, r, contributions, time.Since(start), frameCount, playing)
	e.steadyTime += int64(frameCount)
	return out, nil
}

// processOneTrack runs one track's module chain for this block and
// downmixes its final module's output to mono for the engine's pan/volume
// stage. A track with no modules, or whose chain faults, contributes
// silence without aborting the rest of the block - a SlotFatal error from
// pkg/track.Processor is isolated to its own track (§7 propagation
// policy).
func (e *Engine) processOneTrack(tr *model.Track, trackIdx int, r transport.Range, song *model.Song, frameCount int, playing bool) trackContribution {
	var res trackContribution

	slots, ok := e.buildModuleSlots(tr, trackIdx, song, frameCount, playing)
	if !ok || len(slots) == 0 {
		return res
	}

	proc := e.processorFor(trackIdx, len(tr.Lanes))
	peakDB, err := proc.Process(tr, slots, r, song.LoopStart, song.LoopEnd)
	if err != nil {
		e.log.Error("engine: track processing failed", "track", trackIdx, "err", err)
		return res
	}

	last := slots[len(slots)-1].Endpoint.Block
	scratch := &processdata.Block{FrameCount: frameCount}
	scratch.NChannelsIn[0] = 1
	track.ApplyAudioInput(scratch, 0, last, 0)

	res.ok = true
	res.peakDB = peakDB
	copy(res.mono[:frameCount], scratch.BufferIn[0][0][:frameCount])
	return res
}

// buildModuleSlots resolves a track's Modules into track.ModuleSlot values,
// filling each module's per-block transport fields and wiring its
// AudioInputs to the already-bound source Endpoints.
func (e *Engine) buildModuleSlots(tr *model.Track, trackIdx int, song *model.Song, frameCount int, playing bool) ([]track.ModuleSlot, bool) {
	slots := make([]track.ModuleSlot, 0, len(tr.Modules))
	for modIdx, mod := range tr.Modules {
		ep := e.endpointFor(model.ModuleRef{Track: trackIdx, Module: modIdx})
		if ep == nil {
			return nil, false
		}
		e.prepareBlock(ep.Block, song, frameCount, playing)

		var inputs []track.ResolvedInput
		for _, in := range mod.AudioInputs {
			src := e.endpointFor(in.SrcModule)
			if src == nil {
				continue
			}
			inputs = append(inputs, track.ResolvedInput{DstPort: in.DstPort, SrcPort: in.SrcPort, Source: src})
		}
		slots = append(slots, track.ModuleSlot{Endpoint: ep, Inputs: inputs})
	}
	return slots, true
}

// prepareBlock fills the per-block timing fields of a slot's ProcessData -
// the shared state the subprocess side's transport descriptor is built
// from (pkg/nativeplugin.buildTransport).
func (e *Engine) prepareBlock(b *processdata.Block, song *model.Song, frameCount int, playing bool) {
	b.Reset(frameCount)
	b.SampleRate = song.SampleRate
	b.BPM = song.BPM
	b.LPB = song.LPB
	b.SteadyTime = uint64(e.steadyTime)

	tick := e.prevEnd
	barStartLine := transport.Line(tick) / song.LPB * song.LPB
	b.Transport = processdata.Transport{
		Playing:          playing,
		LoopOn:           song.LoopOn,
		Beats:            transport.Beats(tick, song.LPB),
		Seconds:          transport.Seconds(tick, song.BPM, song.LPB),
		LoopStartBeats:   transport.Beats(song.LoopStart, song.LPB),
		LoopEndBeats:     transport.Beats(song.LoopEnd, song.LPB),
		LoopStartSeconds: transport.Seconds(song.LoopStart, song.BPM, song.LPB),
		LoopEndSeconds:   transport.Seconds(song.LoopEnd, song.BPM, song.LPB),
		Bar:              transport.Bar(tick, song.LPB),
		BarStartBeats:    transport.Beats(barStartLine*transport.TicksPerLine, song.LPB),
	}
}

func (e *Engine) publishSongState(song *model.Song, r transport.Range, contributions []trackContribution, elapsed time.Duration, frameCount int, playing bool) {
	if e.state == nil {
		return
	}
	e.state.Playing = playing
	// §4.8 "line publication": only update when the line actually changed.
	if line := transport.Line(r.End); line != e.lastLine {
		e.state.LinePlay = int64(line)
		e.lastLine = line
	}
	e.state.LoopStart = int64(song.LoopStart)
	e.state.LoopEnd = int64(song.LoopEnd)

	for i, c := range contributions {
		if !c.ok {
			e.state.SetPeak(i, float32(util.LinearToDb(0)), float32(util.LinearToDb(0)))
			continue
		}
		left, right := util.EqualPowerPan(song.Tracks[i].Pan)
		e.state.SetPeak(i, float32(c.peakDB+util.LinearToDb(left)), float32(c.peakDB+util.LinearToDb(right)))
	}

	blockSeconds := float64(frameCount) / float64(song.SampleRate)
	cpuPercent := 0.0
	if blockSeconds > 0 {
		cpuPercent = 100 * elapsed.Seconds() / blockSeconds
	}
	e.cpuEMA = util.RunningMean(e.cpuEMA, cpuPercent, 0.1)
	e.state.CPUUsagePercent = e.cpuEMA

	if e.metrics != nil {
		stats := e.metrics.GetStats()
		e.state.ProcessTimeEMAMicros = float64(stats.AvgProcessTime.Microseconds())
		if stats.BufferUnderruns > 0 && stats.ProcessCallCount%256 == 0 {
			allocStats := e.allocs.Stats()
			e.log.Warn("engine: block processing exceeded 80% of deadline",
				"underruns", stats.BufferUnderruns, "calls", stats.ProcessCallCount,
				"last_buffer_allocs", allocStats.LastBufferAllocs, "max_buffer_allocs", allocStats.MaxBufferAllocs)
		}
	}

	if e.bcast != nil {
		e.bcast.Publish(e.state.Snapshot())
	}
}

// trackLevels derives each track's dependency level as the maximum level
// of any of its modules. Coarsened from module-level topological order to
// track granularity: a track's whole module chain runs as one sequential
// track.Processor call, so the engine only needs to know the latest level
// any of its modules' cross-track dependencies land in (track.Processor
// runs a track's modules in index order, so an input from an earlier module
// of the same track is already produced when it is read).
func trackLevels(levels [][]Node, numTracks int) []int {
	levelOf := make([]int, numTracks)
	for li, lvl := range levels {
		for _, n := range lvl {
			if n.Track >= 0 && n.Track < numTracks && li > levelOf[n.Track] {
				levelOf[n.Track] = li
			}
		}
	}
	return levelOf
}

func levelsToTrackGroups(trackLevel []int) [][]int {
	maxLevel := 0
	for _, l := range trackLevel {
		if l > maxLevel {
			maxLevel = l
		}
	}
	groups := make([][]int, maxLevel+1)
	for t, l := range trackLevel {
		groups[l] = append(groups[l], t)
	}
	return groups
}
