package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/ticktrack/core/pkg/audiotransport"
	"github.com/ticktrack/core/pkg/control"
	"github.com/ticktrack/core/pkg/model"
	"github.com/ticktrack/core/pkg/projectfile"
)

// CommandKind discriminates the UI-issued command taxonomy: play, stop,
// add/remove track, load/unload plugin slot, edit notes, set
// volume/pan/mute/solo, set loop range, save/load project.
type CommandKind int

const (
	CmdPlay CommandKind = iota
	CmdStop
	CmdAddTrack
	CmdRemoveTrack
	CmdLoadPlugin
	CmdUnloadPlugin
	CmdSetNote
	CmdClearNote
	CmdSetPoint
	CmdSetVolume
	CmdSetPan
	CmdSetMute
	CmdSetSolo
	CmdSetLoopRange
	CmdSaveProject
	CmdLoadProject
)

// Command is one UI edit. Only the fields relevant to Kind are read.
type Command struct {
	Kind CommandKind

	Track int
	Name  string // AddTrack

	PluginID string // LoadPlugin
	OpenGUI  bool    // LoadPlugin
	Module   int     // UnloadPlugin: must be the track's last module (checked in apply)

	Lane int          // SetNote/ClearNote/SetPoint
	Line int          // SetNote/ClearNote/SetPoint
	Note model.Note   // SetNote
	Point model.Point // SetPoint

	Value float64 // SetVolume/SetPan
	On    bool    // SetMute/SetSolo

	LoopStart, LoopEnd int  // SetLoopRange
	LoopOn             bool // SetLoopRange

	Path string // SaveProject/LoadProject

	// Reply, if non-nil, receives exactly one error (nil on success) once
	// the command has been applied - used by callers that need a
	// synchronous result (notably LoadPlugin/UnloadPlugin, which round-trip
	// to the plugin subprocess).
	Reply chan error
}

func (c Command) reply(err error) {
	if c.Reply != nil {
		c.Reply <- err
	}
}

// CommandLoop is the command thread: a single goroutine that serializes
// every Song edit, applies it, and publishes the resulting Song to the
// Engine and to any UI subscriber. It is driven by a bounded channel of
// Command structs, and a second small bounded channel carries read-only
// Song snapshots back out.
type CommandLoop struct {
	engine  *Engine
	cmds    chan Command
	snaps   chan *model.Song
	project *projectfile.Manager
}

// NewCommandLoop returns a CommandLoop bound to engine, installing initial
// as the starting Song (see Engine.SetSong).
func NewCommandLoop(engine *Engine, initial *model.Song) *CommandLoop {
	engine.SetSong(initial)
	return &CommandLoop{
		engine:  engine,
		cmds:    make(chan Command, 64),
		snaps:   make(chan *model.Song, 4),
		project: projectfile.NewManager(projectfile.CurrentVersion),
	}
}

// Send enqueues a command, blocking if the command channel is full (back
// pressure on a slow command thread is preferable to dropping edits).
func (l *CommandLoop) Send(cmd Command) {
	l.cmds <- cmd
}

// Snapshots returns the channel of read-only Song versions published after
// every applied command, the concrete shape of "sends snapshots back to
// UI" (§5).
func (l *CommandLoop) Snapshots() <-chan *model.Song {
	return l.snaps
}

// Run processes commands until ctx is canceled.
func (l *CommandLoop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-l.cmds:
			l.apply(cmd)
		}
	}
}

func (l *CommandLoop) apply(cmd Command) {
	song := l.engine.getSong()
	if song == nil {
		cmd.reply(fmt.Errorf("engine: no song loaded"))
		return
	}

	var next *model.Song
	var err error

	switch cmd.Kind {
	case CmdPlay:
		l.engine.SetPlaying(true)
		cmd.reply(nil)
		return
	case CmdStop:
		l.engine.SetPlaying(false)
		cmd.reply(nil)
		return

	case CmdAddTrack:
		next = song.Clone()
		next.Tracks = append(next.Tracks, *model.NewTrack(cmd.Name))

	case CmdRemoveTrack:
		if cmd.Track <= 0 || cmd.Track >= len(song.Tracks) {
			err = fmt.Errorf("engine: cannot remove track %d (master is track 0, or index out of range)", cmd.Track)
			break
		}
		for modIdx := range song.Tracks[cmd.Track].Modules {
			_ = l.unloadPlugin(cmd.Track, modIdx) // best effort; track is going away regardless
		}
		next = song.Clone()
		next.Tracks = append(next.Tracks[:cmd.Track], next.Tracks[cmd.Track+1:]...)

	case CmdLoadPlugin:
		next, err = l.loadPlugin(song, cmd.Track, cmd.PluginID, cmd.OpenGUI)

	case CmdUnloadPlugin:
		if cmd.Module != len(song.Tracks[cmd.Track].Modules)-1 {
			err = fmt.Errorf("engine: only the last module on a track can be unloaded (got %d, track has %d)", cmd.Module, len(song.Tracks[cmd.Track].Modules))
			break
		}
		if err = l.unloadPlugin(cmd.Track, cmd.Module); err == nil {
			next = song.Clone()
			next.Tracks[cmd.Track].Modules = next.Tracks[cmd.Track].Modules[:cmd.Module]
		}

	case CmdSetNote:
		next = song.Clone()
		ensureLane(&next.Tracks[cmd.Track], cmd.Lane).Set(cmd.Line, model.LaneItem{Kind: model.LaneItemNote, Note: cmd.Note})

	case CmdClearNote:
		next = song.Clone()
		ensureLane(&next.Tracks[cmd.Track], cmd.Lane).Clear(cmd.Line)

	case CmdSetPoint:
		next = song.Clone()
		ensureLane(&next.Tracks[cmd.Track], cmd.Lane).Set(cmd.Line, model.LaneItem{Kind: model.LaneItemPoint, Point: cmd.Point})

	case CmdSetVolume:
		next = song.Clone()
		next.Tracks[cmd.Track].Volume = util_clamp01(cmd.Value)

	case CmdSetPan:
		next = song.Clone()
		next.Tracks[cmd.Track].Pan = util_clamp01(cmd.Value)

	case CmdSetMute:
		next = song.Clone()
		next.Tracks[cmd.Track].Mute = cmd.On

	case CmdSetSolo:
		next = song.Clone()
		next.Tracks[cmd.Track].Solo = cmd.On

	case CmdSetLoopRange:
		next = song.Clone()
		next.LoopStart = cmd.LoopStart
		next.LoopEnd = cmd.LoopEnd
		next.LoopOn = cmd.LoopOn

	case CmdSaveProject:
		data, saveErr := l.project.SaveToJSON(song)
		if saveErr != nil {
			err = fmt.Errorf("engine: save project: %w", saveErr)
			break
		}
		if writeErr := os.WriteFile(cmd.Path, data, 0o644); writeErr != nil {
			err = fmt.Errorf("engine: save project: %w", writeErr)
		}
		cmd.reply(err)
		return

	case CmdLoadProject:
		data, readErr := os.ReadFile(cmd.Path)
		if readErr != nil {
			err = fmt.Errorf("engine: load project: %w", readErr)
			break
		}
		next, err = l.project.LoadFromJSON(data)
		if err != nil {
			err = fmt.Errorf("engine: load project: %w", err)
			break
		}
		if err = next.Validate(); err != nil {
			next = nil
			err = fmt.Errorf("engine: load project: %w", err)
		}

	default:
		err = fmt.Errorf("engine: unknown command kind %d", cmd.Kind)
	}

	if err != nil {
		cmd.reply(err)
		return
	}

	l.engine.SetSong(next)
	select {
	case l.snaps <- next:
	default:
		// A slow/absent UI reader never blocks the command thread - the
		// next applied command's snapshot supersedes this one anyway.
	}
	cmd.reply(nil)
}

func ensureLane(tr *model.Track, lane int) *model.Lane {
	for len(tr.Lanes) <= lane {
		tr.Lanes = append(tr.Lanes, *model.NewLane())
	}
	return &tr.Lanes[lane]
}

func util_clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// loadPlugin creates the slot's audio-plane Endpoint, hands its eventfds
// to the subprocess over the control connection, and - only once the
// subprocess confirms the load - appends the Module and binds the
// Endpoint into the Engine.
func (l *CommandLoop) loadPlugin(song *model.Song, trackIdx int, pluginID string, openGUI bool) (*model.Song, error) {
	if trackIdx < 0 || trackIdx >= len(song.Tracks) {
		return nil, fmt.Errorf("engine: load plugin: track %d out of range", trackIdx)
	}
	slotID := l.engine.ids.Next()
	ep, err := audiotransport.Create(slotID)
	if err != nil {
		return nil, fmt.Errorf("engine: create audio-plane endpoint: %w", err)
	}

	msg := control.Message{Tag: control.TagLoad, Load: control.Load{
		SlotID:     slotID,
		PluginID:   pluginID,
		TrackIndex: trackIdx,
		OpenGUI:    openGUI,
	}}
	if err := l.engine.conn.SendWithFDs(msg, []int{ep.RequestFD(), ep.ResponseFD()}); err != nil {
		ep.Close()
		ep.Unlink()
		return nil, fmt.Errorf("engine: send load request: %w", err)
	}
	resp, err := l.engine.conn.Recv()
	if err != nil {
		ep.Close()
		ep.Unlink()
		return nil, fmt.Errorf("engine: recv load response: %w", err)
	}
	if resp.DidLoad.Err != "" {
		ep.Close()
		ep.Unlink()
		return nil, fmt.Errorf("engine: load plugin %q: %s", pluginID, resp.DidLoad.Err)
	}

	next := song.Clone()
	modIdx := len(next.Tracks[trackIdx].Modules)
	next.Tracks[trackIdx].Modules = append(next.Tracks[trackIdx].Modules, model.Module{PluginID: pluginID})
	l.engine.bindSlot(model.ModuleRef{Track: trackIdx, Module: modIdx}, ep)
	return next, nil
}

// unloadPlugin tells the subprocess to tear down (track, module), then
// releases the engine-owned audio-plane resources.
func (l *CommandLoop) unloadPlugin(trackIdx, modIdx int) error {
	ref := model.ModuleRef{Track: trackIdx, Module: modIdx}
	msg := control.Message{Tag: control.TagUnload, Unload: control.Unload{Track: trackIdx, Module: modIdx}}
	if err := l.engine.conn.Send(msg); err != nil {
		return fmt.Errorf("engine: send unload request: %w", err)
	}
	if _, err := l.engine.conn.Recv(); err != nil {
		return fmt.Errorf("engine: recv unload response: %w", err)
	}
	if ep := l.engine.endpointFor(ref); ep != nil {
		ep.Close()
		ep.Unlink()
	}
	l.engine.unbindSlot(ref)
	return nil
}
