package pluginhost

import (
	"context"
	"fmt"

	"github.com/ticktrack/core/pkg/audiotransport"
	"github.com/ticktrack/core/pkg/control"
	"github.com/ticktrack/core/pkg/nativeplugin"
)

// handleRequest dispatches one control.Message to the matching step and
// builds its response, reporting whether this was a Quit request. fds
// carries any file descriptors attached to req (only ever populated for
// TagLoad: the slot's request/response eventfds).
func (s *Supervisor) handleRequest(ctx context.Context, req control.Message, fds []int) (control.Message, bool) {
	switch req.Tag {
	case control.TagLoad:
		return s.handleLoad(req.Load, fds), false
	case control.TagUnload:
		return s.handleUnload(req.Unload), false
	case control.TagGuiOpen:
		return s.handleGuiOpen(req.GuiOpen), false
	case control.TagStateLoad:
		return s.handleStateLoad(req.StateLoad), false
	case control.TagStateSave:
		return s.handleStateSave(req.StateSave), false
	case control.TagScan:
		return s.handleScan(), false
	case control.TagQuit:
		return control.Message{Tag: control.TagDidQuit}, true
	default:
		return control.Message{Tag: control.TagDidQuit}, true
	}
}

func (s *Supervisor) handleLoad(req control.Load, fds []int) control.Message {
	resp := control.DidLoad{SlotID: req.SlotID}

	path, descriptorIndex, err := s.pluginPaths(req.PluginID)
	if err != nil {
		resp.Err = err.Error()
		return control.Message{Tag: control.TagDidLoad, DidLoad: resp}
	}
	if len(fds) < 2 {
		resp.Err = "load: expected request/response eventfds attached to message"
		return control.Message{Tag: control.TagDidLoad, DidLoad: resp}
	}

	// Load carries no module index - a plugin is always appended as the
	// next module on its track, so the index is simply how many modules
	// that track already has.
	moduleIndex := s.moduleCountForTrack(req.TrackIndex)
	key := slotKey{Track: req.TrackIndex, Module: moduleIndex}
	callbacks := nativeplugin.HostCallbacks{
		ParamsRescan:     func(uint32) {},
		AudioPortsRescan: func() {},
		GUIResizeRequest: func(uint32, uint32) {},
		RequestRestart: func() {
			s.QueueMainThreadCallback(func() { s.restartSlot(req.SlotID) })
		},
		RequestCallback: func() {
			s.QueueMainThreadCallback(func() {})
		},
	}

	w, err := nativeplugin.Load(path, descriptorIndex, s.log, callbacks)
	if err != nil {
		resp.Err = err.Error()
		return control.Message{Tag: control.TagDidLoad, DidLoad: resp}
	}

	endpoint, err := audiotransport.Open(req.SlotID, fds[0], fds[1])
	if err != nil {
		w.Destroy()
		resp.Err = fmt.Sprintf("open audio-plane endpoint: %v", err)
		return control.Message{Tag: control.TagDidLoad, DidLoad: resp}
	}

	slot := &Slot{ID: req.SlotID, Track: req.TrackIndex, Module: moduleIndex, PluginID: req.PluginID, Wrapper: w, Endpoint: endpoint}
	slot.quit = make(chan struct{})
	s.slots[req.SlotID] = slot
	s.byTrack[key] = slot
	s.startAudioWorker(slot)

	if req.OpenGUI && s.windows != nil {
		if err := w.GUIOpen(nil, s.windows); err != nil {
			s.log.Warn("pluginhost: open-on-load GUI failed", "slot", req.SlotID, "err", err)
		}
	}

	return control.Message{Tag: control.TagDidLoad, DidLoad: resp}
}

func (s *Supervisor) handleUnload(req control.Unload) control.Message {
	key := slotKey{Track: req.Track, Module: req.Module}
	if slot, ok := s.byTrack[key]; ok {
		close(slot.quit)
		slot.Wrapper.Destroy()
		slot.Endpoint.Close()
		delete(s.slots, slot.ID)
		delete(s.byTrack, key)
	}
	return control.Message{Tag: control.TagDidUnload, DidUnload: control.DidUnload{Track: req.Track, Module: req.Module}}
}

func (s *Supervisor) handleGuiOpen(req control.GuiOpen) control.Message {
	key := slotKey{Track: req.Track, Module: req.Module}
	resp := control.DidGuiOpen{Track: req.Track, Module: req.Module}

	slot, ok := s.byTrack[key]
	if !ok {
		return control.Message{Tag: control.TagDidGuiOpen, DidGuiOpen: resp}
	}

	if slot.Wrapper.IsGUIOpen() {
		slot.Wrapper.GUIClose()
		resp.Open = false
	} else if s.windows != nil {
		if err := slot.Wrapper.GUIOpen(nil, s.windows); err == nil {
			resp.Open = true
		}
	}
	return control.Message{Tag: control.TagDidGuiOpen, DidGuiOpen: resp}
}

func (s *Supervisor) handleStateSave(req control.StateSave) control.Message {
	key := slotKey{Track: req.Track, Module: req.Module}
	resp := control.DidStateSave{Track: req.Track, Module: req.Module}

	slot, ok := s.byTrack[key]
	if !ok {
		return control.Message{Tag: control.TagDidStateSave, DidStateSave: resp}
	}
	data, err := slot.Wrapper.StateSave()
	if err == nil {
		resp.Data = data
	}
	return control.Message{Tag: control.TagDidStateSave, DidStateSave: resp}
}

func (s *Supervisor) handleStateLoad(req control.StateLoad) control.Message {
	key := slotKey{Track: req.Track, Module: req.Module}
	resp := control.DidStateLoad{Track: req.Track, Module: req.Module}

	slot, ok := s.byTrack[key]
	if !ok {
		resp.Err = "no plugin loaded at that slot"
		return control.Message{Tag: control.TagDidStateLoad, DidStateLoad: resp}
	}
	if err := slot.Wrapper.StateLoad(req.Data); err != nil {
		resp.Err = err.Error()
	}
	return control.Message{Tag: control.TagDidStateLoad, DidStateLoad: resp}
}

// handleScan asks the registry to re-enumerate its search directories,
// refreshing which plugin IDs Load can resolve. A Supervisor configured
// with a bare ResolvePath func (no Registry, e.g. in tests) treats Scan as
// a no-op - there is nothing to refresh.
func (s *Supervisor) handleScan() control.Message {
	if s.registry != nil {
		if err := s.registry.Scan(); err != nil {
			s.log.Warn("pluginhost: scan encountered errors", "err", err)
		}
	}
	return control.Message{Tag: control.TagDidScan}
}

func (s *Supervisor) moduleCountForTrack(track int) int {
	count := 0
	for k := range s.byTrack {
		if k.Track == track {
			count++
		}
	}
	return count
}

// restartSlot implements the request-restart host callback: stop+deactivate
// then reactivate+start (§4.1 "Host callbacks required").
func (s *Supervisor) restartSlot(slotID uint64) {
	slot, ok := s.slots[slotID]
	if !ok {
		return
	}
	slot.Wrapper.StopProcessing()
	slot.Wrapper.Deactivate()
	// Sample-rate/block-size are re-supplied by the engine on the next Load;
	// a bare restart re-activates with whatever the wrapper last recorded.
	_ = slot.Wrapper.Activate(0, 0, 0)
	_ = slot.Wrapper.StartProcessing()
}
