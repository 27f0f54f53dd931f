// Package nativeplugin loads one native audio plugin shared object per
// instance and drives it through the load/activate/process/deactivate
// lifecycle. Plugins are ordinary dlopen'd .so/.dylib files exposing a
// single np_entry_point symbol (abi.h); loading uses cgo + dlopen/dlsym
// rather than Go's plugin package, since that package only loads other Go
// programs and cannot load a plugin built in C, C++, or Rust.
//
// Small C helper functions bridge function-pointer vtables that cgo cannot
// call directly, and the Go side wraps each helper in a typed method.
package nativeplugin

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>
#include "abi.h"

static const np_entry *np_load_entry(void *handle) {
    np_entry_point_fn fn = (np_entry_point_fn)dlsym(handle, NP_ENTRY_POINT_SYMBOL);
    if (!fn) {
        return NULL;
    }
    return fn();
}

static np_plugin *np_call_create(const np_entry *entry, const np_host *host, uint32_t index) {
    return entry->create_plugin(host, index);
}

static bool np_call_init(np_plugin *p) { return p->init(p); }
static void np_call_destroy(np_plugin *p) { p->destroy(p); }
static bool np_call_activate(np_plugin *p, double sr, uint32_t minf, uint32_t maxf) {
    return p->activate(p, sr, minf, maxf);
}
static void np_call_deactivate(np_plugin *p) { p->deactivate(p); }
static bool np_call_start_processing(np_plugin *p) { return p->start_processing(p); }
static void np_call_stop_processing(np_plugin *p) { p->stop_processing(p); }

static uint32_t np_call_audio_port_count(np_plugin *p, bool is_input) {
    return p->audio_port_count(p, is_input);
}
static uint32_t np_call_audio_port_channel_count(np_plugin *p, bool is_input, uint32_t index) {
    return p->audio_port_channel_count(p, is_input, index);
}
static uint32_t np_call_param_count(np_plugin *p) { return p->param_count(p); }
static bool np_call_param_info(np_plugin *p, uint32_t index, np_id *id, char *name, size_t cap,
                                double *minv, double *maxv, double *defv) {
    return p->param_info(p, index, id, name, cap, minv, maxv, defv);
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/charmbracelet/log"
)

// ErrIncompatibleABI is returned by Load when the plugin declares an ABI
// version this host does not understand (§4.1: "fails if the plugin's
// declared ABI version is incompatible").
type ErrIncompatibleABI struct {
	Declared uint32
}

func (e ErrIncompatibleABI) Error() string {
	return fmt.Sprintf("nativeplugin: plugin declares ABI version %d, host supports %d", e.Declared, C.NP_ABI_VERSION)
}

// PortInfo describes one audio port's channel count, recorded at load time.
type PortInfo struct {
	ChannelCount int
}

// ParamInfo mirrors one enumerated plugin parameter (§4.1: "enumerate
// parameters into an ordered map keyed by parameter id").
type ParamInfo struct {
	ID      uint32
	Name    string
	Min     float64
	Max     float64
	Default float64
	Current float64
}

// Wrapper owns one loaded plugin instance: its shared-object handle, its
// vtable pointer, enumerated port/parameter metadata, and activation state.
type Wrapper struct {
	mu sync.Mutex

	dlHandle unsafe.Pointer
	entry    *C.np_entry
	plugin   *C.np_plugin
	host     *hostBridge

	descriptorID string

	inputPorts  []PortInfo
	outputPorts []PortInfo

	// ParamOrder preserves enumeration order; Params is keyed by id for
	// O(1) lookup during event translation (see process.go).
	ParamOrder []uint32
	Params     map[uint32]*ParamInfo

	active     bool
	processing bool

	guiOpen     bool
	childWindow unsafe.Pointer
	windows     WindowHost
	clock       midiClockState

	logger *log.Logger
}

// Load dlopen's the shared object at path, resolves its entry point,
// validates the ABI version, instantiates descriptorIndex, calls init, and
// enumerates its audio ports and parameters.
func Load(path string, descriptorIndex uint32, logger *log.Logger, callbacks HostCallbacks) (*Wrapper, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	handle := C.dlopen(cPath, C.RTLD_NOW|C.RTLD_LOCAL)
	if handle == nil {
		return nil, fmt.Errorf("nativeplugin: dlopen %s: %s", path, C.GoString(C.dlerror()))
	}

	entry := C.np_load_entry(handle)
	if entry == nil {
		C.dlclose(handle)
		return nil, fmt.Errorf("nativeplugin: %s has no %s symbol", path, C.NP_ENTRY_POINT_SYMBOL)
	}
	if uint32(entry.abi_version) != uint32(C.NP_ABI_VERSION) {
		C.dlclose(handle)
		return nil, ErrIncompatibleABI{Declared: uint32(entry.abi_version)}
	}
	if descriptorIndex >= uint32(entry.descriptor_count) {
		C.dlclose(handle)
		return nil, fmt.Errorf("nativeplugin: descriptor index %d out of range (%d available)", descriptorIndex, entry.descriptor_count)
	}

	bridge := newHostBridge(logger, callbacks)
	cPlugin := C.np_call_create(entry, bridge.cHost(), C.uint32_t(descriptorIndex))
	if cPlugin == nil {
		C.dlclose(handle)
		bridge.release()
		return nil, fmt.Errorf("nativeplugin: create_plugin returned nil for descriptor %d", descriptorIndex)
	}

	w := &Wrapper{
		dlHandle: handle,
		entry:    entry,
		plugin:   cPlugin,
		host:     bridge,
		logger:   logger,
		Params:   make(map[uint32]*ParamInfo),
	}
	bridge.wrapper = w

	desc := cPlugin.descriptor
	if desc != nil {
		w.descriptorID = C.GoString(desc.id)
	}

	if !bool(C.np_call_init(cPlugin)) {
		w.Destroy()
		return nil, fmt.Errorf("nativeplugin: plugin init failed for %s", w.descriptorID)
	}

	w.enumeratePorts()
	w.enumerateParams()

	return w, nil
}

func (w *Wrapper) enumeratePorts() {
	inCount := uint32(C.np_call_audio_port_count(w.plugin, C.bool(true)))
	outCount := uint32(C.np_call_audio_port_count(w.plugin, C.bool(false)))
	if inCount > maxPorts {
		inCount = maxPorts
	}
	if outCount > maxPorts {
		outCount = maxPorts
	}
	w.inputPorts = make([]PortInfo, inCount)
	for i := uint32(0); i < inCount; i++ {
		w.inputPorts[i] = PortInfo{ChannelCount: int(C.np_call_audio_port_channel_count(w.plugin, C.bool(true), C.uint32_t(i)))}
	}
	w.outputPorts = make([]PortInfo, outCount)
	for i := uint32(0); i < outCount; i++ {
		w.outputPorts[i] = PortInfo{ChannelCount: int(C.np_call_audio_port_channel_count(w.plugin, C.bool(false), C.uint32_t(i)))}
	}
}

const paramNameCapacity = 256

func (w *Wrapper) enumerateParams() {
	count := uint32(C.np_call_param_count(w.plugin))
	nameBuf := make([]C.char, paramNameCapacity)

	for i := uint32(0); i < count; i++ {
		var id C.np_id
		var min, max, def C.double
		ok := C.np_call_param_info(w.plugin, C.uint32_t(i), &id, &nameBuf[0], C.size_t(paramNameCapacity), &min, &max, &def)
		if !bool(ok) {
			continue
		}
		p := &ParamInfo{
			ID:      uint32(id),
			Name:    C.GoString(&nameBuf[0]),
			Min:     float64(min),
			Max:     float64(max),
			Default: float64(def),
			Current: float64(def),
		}
		w.Params[p.ID] = p
		w.ParamOrder = append(w.ParamOrder, p.ID)
	}
}

// Activate moves the plugin from loaded to active, idempotently.
func (w *Wrapper) Activate(sampleRate float64, minFrames, maxFrames uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active {
		return nil
	}
	if !bool(C.np_call_activate(w.plugin, C.double(sampleRate), C.uint32_t(minFrames), C.uint32_t(maxFrames))) {
		return fmt.Errorf("nativeplugin: activate failed for %s", w.descriptorID)
	}
	w.active = true
	return nil
}

// StartProcessing begins the processing state, idempotently (§4.1: "double-start is a no-op").
func (w *Wrapper) StartProcessing() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.processing {
		return nil
	}
	if !bool(C.np_call_start_processing(w.plugin)) {
		return fmt.Errorf("nativeplugin: start_processing failed for %s", w.descriptorID)
	}
	w.processing = true
	return nil
}

// StopProcessing and Deactivate reverse StartProcessing/Activate symmetrically.
func (w *Wrapper) StopProcessing() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.processing {
		return
	}
	C.np_call_stop_processing(w.plugin)
	w.processing = false
}

func (w *Wrapper) Deactivate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.active {
		return
	}
	C.np_call_deactivate(w.plugin)
	w.active = false
}

// Destroy tears the plugin instance down: stop, deactivate, gui close,
// destroy, dlclose, in that order (§5 resource discipline).
func (w *Wrapper) Destroy() {
	w.StopProcessing()
	w.Deactivate()
	w.closeGUI()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.plugin != nil {
		C.np_call_destroy(w.plugin)
		w.plugin = nil
	}
	if w.dlHandle != nil {
		C.dlclose(w.dlHandle)
		w.dlHandle = nil
	}
	if w.host != nil {
		w.host.release()
	}
}

// DescriptorID returns the identifier the plugin declared.
func (w *Wrapper) DescriptorID() string { return w.descriptorID }

// InputPorts and OutputPorts return the enumerated port channel counts.
func (w *Wrapper) InputPorts() []PortInfo  { return w.inputPorts }
func (w *Wrapper) OutputPorts() []PortInfo { return w.outputPorts }
