package nativeplugin

/*
#include <stdlib.h>
#include "abi.h"

extern void np_go_log(void *host_data, int32_t severity, char *msg);
extern void np_go_params_rescan(void *host_data, uint32_t flags);
extern void np_go_audio_ports_rescan(void *host_data);
extern void np_go_gui_resize_request(void *host_data, uint32_t width, uint32_t height);
extern void np_go_request_restart(void *host_data);
extern void np_go_request_callback(void *host_data);

static void np_host_log_trampoline(const np_host *host, int32_t severity, const char *msg) {
    np_go_log(host->host_data, severity, (char *)msg);
}
static void np_host_params_rescan_trampoline(const np_host *host, uint32_t flags) {
    np_go_params_rescan(host->host_data, flags);
}
static void np_host_audio_ports_rescan_trampoline(const np_host *host) {
    np_go_audio_ports_rescan(host->host_data);
}
static void np_host_gui_resize_trampoline(const np_host *host, uint32_t width, uint32_t height) {
    np_go_gui_resize_request(host->host_data, width, height);
}
static void np_host_request_restart_trampoline(const np_host *host) {
    np_go_request_restart(host->host_data);
}
static void np_host_request_callback_trampoline(const np_host *host) {
    np_go_request_callback(host->host_data);
}

static np_host *np_new_host(void *go_handle) {
    np_host *h = (np_host *)malloc(sizeof(np_host));
    h->host_data = go_handle;
    h->log = np_host_log_trampoline;
    h->params_rescan = np_host_params_rescan_trampoline;
    h->audio_ports_rescan = np_host_audio_ports_rescan_trampoline;
    h->gui_resize_request = np_host_gui_resize_trampoline;
    h->request_restart = np_host_request_restart_trampoline;
    h->request_callback = np_host_request_callback_trampoline;
    return h;
}
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/charmbracelet/log"
)

// HostCallbacks are the host-side reactions to plugin-initiated requests
// (§4.1 "Host callbacks required"), supplied by the Host Supervisor when it
// loads a plugin into a slot.
type HostCallbacks struct {
	// ParamsRescan is invoked when the plugin reports its parameter set changed.
	ParamsRescan func(flags uint32)
	// AudioPortsRescan is invoked when the plugin reports its port layout changed.
	AudioPortsRescan func()
	// GUIResizeRequest is invoked when the plugin's editor wants a new child-window size.
	GUIResizeRequest func(width, height uint32)
	// RequestRestart asks the supervisor to stop_processing+deactivate then
	// reactivate+start_processing the slot.
	RequestRestart func()
	// RequestCallback is invoked when the plugin asks for a main-thread
	// callback. abi.h declares no on-main-thread plugin function, so no
	// plugin code is called back in response.
	RequestCallback func()
}

// hostBridge is the Go-side counterpart of one np_host C struct: it owns the
// malloc'd vtable, registers itself in a global handle table so the cgo
// trampolines (which only receive an opaque void* pointer, not a Go pointer)
// can find their way back to the right Wrapper and callback set.
type hostBridge struct {
	handle    uintptr
	cHostPtr  *C.np_host
	logger    *log.Logger
	callbacks HostCallbacks
	wrapper   *Wrapper
}

var (
	hostBridgeMu      sync.Mutex
	hostBridgeHandles = make(map[uintptr]*hostBridge)
	hostBridgeNext    uintptr
)

func newHostBridge(logger *log.Logger, callbacks HostCallbacks) *hostBridge {
	hostBridgeMu.Lock()
	hostBridgeNext++
	handle := hostBridgeNext
	hostBridgeMu.Unlock()

	b := &hostBridge{handle: handle, logger: logger, callbacks: callbacks}

	hostBridgeMu.Lock()
	hostBridgeHandles[handle] = b
	hostBridgeMu.Unlock()

	b.cHostPtr = C.np_new_host(unsafe.Pointer(handle))
	return b
}

func (b *hostBridge) cHost() *C.np_host { return b.cHostPtr }

func (b *hostBridge) release() {
	hostBridgeMu.Lock()
	delete(hostBridgeHandles, b.handle)
	hostBridgeMu.Unlock()
	if b.cHostPtr != nil {
		C.free(unsafe.Pointer(b.cHostPtr))
		b.cHostPtr = nil
	}
}

func lookupBridge(hostData unsafe.Pointer) *hostBridge {
	hostBridgeMu.Lock()
	defer hostBridgeMu.Unlock()
	return hostBridgeHandles[uintptr(hostData)]
}

//export np_go_log
func np_go_log(hostData unsafe.Pointer, severity C.int32_t, msg *C.char) {
	b := lookupBridge(hostData)
	if b == nil || b.logger == nil {
		return
	}
	text := C.GoString(msg)
	switch Severity(severity) {
	case SeverityDebug:
		b.logger.Debug(text)
	case SeverityInfo:
		b.logger.Info(text)
	case SeverityWarning:
		b.logger.Warn(text)
	default:
		b.logger.Error(text)
	}
}

//export np_go_params_rescan
func np_go_params_rescan(hostData unsafe.Pointer, flags C.uint32_t) {
	if b := lookupBridge(hostData); b != nil && b.callbacks.ParamsRescan != nil {
		b.callbacks.ParamsRescan(uint32(flags))
	}
}

//export np_go_audio_ports_rescan
func np_go_audio_ports_rescan(hostData unsafe.Pointer) {
	if b := lookupBridge(hostData); b != nil && b.callbacks.AudioPortsRescan != nil {
		b.callbacks.AudioPortsRescan()
	}
}

//export np_go_gui_resize_request
func np_go_gui_resize_request(hostData unsafe.Pointer, width, height C.uint32_t) {
	if b := lookupBridge(hostData); b != nil && b.callbacks.GUIResizeRequest != nil {
		b.callbacks.GUIResizeRequest(uint32(width), uint32(height))
	}
}

//export np_go_request_restart
func np_go_request_restart(hostData unsafe.Pointer) {
	if b := lookupBridge(hostData); b != nil && b.callbacks.RequestRestart != nil {
		b.callbacks.RequestRestart()
	}
}

//export np_go_request_callback
func np_go_request_callback(hostData unsafe.Pointer) {
	if b := lookupBridge(hostData); b != nil && b.callbacks.RequestCallback != nil {
		b.callbacks.RequestCallback()
	}
}
