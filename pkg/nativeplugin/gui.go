package nativeplugin

/*
#include <stdlib.h>
#include "abi.h"

static bool np_call_gui_is_api_supported(np_plugin *p) { return p->gui_is_api_supported(p); }
static bool np_call_gui_create(np_plugin *p) { return p->gui_create(p); }
static void np_call_gui_destroy(np_plugin *p) { p->gui_destroy(p); }
static bool np_call_gui_set_scale(np_plugin *p, double scale) { return p->gui_set_scale(p, scale); }
static bool np_call_gui_get_preferred_size(np_plugin *p, uint32_t *w, uint32_t *h) {
    return p->gui_get_preferred_size(p, w, h);
}
static bool np_call_gui_set_parent(np_plugin *p, void *handle) { return p->gui_set_parent(p, handle); }
static bool np_call_gui_show(np_plugin *p) { return p->gui_show(p); }
static bool np_call_gui_hide(np_plugin *p) { return p->gui_hide(p); }
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// WindowHost abstracts the native child window the plugin's editor is
// embedded into (§4.1: "create a native child window of the caller's parent,
// pass its native handle to set_parent"). The Host Supervisor supplies a
// platform-specific implementation; see gui_linux.go for the X11 one used by
// cmd/pluginhost on Linux.
type WindowHost interface {
	// CreateChild creates a child window under parentHandle sized to
	// (width, height) and returns its native handle for set_parent.
	CreateChild(parentHandle unsafe.Pointer, width, height uint32) (unsafe.Pointer, error)
	// Resize is invoked on a plugin-initiated gui_resize_request.
	Resize(childHandle unsafe.Pointer, width, height uint32) error
	// Destroy releases a previously created child window.
	Destroy(childHandle unsafe.Pointer)
}

// GUIOpen implements §4.1's gui_open: query API support, create, set scale,
// read preferred size, create the native child window, set_parent, show.
// Repeated opens are a no-op (tracked via guiOpen), matching activate's
// idempotence contract.
func (w *Wrapper) GUIOpen(parentHandle unsafe.Pointer, windows WindowHost) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.guiOpen {
		return nil
	}

	if !bool(C.np_call_gui_is_api_supported(w.plugin)) {
		return fmt.Errorf("nativeplugin: %s declares no supported gui api", w.descriptorID)
	}
	if !bool(C.np_call_gui_create(w.plugin)) {
		return fmt.Errorf("nativeplugin: %s gui_create failed", w.descriptorID)
	}

	// Scale 1.0 until the Host Supervisor plumbs a real display-scale query;
	// HiDPI scale discovery is left to the window toolkit for now.
	C.np_call_gui_set_scale(w.plugin, C.double(1.0))

	var width, height C.uint32_t
	if !bool(C.np_call_gui_get_preferred_size(w.plugin, &width, &height)) {
		width, height = 640, 480
	}

	child, err := windows.CreateChild(parentHandle, uint32(width), uint32(height))
	if err != nil {
		C.np_call_gui_destroy(w.plugin)
		return fmt.Errorf("nativeplugin: create child window for %s: %w", w.descriptorID, err)
	}

	if !bool(C.np_call_gui_set_parent(w.plugin, child)) {
		windows.Destroy(child)
		C.np_call_gui_destroy(w.plugin)
		return fmt.Errorf("nativeplugin: %s gui_set_parent failed", w.descriptorID)
	}
	if !bool(C.np_call_gui_show(w.plugin)) {
		windows.Destroy(child)
		C.np_call_gui_destroy(w.plugin)
		return fmt.Errorf("nativeplugin: %s gui_show failed", w.descriptorID)
	}

	w.childWindow = child
	w.windows = windows
	w.guiOpen = true
	return nil
}

// GUIClose reverses GUIOpen; safe to call repeatedly.
func (w *Wrapper) GUIClose() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeGUILocked()
}

func (w *Wrapper) closeGUI() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeGUILocked()
}

func (w *Wrapper) closeGUILocked() {
	if !w.guiOpen {
		return
	}
	C.np_call_gui_hide(w.plugin)
	C.np_call_gui_destroy(w.plugin)
	if w.windows != nil && w.childWindow != nil {
		w.windows.Destroy(w.childWindow)
	}
	w.childWindow = nil
	w.windows = nil
	w.guiOpen = false
}

// IsGUIOpen reports whether the editor is currently open.
func (w *Wrapper) IsGUIOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.guiOpen
}
