//go:build linux

package nativeplugin

/*
#cgo LDFLAGS: -lX11
#include <X11/Xlib.h>
#include <stdlib.h>
#include <sys/select.h>

static int np_x11_pending(Display *dpy) {
    return XPending(dpy);
}

static void np_x11_next_event(Display *dpy) {
    XEvent ev;
    XNextEvent(dpy, &ev);
}

static Window np_x11_create_child(Display *dpy, Window parent, unsigned int w, unsigned int h) {
    Window win = XCreateSimpleWindow(dpy, parent, 0, 0, w, h, 0, 0, 0);
    XMapWindow(dpy, win);
    XFlush(dpy);
    return win;
}

static void np_x11_resize(Display *dpy, Window win, unsigned int w, unsigned int h) {
    XResizeWindow(dpy, win, w, h);
    XFlush(dpy);
}

static void np_x11_destroy(Display *dpy, Window win) {
    XDestroyWindow(dpy, win);
    XFlush(dpy);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// X11WindowHost implements WindowHost by creating plain X11 child windows.
// It is the Linux counterpart of the native child window §4.1 asks for;
// plugin editors render directly into the returned Window via whatever
// toolkit they embed (the host only owns creation/resize/destroy).
type X11WindowHost struct {
	display *C.Display
}

// NewX11WindowHost opens a connection to the X display named by the DISPLAY
// environment variable (empty name -> default display).
func NewX11WindowHost() (*X11WindowHost, error) {
	dpy := C.XOpenDisplay(nil)
	if dpy == nil {
		return nil, fmt.Errorf("nativeplugin: XOpenDisplay failed")
	}
	return &X11WindowHost{display: dpy}, nil
}

func (h *X11WindowHost) CreateChild(parentHandle unsafe.Pointer, width, height uint32) (unsafe.Pointer, error) {
	parent := C.Window(uintptr(parentHandle))
	win := C.np_x11_create_child(h.display, parent, C.uint(width), C.uint(height))
	return unsafe.Pointer(uintptr(win)), nil
}

func (h *X11WindowHost) Resize(childHandle unsafe.Pointer, width, height uint32) error {
	win := C.Window(uintptr(childHandle))
	C.np_x11_resize(h.display, win, C.uint(width), C.uint(height))
	return nil
}

func (h *X11WindowHost) Destroy(childHandle unsafe.Pointer) {
	win := C.Window(uintptr(childHandle))
	C.np_x11_destroy(h.display, win)
}

// PumpMessages drains every pending X11 event without blocking, satisfying
// §4.2 step 3 ("drain and dispatch native window messages"). Embedded
// plugin editors register their own event handlers via the toolkit they
// use internally; this host only needs to keep the connection's queue from
// backing up so input reaches them.
func (h *X11WindowHost) PumpMessages() {
	for C.np_x11_pending(h.display) > 0 {
		C.np_x11_next_event(h.display)
	}
}

// Close releases the display connection.
func (h *X11WindowHost) Close() error {
	if h.display != nil {
		C.XCloseDisplay(h.display)
		h.display = nil
	}
	return nil
}
