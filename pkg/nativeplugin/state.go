package nativeplugin

/*
#include <stdlib.h>
#include "abi.h"

extern int64_t np_go_stream_read(void *ctx, void *buffer, uint64_t size);
extern int64_t np_go_stream_write(void *ctx, const void *buffer, uint64_t size);

static np_istream np_make_istream(void *ctx) {
    np_istream s;
    s.ctx = ctx;
    s.read = np_go_stream_read;
    return s;
}

static np_ostream np_make_ostream(void *ctx) {
    np_ostream s;
    s.ctx = ctx;
    s.write = np_go_stream_write;
    return s;
}

static bool np_call_state_save(np_plugin *p, const np_ostream *s) { return p->state_save(p, s); }
static bool np_call_state_load(np_plugin *p, const np_istream *s) { return p->state_load(p, s); }
*/
import "C"

import (
	"bytes"
	"fmt"
	"sync"
	"unsafe"
)

// State save/load wraps an io.Reader/io.Writer in the CLAP-style
// clap_istream/clap_ostream callback shape, here as this host's
// np_istream/np_ostream. The plugin calls read/write through its own
// np_istream/np_ostream struct; those calls land in the exported
// np_go_stream_read/write trampolines below, which look the Go-side
// bytes.Buffer up by an opaque handle the same way host_callbacks.go does.

var (
	streamMu      sync.Mutex
	streamHandles = make(map[uintptr]*streamState)
	streamNext    uintptr
)

type streamState struct {
	reader *bytes.Reader // state_load
	writer *bytes.Buffer // state_save
}

func registerStream(s *streamState) uintptr {
	streamMu.Lock()
	defer streamMu.Unlock()
	streamNext++
	h := streamNext
	streamHandles[h] = s
	return h
}

func unregisterStream(h uintptr) {
	streamMu.Lock()
	defer streamMu.Unlock()
	delete(streamHandles, h)
}

func lookupStream(ctx unsafe.Pointer) *streamState {
	streamMu.Lock()
	defer streamMu.Unlock()
	return streamHandles[uintptr(ctx)]
}

//export np_go_stream_read
func np_go_stream_read(ctx unsafe.Pointer, buffer unsafe.Pointer, size C.uint64_t) C.int64_t {
	s := lookupStream(ctx)
	if s == nil || s.reader == nil {
		return -1
	}
	dst := unsafe.Slice((*byte)(buffer), int(size))
	n, err := s.reader.Read(dst)
	if err != nil && n == 0 {
		return 0
	}
	return C.int64_t(n)
}

//export np_go_stream_write
func np_go_stream_write(ctx unsafe.Pointer, buffer unsafe.Pointer, size C.uint64_t) C.int64_t {
	s := lookupStream(ctx)
	if s == nil || s.writer == nil {
		return -1
	}
	src := unsafe.Slice((*byte)(buffer), int(size))
	n, err := s.writer.Write(src)
	if err != nil {
		return -1
	}
	return C.int64_t(n)
}

// StateSave asks the plugin to serialize its current state into a byte
// slice via an in-memory stream object (§4.1: "use the plugin's state
// extension with an in-memory read/write stream object").
func (w *Wrapper) StateSave() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := &streamState{writer: &bytes.Buffer{}}
	handle := registerStream(st)
	defer unregisterStream(handle)

	cStream := C.np_make_ostream(unsafe.Pointer(handle))
	if !bool(C.np_call_state_save(w.plugin, &cStream)) {
		return nil, fmt.Errorf("nativeplugin: %s state_save failed", w.descriptorID)
	}
	return st.writer.Bytes(), nil
}

// StateLoad restores previously-saved state.
func (w *Wrapper) StateLoad(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := &streamState{reader: bytes.NewReader(data)}
	handle := registerStream(st)
	defer unregisterStream(handle)

	cStream := C.np_make_istream(unsafe.Pointer(handle))
	if !bool(C.np_call_state_load(w.plugin, &cStream)) {
		return fmt.Errorf("nativeplugin: %s state_load failed", w.descriptorID)
	}
	return nil
}
