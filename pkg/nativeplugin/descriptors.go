package nativeplugin

/*
#include <dlfcn.h>
#include <stdlib.h>
#include "abi.h"

static const np_entry *np_describe_entry(void *handle) {
    np_entry_point_fn fn = (np_entry_point_fn)dlsym(handle, NP_ENTRY_POINT_SYMBOL);
    if (!fn) {
        return NULL;
    }
    return fn();
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// Descriptor is the plugin-identity metadata a binary declares before any
// instance is created, used by the Host Supervisor's Scan handling
// (§4.2/§4.3 TagScan/TagDidScan).
type Descriptor struct {
	ID      string
	Name    string
	Vendor  string
	Version string
}

// Scan dlopen's path, lists every descriptor it declares, and dlclose's it
// again without instantiating any plugin - a pure enumeration pass.
func Scan(path string) ([]Descriptor, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	handle := C.dlopen(cPath, C.RTLD_NOW|C.RTLD_LOCAL)
	if handle == nil {
		return nil, fmt.Errorf("nativeplugin: dlopen %s: %s", path, C.GoString(C.dlerror()))
	}
	defer C.dlclose(handle)

	entry := C.np_describe_entry(handle)
	if entry == nil {
		return nil, fmt.Errorf("nativeplugin: %s has no %s symbol", path, C.NP_ENTRY_POINT_SYMBOL)
	}

	out := make([]Descriptor, 0, int(entry.descriptor_count))
	for i := uint32(0); i < uint32(entry.descriptor_count); i++ {
		d := entry.descriptor_at(C.uint32_t(i))
		if d == nil {
			continue
		}
		out = append(out, Descriptor{
			ID:      C.GoString(d.id),
			Name:    C.GoString(d.name),
			Vendor:  C.GoString(d.vendor),
			Version: C.GoString(d.version),
		})
	}
	return out, nil
}
