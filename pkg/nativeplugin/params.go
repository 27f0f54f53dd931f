package nativeplugin

/*
#include "abi.h"

static bool np_call_param_get_value(np_plugin *p, np_id id, double *out) {
    return p->param_get_value(p, id, out);
}
*/
import "C"

// KnownParam reports whether id was enumerated at load time, and its
// current cached info if so. Event translation uses this to silently drop
// ParamValue events referencing unknown ids (§4.1 step 5).
func (w *Wrapper) KnownParam(id uint32) (ParamInfo, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.Params[id]
	if !ok {
		return ParamInfo{}, false
	}
	return *p, true
}

// RefreshParamValue re-reads a single parameter's current value from the
// plugin, used after a params-rescan host callback fires.
func (w *Wrapper) RefreshParamValue(id uint32) (float64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.Params[id]
	if !ok {
		return 0, false
	}
	var value C.double
	if !bool(C.np_call_param_get_value(w.plugin, C.np_id(id), &value)) {
		return 0, false
	}
	p.Current = float64(value)
	return p.Current, true
}

// OrderedParams returns parameter info in enumeration order, the shape the
// Host Supervisor exposes to a parameter UI.
func (w *Wrapper) OrderedParams() []ParamInfo {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]ParamInfo, 0, len(w.ParamOrder))
	for _, id := range w.ParamOrder {
		out = append(out, *w.Params[id])
	}
	return out
}
