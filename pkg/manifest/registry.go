package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ticktrack/core/pkg/nativeplugin"
)

// Registry is the Host Supervisor's in-memory descriptor cache, rebuilt by
// Scan and consulted by Resolve on every Load. Since this host's plugins
// are native shared objects rather than Go plugins, there is no JSON
// sidecar to read: Scan dlopens every .so under a search path and asks it
// to describe itself.
type Registry struct {
	dirs []string

	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry returns a Registry that scans dirs (non-recursively) for
// *.so files on every Scan call.
func NewRegistry(dirs ...string) *Registry {
	return &Registry{dirs: dirs, entries: make(map[string]Entry)}
}

// Scan re-enumerates every configured search directory, replacing the
// previous cache wholesale. A directory that cannot be listed is skipped,
// not fatal - Scan's job is best-effort discovery (§6: "the external
// scanner produces... the Host Supervisor consumes").
func (r *Registry) Scan() error {
	next := make(map[string]Entry)
	var firstErr error

	for _, dir := range r.dirs {
		paths, err := filepath.Glob(filepath.Join(dir, "*.so"))
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("manifest: glob %s: %w", dir, err)
			}
			continue
		}
		for _, path := range paths {
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			descriptors, err := nativeplugin.Scan(path)
			if err != nil {
				continue // not every .so in the directory need be a plugin
			}
			for i, d := range descriptors {
				next[d.ID] = Entry{
					ID:      d.ID,
					Name:    d.Name,
					Vendor:  d.Vendor,
					Version: d.Version,
					Path:    path,
					Index:   uint32(i),
					ModTime: info.ModTime(),
				}
			}
		}
	}

	r.mu.Lock()
	r.entries = next
	r.mu.Unlock()
	return firstErr
}

// Resolve looks up pluginID, returning the shared-object path and the
// descriptor index within that file's factory - exactly the signature
// pluginhost.Config.ResolvePath expects.
func (r *Registry) Resolve(pluginID string) (path string, descriptorIndex uint32, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[pluginID]
	if !ok {
		return "", 0, fmt.Errorf("manifest: no plugin registered with id %q", pluginID)
	}
	return e.Path, e.Index, nil
}

// List returns a snapshot of every currently cached descriptor entry.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}
