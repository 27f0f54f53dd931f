// Package manifest implements the descriptor cache the Host Supervisor
// consults on every Load and rebuilds on every Scan: one Entry per
// binary-declared plugin descriptor, keyed by plugin ID, recording which
// shared-object file and which descriptor index within that file's factory
// it came from.
package manifest

import "time"

// Entry is one plugin's descriptor cache record. A single dlopen'd .so
// can declare several descriptors (np_entry.descriptor_count), so Entry
// records which index within that factory this plugin is.
type Entry struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Vendor      string    `json:"vendor"`
	Version     string    `json:"version"`
	Description string    `json:"description,omitempty"`
	Features    []string  `json:"features,omitempty"`
	Path        string    `json:"path"`
	Index       uint32    `json:"indexWithinFactory"`
	ModTime     time.Time `json:"modTime"`
}
