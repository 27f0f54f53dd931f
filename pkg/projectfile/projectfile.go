// Package projectfile implements on-disk Song persistence: a versioned
// Header/Envelope/Manager trio that serializes and validates a whole Song,
// independent of the opaque per-plugin state blobs the control protocol
// saves and loads separately.
package projectfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ticktrack/core/pkg/model"
)

// Version is the on-disk schema version of the Envelope wrapping a Song.
type Version uint32

const (
	VersionUnknown Version = 0
	Version1       Version = 1
)

// CurrentVersion is the schema a Manager created with it writes in
// SaveToJSON and the latest LoadFromJSON accepts without migration.
const CurrentVersion = Version1

var (
	ErrVersionTooNew = errors.New("projectfile: file version is newer than this build supports")
	ErrNoMigrator    = errors.New("projectfile: no migration path to the current version")
)

// Header carries the envelope metadata written alongside the Song payload.
type Header struct {
	Version Version `json:"version"`
	SavedAt int64   `json:"savedAt"`
}

// Envelope is the root JSON object of a Song file on disk.
type Envelope struct {
	Header Header     `json:"header"`
	Song   model.Song `json:"song"`
}

// Manager saves and loads Song files at a fixed target version, migrating
// older files forward through an optional MigrationChain.
type Manager struct {
	version    Version
	migrations *MigrationChain
}

// NewManager returns a Manager targeting version, with no migration chain
// installed (Load will reject anything older than version).
func NewManager(version Version) *Manager {
	return &Manager{version: version}
}

// WithMigrations installs a migration chain used by Load to bring older
// files forward to m's target version.
func (m *Manager) WithMigrations(chain *MigrationChain) *Manager {
	m.migrations = chain
	return m
}

// SaveToJSON serializes song into a versioned Envelope.
func (m *Manager) SaveToJSON(song *model.Song) ([]byte, error) {
	env := Envelope{
		Header: Header{Version: m.version, SavedAt: time.Now().Unix()},
		Song:   *song,
	}
	return json.MarshalIndent(env, "", "  ")
}

// LoadFromJSON parses data, migrating forward if the file predates m's
// target version, and rejecting files newer than this build understands.
func (m *Manager) LoadFromJSON(data []byte) (*model.Song, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("projectfile: parse: %w", err)
	}
	if env.Header.Version > m.version {
		return nil, fmt.Errorf("%w: file is v%d, this build supports up to v%d", ErrVersionTooNew, env.Header.Version, m.version)
	}
	if env.Header.Version < m.version {
		if m.migrations == nil {
			return nil, fmt.Errorf("%w: file is v%d, need v%d", ErrNoMigrator, env.Header.Version, m.version)
		}
		migrated, err := m.migrations.Migrate(env, m.version)
		if err != nil {
			return nil, err
		}
		env = migrated
	}
	song := env.Song
	return &song, nil
}
