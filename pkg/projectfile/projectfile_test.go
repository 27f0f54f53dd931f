package projectfile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ticktrack/core/pkg/model"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	m := NewManager(CurrentVersion)
	song := model.New("demo", 120, 4, 48000)
	song.Tracks[0].Volume = 0.75

	data, err := m.SaveToJSON(song)
	require.NoError(t, err)

	loaded, err := m.LoadFromJSON(data)
	require.NoError(t, err)
	require.Equal(t, song.Name, loaded.Name)
	require.Equal(t, song.Tracks[0].Volume, loaded.Tracks[0].Volume)
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	m := NewManager(Version1)
	song := model.New("demo", 120, 4, 48000)
	data, err := NewManager(Version(2)).SaveToJSON(song)
	require.NoError(t, err)

	_, err = m.LoadFromJSON(data)
	require.ErrorIs(t, err, ErrVersionTooNew)
}

func TestLoadOlderVersionWithoutMigrationsFails(t *testing.T) {
	m := NewManager(Version(2))
	song := model.New("demo", 120, 4, 48000)
	data, err := NewManager(Version1).SaveToJSON(song)
	require.NoError(t, err)

	_, err = m.LoadFromJSON(data)
	require.ErrorIs(t, err, ErrNoMigrator)
}

type bumpSampleRate struct{}

func (bumpSampleRate) SourceVersion() Version { return Version1 }
func (bumpSampleRate) TargetVersion() Version { return Version(2) }
func (bumpSampleRate) Migrate(old Envelope) (Envelope, error) {
	old.Header.Version = Version(2)
	old.Song.SampleRate = 48000
	return old, nil
}

func TestLoadMigratesForward(t *testing.T) {
	m := NewManager(Version(2)).WithMigrations(NewMigrationChain().Add(bumpSampleRate{}))
	song := model.New("demo", 120, 4, 44100)
	data, err := NewManager(Version1).SaveToJSON(song)
	require.NoError(t, err)

	loaded, err := m.LoadFromJSON(data)
	require.NoError(t, err)
	require.Equal(t, 48000, loaded.SampleRate)
}
