package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ticktrack/core/pkg/model"
)

func newTestLoop(t *testing.T) *CommandLoop {
	t.Helper()
	eng := New(Config{})
	return NewCommandLoop(eng, model.New("t", 120, 4, 48000))
}

func TestApplyAddTrack(t *testing.T) {
	l := newTestLoop(t)
	l.apply(Command{Kind: CmdAddTrack, Name: "lead"})
	song := l.engine.getSong()
	require.Len(t, song.Tracks, 2)
	require.Equal(t, "lead", song.Tracks[1].Name)
}

func TestApplyRemoveTrackRejectsMaster(t *testing.T) {
	l := newTestLoop(t)
	reply := make(chan error, 1)
	l.apply(Command{Kind: CmdRemoveTrack, Track: 0, Reply: reply})
	require.Error(t, <-reply)
	require.Len(t, l.engine.getSong().Tracks, 1)
}

func TestApplySetVolumeClamps(t *testing.T) {
	l := newTestLoop(t)
	l.apply(Command{Kind: CmdAddTrack, Name: "lead"})
	l.apply(Command{Kind: CmdSetVolume, Track: 1, Value: 3.5})
	require.Equal(t, 1.0, l.engine.getSong().Tracks[1].Volume)
	l.apply(Command{Kind: CmdSetVolume, Track: 1, Value: -1})
	require.Equal(t, 0.0, l.engine.getSong().Tracks[1].Volume)
}

func TestApplyUnloadPluginRejectsNonLastModule(t *testing.T) {
	l := newTestLoop(t)
	song := l.engine.getSong()
	song.Tracks[0].Modules = []model.Module{{PluginID: "a"}, {PluginID: "b"}}
	l.engine.SetSong(song)

	reply := make(chan error, 1)
	l.apply(Command{Kind: CmdUnloadPlugin, Track: 0, Module: 0, Reply: reply})
	require.Error(t, <-reply)
	require.Len(t, l.engine.getSong().Tracks[0].Modules, 2)
}

func TestSaveAndLoadProjectRoundTrip(t *testing.T) {
	l := newTestLoop(t)
	l.apply(Command{Kind: CmdAddTrack, Name: "lead"})
	l.apply(Command{Kind: CmdSetVolume, Track: 1, Value: 0.5})

	path := filepath.Join(t.TempDir(), "song.json")
	saveReply := make(chan error, 1)
	l.apply(Command{Kind: CmdSaveProject, Path: path, Reply: saveReply})
	require.NoError(t, <-saveReply)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	loadReply := make(chan error, 1)
	l.apply(Command{Kind: CmdLoadProject, Path: path, Reply: loadReply})
	require.NoError(t, <-loadReply)
	require.Len(t, l.engine.getSong().Tracks, 2)
	require.Equal(t, 0.5, l.engine.getSong().Tracks[1].Volume)
}

func TestLoadProjectRejectsMissingFile(t *testing.T) {
	l := newTestLoop(t)
	reply := make(chan error, 1)
	l.apply(Command{Kind: CmdLoadProject, Path: filepath.Join(t.TempDir(), "missing.json"), Reply: reply})
	require.Error(t, <-reply)
}
