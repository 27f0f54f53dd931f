package control

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, m Message) Message {
	t.Helper()
	data, err := Encode(m)
	require.NoError(t, err)

	got, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return got
}

func TestCodecRoundTrip(t *testing.T) {
	load := Message{Tag: TagLoad, Load: Load{SlotID: 7, PluginID: "com.example.synth", TrackIndex: 2, OpenGUI: true}}
	got := roundTrip(t, load)
	require.Equal(t, load, got)

	save := Message{Tag: TagDidStateSave, DidStateSave: DidStateSave{Track: 1, Module: 0, Data: []byte{1, 2, 3, 4}}}
	got = roundTrip(t, save)
	require.Equal(t, save.DidStateSave, got.DidStateSave)

	quit := Message{Tag: TagQuit}
	got = roundTrip(t, quit)
	require.Equal(t, TagQuit, got.Tag)
}

func TestCodecShortReadIsError(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{10, 0, 0, 0, 1}))
	require.Error(t, err)
}
