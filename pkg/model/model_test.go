package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSongValidate(t *testing.T) {
	s := New("demo", 120, 4, 48000)
	require.NoError(t, s.Validate())

	s.BPM = 0
	require.Error(t, s.Validate())

	s.BPM = 120
	s.Tracks[0].Pan = 1.5
	require.Error(t, s.Validate())
}

func TestCursorOrdering(t *testing.T) {
	a := Cursor{Track: 0, Lane: 1, Line: 5}
	b := Cursor{Track: 0, Lane: 1, Line: 6}
	c := Cursor{Track: 1, Lane: 0, Line: 0}

	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, b.Less(c))
}

func TestSongClone(t *testing.T) {
	s := New("demo", 120, 4, 48000)
	s.Tracks[0].Lanes = []Lane{{Items: map[int]LaneItem{0: {Kind: LaneItemNote, Note: Note{Key: 60}}}}}

	clone := s.Clone()
	clone.Tracks[0].Lanes[0].Items[0] = LaneItem{Kind: LaneItemNote, Note: Note{Key: 61}}

	assert.Equal(t, 60, s.Tracks[0].Lanes[0].Items[0].Note.Key)
	assert.Equal(t, 61, clone.Tracks[0].Lanes[0].Items[0].Note.Key)
}
