package nativeplugin

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSamplesPerTick(t *testing.T) {
	// 44100 Hz, 120 BPM, 4 LPB.
	got := samplesPerTick(44100, 120, 4)
	require.InDelta(t, 44100.0*60/(120*4*256), got, 1e-9)
}

func TestMinInt(t *testing.T) {
	require.Equal(t, 2, minInt(5, 2, 9))
	require.Equal(t, -1, minInt(-1, 0, 3))
	require.Equal(t, 7, minInt(7))
}
