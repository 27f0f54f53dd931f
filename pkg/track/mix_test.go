package track

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ticktrack/core/pkg/processdata"
)

func blockWithOutput(nch, frames int, fill func(ch, i int) float32) *processdata.Block {
	b := &processdata.Block{FrameCount: frames}
	b.NChannelsOut[0] = nch
	for ch := 0; ch < nch; ch++ {
		for i := 0; i < frames; i++ {
			b.BufferOut[0][ch][i] = fill(ch, i)
		}
	}
	return b
}

func TestApplyAudioInputEqualChannelCopy(t *testing.T) {
	src := blockWithOutput(2, 4, func(ch, i int) float32 { return float32(ch*10 + i) })
	dst := &processdata.Block{FrameCount: 4}
	dst.NChannelsIn[0] = 2

	ApplyAudioInput(dst, 0, src, 0)

	require.Equal(t, src.BufferOut[0][0][:4], dst.BufferIn[0][0][:4])
	require.Equal(t, src.BufferOut[0][1][:4], dst.BufferIn[0][1][:4])
}

func TestApplyAudioInputMonoFanOut(t *testing.T) {
	src := blockWithOutput(1, 3, func(ch, i int) float32 { return float32(i + 1) })
	dst := &processdata.Block{FrameCount: 3}
	dst.NChannelsIn[0] = 4

	ApplyAudioInput(dst, 0, src, 0)

	for ch := 0; ch < 4; ch++ {
		require.Equal(t, src.BufferOut[0][0][:3], dst.BufferIn[0][ch][:3])
	}
}

func TestApplyAudioInputSumToMonoAverages(t *testing.T) {
	src := blockWithOutput(2, 2, func(ch, i int) float32 { return float32((ch + 1) * 10) })
	dst := &processdata.Block{FrameCount: 2}
	dst.NChannelsIn[0] = 1

	ApplyAudioInput(dst, 0, src, 0)

	require.InDelta(t, 15.0, dst.BufferIn[0][0][0], 1e-6)
	require.InDelta(t, 15.0, dst.BufferIn[0][0][1], 1e-6)
}

func TestApplyAudioInputConstantMaskReplicatesFrameZero(t *testing.T) {
	src := &processdata.Block{FrameCount: 8}
	src.NChannelsOut[0] = 1
	src.BufferOut[0][0][0] = 0.5
	src.ConstantMaskOut[0] = processdata.SetConstantBit(0, 0, true)

	dst := &processdata.Block{FrameCount: 8}
	dst.NChannelsIn[0] = 1

	ApplyAudioInput(dst, 0, src, 0)

	for i := 0; i < 8; i++ {
		require.InDelta(t, 0.5, dst.BufferIn[0][0][i], 1e-6)
	}
	require.True(t, processdata.ConstantBit(dst.ConstantMaskIn[0], 0))
}

func TestPeakDBUsesFrameZeroWhenConstant(t *testing.T) {
	b := &processdata.Block{FrameCount: 16}
	b.NChannelsOut[0] = 1
	b.BufferOut[0][0][0] = 0.25
	b.ConstantMaskOut[0] = processdata.SetConstantBit(0, 0, true)

	got := PeakDB(b, 0)
	require.InDelta(t, 20*math.Log10(0.25), got, 1e-6)
}
