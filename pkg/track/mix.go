package track

import (
	"github.com/ticktrack/core/pkg/processdata"
	"github.com/ticktrack/core/pkg/util"
)

// ApplyAudioInput implements §4.5 step 2b's channel-count adaptation matrix
// (N→N, 1→N, N→1, N→M), copying src channel(s) into dst at dstPort,
// honoring and propagating constant-mask bits.
func ApplyAudioInput(block *processdata.Block, dstPort int, src *processdata.Block, srcPort int) {
	srcN := src.NChannelsOut[srcPort]
	dstN := block.NChannelsIn[dstPort]
	if srcN == 0 || dstN == 0 {
		return
	}

	switch {
	case srcN == dstN:
		for ch := 0; ch < dstN; ch++ {
			copyChannel(block, dstPort, ch, src, srcPort, ch)
			propagateConstantBit(block, dstPort, ch, src, srcPort, ch)
		}

	case srcN == 1:
		// 1->N: fan out mono to every destination channel.
		for ch := 0; ch < dstN; ch++ {
			copyChannel(block, dstPort, ch, src, srcPort, 0)
			propagateConstantBit(block, dstPort, ch, src, srcPort, 0)
		}

	case dstN == 1:
		// N->1: average all source channels into the single destination channel.
		frames := block.FrameCount
		out := &block.BufferIn[dstPort][0]
		for i := 0; i < frames; i++ {
			var sum float32
			for c := 0; c < srcN; c++ {
				sum += readSample(src, srcPort, c, i)
			}
			out[i] = sum / float32(srcN)
		}
		block.ConstantMaskIn[dstPort] = processdata.SetConstantBit(block.ConstantMaskIn[dstPort], 0, false)

	default:
		// N->M, N != M: copy min(N,M) channels; remaining dst channels are
		// zeroed here.
		n := srcN
		if dstN < n {
			n = dstN
		}
		for ch := 0; ch < n; ch++ {
			copyChannel(block, dstPort, ch, src, srcPort, ch)
			propagateConstantBit(block, dstPort, ch, src, srcPort, ch)
		}
		for ch := n; ch < dstN; ch++ {
			out := &block.BufferIn[dstPort][ch]
			for i := 0; i < block.FrameCount; i++ {
				out[i] = 0
			}
			block.ConstantMaskIn[dstPort] = processdata.SetConstantBit(block.ConstantMaskIn[dstPort], ch, false)
		}
	}
}

func copyChannel(dst *processdata.Block, dstPort, dstCh int, src *processdata.Block, srcPort, srcCh int) {
	frames := dst.FrameCount
	if processdata.ConstantBit(src.ConstantMaskOut[srcPort], srcCh) {
		// Only frame 0 is authoritative; replicate it across the block so
		// downstream readers that don't themselves respect the mask still
		// see a correct signal.
		v := src.BufferOut[srcPort][srcCh][0]
		for i := 0; i < frames; i++ {
			dst.BufferIn[dstPort][dstCh][i] = v
		}
		return
	}
	copy(dst.BufferIn[dstPort][dstCh][:frames], src.BufferOut[srcPort][srcCh][:frames])
}

func propagateConstantBit(dst *processdata.Block, dstPort, dstCh int, src *processdata.Block, srcPort, srcCh int) {
	set := processdata.ConstantBit(src.ConstantMaskOut[srcPort], srcCh)
	dst.ConstantMaskIn[dstPort] = processdata.SetConstantBit(dst.ConstantMaskIn[dstPort], dstCh, set)
}

func readSample(src *processdata.Block, port, ch, frame int) float32 {
	if processdata.ConstantBit(src.ConstantMaskOut[port], ch) {
		frame = 0
	}
	return src.BufferOut[port][ch][frame]
}

// PeakDB computes the peak dB level of one output port's channels for
// metering (§4.5 step 3): "if constant-mask bit set, use |buffer[0]|; else
// max |sample| over the block".
func PeakDB(block *processdata.Block, port int) float64 {
	var peak float32
	nch := block.NChannelsOut[port]
	for ch := 0; ch < nch; ch++ {
		var chPeak float32
		if processdata.ConstantBit(block.ConstantMaskOut[port], ch) {
			chPeak = abs32(block.BufferOut[port][ch][0])
		} else {
			for i := 0; i < block.FrameCount; i++ {
				if v := abs32(block.BufferOut[port][ch][i]); v > chPeak {
					chPeak = v
				}
			}
		}
		if chPeak > peak {
			peak = chPeak
		}
	}
	return util.LinearToDb(float64(peak))
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
