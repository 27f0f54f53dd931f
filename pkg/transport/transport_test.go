package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeltaTicksWorkedExample(t *testing.T) {
	// bpm=120, LPB=4, sample_rate=48000, N=512 -> round(104.857) = 105
	assert.Equal(t, 105, DeltaTicks(512, 48000, 120, 4))
}

func TestAdvanceLoopWrap(t *testing.T) {
	// loop_start=0, loop_end=1024, start=960, delta=128 -> new end=64
	r := Advance(960, 128, true, 0, 1024)
	assert.Equal(t, 960, r.Start)
	assert.Equal(t, 64, r.End)

	split := r.Split(0, 1024)
	assert.Equal(t, []Range{{960, 1024}, {0, 64}}, split)
}

func TestAdvanceNoWrap(t *testing.T) {
	r := Advance(0, 105, true, 0, 1024)
	assert.Equal(t, Range{0, 105}, r)
	assert.Equal(t, []Range{{0, 105}}, r.Split(0, 1024))
}

func TestLinePublication(t *testing.T) {
	assert.Equal(t, 0, Line(255))
	assert.Equal(t, 1, Line(256))
	assert.NotEqual(t, Line(255), Line(256))
}
