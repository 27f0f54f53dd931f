// Package transport implements the musical-time model shared by the Engine
// Scheduler and the Plugin Wrapper's transport descriptor: ticks, lines,
// beats, seconds, and the per-block play-position advance.
package transport

import "math"

// TicksPerLine is the sub-line resolution (a "delay" unit): 1 line = 256
// ticks.
const TicksPerLine = 256

// BeatsPerBar is fixed at 4/4; time-signature variability is out of scope.
const BeatsPerBar = 4

// TicksPerBeat returns the number of ticks in one beat at the given LPB
// (lines per beat).
func TicksPerBeat(lpb int) int {
	return lpb * TicksPerLine
}

// TickRate returns ticks per second for the given bpm and lpb.
func TickRate(bpm float64, lpb int) float64 {
	return bpm * float64(lpb) * TicksPerLine / 60.0
}

// Range is a half-open tick interval [Start, End) describing the portion of
// the score a block advances over. When Start > End the range has wrapped
// around a loop boundary and must be split by the caller (see Split).
type Range struct {
	Start int
	End   int
}

// DeltaTicks returns the number of ticks a block of frameCount frames
// advances at the given sample rate, bpm and lpb, rounded to the nearest
// tick (e.g. bpm=120, lpb=4, sampleRate=48000, frames=512 -> 105).
func DeltaTicks(frameCount, sampleRate int, bpm float64, lpb int) int {
	secPerFrame := float64(frameCount) / float64(sampleRate)
	return int(math.Round(secPerFrame * TickRate(bpm, lpb)))
}

// Advance computes the next play-position range given the previous end,
// the delta for this block, and the loop bounds. When loop is enabled and
// the naive end would reach or pass loopEnd, the range wraps: the returned
// End is relative to loopStart and is allowed to be less than Start - the
// caller must treat [Start, loopEnd) union [loopStart, End) as the affected
// region (see Split).
func Advance(prevEnd, delta int, loopOn bool, loopStart, loopEnd int) Range {
	start := prevEnd
	end := start + delta
	if loopOn && loopEnd > loopStart && end >= loopEnd {
		end = loopStart + (end - loopEnd)
	}
	return Range{Start: start, End: end}
}

// Split returns the one or two contiguous sub-ranges represented by r. When
// r.Start <= r.End it is already contiguous. When r.Start > r.End the range
// wrapped around a loop boundary and is split into [Start, loopEnd) and
// [loopStart, End).
func (r Range) Split(loopStart, loopEnd int) []Range {
	if r.Start <= r.End {
		return []Range{r}
	}
	return []Range{
		{Start: r.Start, End: loopEnd},
		{Start: loopStart, End: r.End},
	}
}

// Line returns the line number containing the given tick.
func Line(tick int) int {
	return tick / TicksPerLine
}

// Beats converts an absolute tick position to beats, for the plugin
// transport descriptor.
func Beats(tick int, lpb int) float64 {
	return float64(tick) / float64(TicksPerBeat(lpb))
}

// Seconds converts an absolute tick position to seconds.
func Seconds(tick int, bpm float64, lpb int) float64 {
	return float64(tick) / TickRate(bpm, lpb)
}

// Bar returns the (zero-based) bar number containing the given tick, fixed
// at 4/4.
func Bar(tick int, lpb int) int {
	return Line(tick) / (lpb * BeatsPerBar)
}

// ClockIntervalFrames returns the number of frames between MIDI beat-clock
// (0xF8) pulses: 24 pulses per quarter note, per the MIDI spec.
func ClockIntervalFrames(sampleRate int, bpm float64) float64 {
	return float64(sampleRate) / (bpm / 60.0 * 24.0)
}
