// Package util provides small numeric helpers shared by the track
// processor and engine mixer: dB/linear conversion, clamping, and the
// equal-power pan law. A host never synthesizes audio itself, so these
// helpers stop at conversion and mixing - no envelope interpolation.
package util

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// LinearToDb converts a linear gain value to decibels.
func LinearToDb(linear float64) float64 {
	if linear <= 0.0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(linear)
}

// DbToLinear converts decibels to a linear gain value.
func DbToLinear(db float64) float64 {
	return math.Pow(10.0, db/20.0)
}

// ClampValue clamps a value between min and max.
func ClampValue(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// MidiVelocityToFloat converts a MIDI velocity (0-127) to a float (0.0-1.0).
func MidiVelocityToFloat(velocity int) float64 {
	return float64(velocity) / 127.0
}

// FloatToMidiVelocity converts a float (0.0-1.0) to a MIDI velocity (0-127).
func FloatToMidiVelocity(velocity float64) int {
	return int(math.Round(ClampValue(velocity, 0.0, 1.0) * 127.0))
}

// EqualPowerPan returns the (left, right) gain multipliers for a pan value
// in 0..1 (0.5 = center) using the equal-power law.
func EqualPowerPan(pan float64) (left, right float64) {
	pan = ClampValue(pan, 0, 1)
	angle := pan * math.Pi / 2
	return math.Cos(angle), math.Sin(angle)
}

// RunningMean updates an exponential moving average with a new sample,
// using the same weighted-mean formulation gonum/stat uses for its
// Mean functions, applied incrementally for the per-block CPU-usage EMA.
func RunningMean(prevEMA, sample, alpha float64) float64 {
	weights := []float64{1 - alpha, alpha}
	values := []float64{prevEMA, sample}
	return stat.Mean(values, weights)
}
