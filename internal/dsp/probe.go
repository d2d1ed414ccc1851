// Package dsp holds the sample-domain primitives shared by every receiver in
// the repository: the chirp probe, the matched-filter detector and a centered
// FFT. Everything here is a pure function over one block of samples.
package dsp

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/window"
)

// probeAmplitude keeps the probe below full scale so that summing it with
// padding or a second channel cannot clip the DAC.
const probeAmplitude = 0.7

// GenerateProbe returns the reference waveform used by every detector: a
// linear-frequency-modulated chirp of unit chirp rate, Hann-tapered and scaled
// to probeAmplitude. Sample t carries phase pi*t^2/length.
//
// The function is deterministic; generate the probe once at startup and share
// it read-only, since transmit and receive must correlate against the
// identical sequence.
func GenerateProbe(length int) []complex128 {
	if length <= 0 {
		return nil
	}

	win := window.Hann(length)
	probe := make([]complex128, length)
	for t := 0; t < length; t++ {
		phase := math.Pi * float64(t) * float64(t) / float64(length)
		probe[t] = cmplx.Rect(probeAmplitude*win[t], phase)
	}
	return probe
}
