// Package csi derives channel-state information from the matched-filter
// correlation output: power-delay profile, RMS delay spread, coherence
// bandwidth and the complex frequency response, plus the baseline-calibrated
// anomaly scoring built on top of them.
package csi

import (
	"math"
	"math/cmplx"

	"github.com/phaseline/phylink/internal/dsp"
)

const (
	// DefaultPreCursor and DefaultWindowSize shape the impulse-response slice
	// taken around a detection peak: a small margin ahead of the first path
	// plus enough tail to capture multipath echoes.
	DefaultPreCursor  = 10
	DefaultWindowSize = 64

	// validTapRatio gates power-delay-profile taps at 10% of the strongest
	// tap, suppressing noise-only delay bins.
	validTapRatio = 0.1

	// minWindowEnergy rejects windows whose FFT would be dominated by
	// numerical noise.
	minWindowEnergy = 1e-6

	logEpsilon    = 1e-12
	spreadEpsilon = 1e-12
)

// Metrics is the channel characterization derived from one impulse-response
// window. RMSDelaySpread is in seconds, CoherenceBandwidth in Hz.
type Metrics struct {
	RMSDelaySpread     float64
	CoherenceBandwidth float64
	PDP                []float64
	CFR                []complex128
	CFRMagDB           []float64
	CFRMagLinear       []float64
}

// ExtractWindow copies a fixed-length slice of the correlation sequence
// centered a pre-cursor margin before the peak, zero-padding where the window
// extends past either end of the sequence.
func ExtractWindow(correlation []complex128, peakIdx, preCursor, size int) []complex128 {
	window := make([]complex128, size)

	start := peakIdx - preCursor
	srcStart := max(0, start)
	srcEnd := min(len(correlation), start+size)
	if srcEnd > srcStart {
		copy(window[srcStart-start:], correlation[srcStart:srcEnd])
	}
	return window
}

// WindowEnergy sums the sample magnitudes of a window. Callers reject windows
// below HasEnergy's floor before computing metrics.
func WindowEnergy(window []complex128) float64 {
	var sum float64
	for _, s := range window {
		sum += cmplx.Abs(s)
	}
	return sum
}

// HasEnergy reports whether the window carries enough signal for its
// frequency response to be meaningful.
func HasEnergy(window []complex128) bool {
	return WindowEnergy(window) >= minWindowEnergy
}

// ComputeMetrics turns an impulse-response window into channel metrics.
//
// Taps below 10% of the strongest tap are discarded. With fewer than two
// surviving taps the channel is treated as flat: zero delay spread and a
// coherence bandwidth equal to the sample rate. Otherwise the delay spread is
// the power-weighted RMS deviation of tap delays about their power-weighted
// mean, and the coherence bandwidth follows the 1/(5*spread) convention.
func ComputeMetrics(window []complex128, sampleRate float64) *Metrics {
	pdp := make([]float64, len(window))
	maxTap := 0.0
	for i, s := range window {
		re, im := real(s), imag(s)
		pdp[i] = re*re + im*im
		if pdp[i] > maxTap {
			maxTap = pdp[i]
		}
	}

	threshold := maxTap * validTapRatio
	var validIdx []int
	for i, p := range pdp {
		if p > threshold {
			validIdx = append(validIdx, i)
		}
	}

	rmsDelay := 0.0
	coherenceBW := sampleRate
	if len(validIdx) >= 2 {
		first := validIdx[0]

		var totalPower, weightedDelay float64
		delays := make([]float64, len(validIdx))
		for i, idx := range validIdx {
			delays[i] = float64(idx-first) / sampleRate
			totalPower += pdp[idx]
			weightedDelay += pdp[idx] * delays[i]
		}
		meanDelay := weightedDelay / totalPower

		var weightedSq float64
		for i, idx := range validIdx {
			d := delays[i] - meanDelay
			weightedSq += pdp[idx] * d * d
		}
		rmsDelay = math.Sqrt(weightedSq / totalPower)

		if rmsDelay > spreadEpsilon {
			coherenceBW = 1.0 / (5.0 * rmsDelay)
		}
	}

	cfr := dsp.Spectrum(window)
	magLinear := make([]float64, len(cfr))
	magDB := make([]float64, len(cfr))
	for i, c := range cfr {
		magLinear[i] = cmplx.Abs(c)
		magDB[i] = 20 * math.Log10(magLinear[i]+logEpsilon)
	}

	return &Metrics{
		RMSDelaySpread:     rmsDelay,
		CoherenceBandwidth: coherenceBW,
		PDP:                pdp,
		CFR:                cfr,
		CFRMagDB:           magDB,
		CFRMagLinear:       magLinear,
	}
}
