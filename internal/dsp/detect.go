package dsp

import (
	"errors"
	"math"
	"math/cmplx"
)

const (
	// noiseGuard excludes the correlation peak's skirt from the noise-floor
	// estimate; minNoiseRegion is the closest the peak may sit to the block
	// start before the estimate falls back to a fixed floor.
	noiseGuard     = 10
	minNoiseRegion = 20

	fallbackNoiseFloor = 1e-9
	snrEpsilon         = 1e-12
)

// ErrShortBlock is returned when the received block is shorter than the probe
// and no fully-overlapping correlation lag exists.
var ErrShortBlock = errors.New("received block shorter than probe")

// Detection is the outcome of matched-filtering one block against the probe.
type Detection struct {
	PeakIndex   int
	PeakValue   float64
	SNRdB       float64
	NoiseFloor  float64
	Correlation []complex128
	Magnitude   []float64
}

// Qualifies reports whether the detection clears the SNR lock threshold used
// by every downstream consumer.
func (d *Detection) Qualifies(lockSNRdB float64) bool {
	return d.SNRdB > lockSNRdB
}

// Detect cross-correlates block with probe over fully-overlapping lags only,
// so the output has length len(block)-len(probe)+1 and the peak index is a
// sample-accurate alignment within the block. The noise floor is the mean
// correlation magnitude well before the peak; a peak too close to the block
// start falls back to a fixed floor rather than dividing by zero.
func Detect(block, probe []complex128) (*Detection, error) {
	if len(probe) == 0 || len(block) < len(probe) {
		return nil, ErrShortBlock
	}

	corr := correlateValid(block, probe)
	mag := make([]float64, len(corr))

	peakIdx := 0
	peakVal := 0.0
	for i, c := range corr {
		m := cmplx.Abs(c)
		mag[i] = m
		if m > peakVal {
			peakVal = m
			peakIdx = i
		}
	}

	noiseFloor := fallbackNoiseFloor
	if peakIdx > minNoiseRegion {
		region := mag[:peakIdx-noiseGuard]
		var sum float64
		for _, m := range region {
			sum += m
		}
		noiseFloor = sum / float64(len(region))
	}

	return &Detection{
		PeakIndex:   peakIdx,
		PeakValue:   peakVal,
		SNRdB:       10 * math.Log10(peakVal/(noiseFloor+snrEpsilon)),
		NoiseFloor:  noiseFloor,
		Correlation: corr,
		Magnitude:   mag,
	}, nil
}

// correlateValid computes corr[k] = sum_i block[k+i] * conj(probe[i]) for
// every lag k where the probe fits entirely inside the block.
func correlateValid(block, probe []complex128) []complex128 {
	n := len(block) - len(probe) + 1
	corr := make([]complex128, n)
	for k := 0; k < n; k++ {
		var acc complex128
		for i, p := range probe {
			acc += block[k+i] * cmplx.Conj(p)
		}
		corr[k] = acc
	}
	return corr
}

// PeakMagnitude returns the largest sample magnitude in the block. It is the
// cheap energy gate applied before the matched filter runs.
func PeakMagnitude(block []complex128) float64 {
	peak := 0.0
	for _, s := range block {
		if m := cmplx.Abs(s); m > peak {
			peak = m
		}
	}
	return peak
}

// MeanPower returns the average |x|^2 over the block, the squelch measure
// used by the two-channel consumers.
func MeanPower(block []complex128) float64 {
	if len(block) == 0 {
		return 0
	}
	var sum float64
	for _, s := range block {
		re, im := real(s), imag(s)
		sum += re*re + im*im
	}
	return sum / float64(len(block))
}
