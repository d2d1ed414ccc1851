// Package spatial implements two-element phase interferometry over a uniform
// linear array: angle-of-arrival estimation from the inter-channel phase, and
// the dual operation of synthesizing a combining weight that steers reception
// toward a commanded angle. Both directions share one geometric model, so a
// weight computed for an angle maximizes combined power for a source actually
// arriving from that angle.
package spatial

import (
	"math"
	"math/cmplx"
)

const speedOfLight = 3e8

// combineScale normalizes the two-element coherent sum back to single-element
// amplitude (1/sqrt(2)).
const combineScale = 0.7071067811865476

// Geometry is the static array configuration. Spacing beyond half a
// wavelength makes the asin inversion ambiguous (grating lobes); this is a
// deployment concern and is not enforced here. PhaseOffsetRad absorbs the
// fixed inter-channel phase of the hardware, measured once with a source at
// broadside.
type Geometry struct {
	SpacingMeters  float64
	CarrierHz      float64
	PhaseOffsetRad float64
}

// Wavelength returns the carrier wavelength in meters.
func (g Geometry) Wavelength() float64 {
	return speedOfLight / g.CarrierHz
}

// AngleEstimate is one angle-of-arrival measurement. AngleDeg is within
// [-90, 90], zero at broadside.
type AngleEstimate struct {
	AngleDeg          float64
	RawPhaseRad       float64
	CorrectedPhaseRad float64
}

// EstimateAngle measures the angle of arrival from two coherently sampled
// channels. The inter-channel phase is taken as the argument of the complex
// mean of ch1*conj(ch0) over the whole block, which assumes both channels
// observe the same quasi-stationary signal for the block duration. The asin
// argument is clamped so phase noise at extreme angles degrades to +-90
// degrees instead of a domain error.
func (g Geometry) EstimateAngle(ch0, ch1 []complex128) AngleEstimate {
	raw := CrossPhase(ch0, ch1)
	corrected := WrapPhase(raw - g.PhaseOffsetRad)

	arg := corrected * g.Wavelength() / (2 * math.Pi * g.SpacingMeters)
	arg = math.Max(-1, math.Min(1, arg))

	return AngleEstimate{
		AngleDeg:          math.Asin(arg) * 180 / math.Pi,
		RawPhaseRad:       raw,
		CorrectedPhaseRad: corrected,
	}
}

// SteeringPhase returns the inter-element phase (radians) a plane wave from
// angleDeg produces across the array, the phase the combining weight must
// undo.
func (g Geometry) SteeringPhase(angleDeg float64) float64 {
	theta := angleDeg * math.Pi / 180
	return 2 * math.Pi * g.SpacingMeters * math.Sin(theta) / g.Wavelength()
}

// Weight synthesizes the complex combining weight for the second array
// element that steers reception toward angleDeg, folding in the hardware
// phase offset. The weight has unit magnitude.
func (g Geometry) Weight(angleDeg float64) complex128 {
	return cmplx.Exp(complex(0, -(g.SteeringPhase(angleDeg) + g.PhaseOffsetRad)))
}

// CalibrateBroadside measures the raw inter-channel phase with a known
// broadside source and stores it as the session's phase offset. Returns the
// measured offset in radians.
func (g *Geometry) CalibrateBroadside(ch0, ch1 []complex128) float64 {
	g.PhaseOffsetRad = CrossPhase(ch0, ch1)
	return g.PhaseOffsetRad
}

// Combine forms the amplitude-normalized coherent sum (ch0 + ch1*w)/sqrt(2).
func Combine(ch0, ch1 []complex128, w complex128) []complex128 {
	n := min(len(ch0), len(ch1))
	out := make([]complex128, n)
	for i := 0; i < n; i++ {
		out[i] = (ch0[i] + ch1[i]*w) * complex(combineScale, 0)
	}
	return out
}

// CrossPhase returns the argument of the complex mean of ch1*conj(ch0),
// the coherently averaged phase difference between the channels.
func CrossPhase(ch0, ch1 []complex128) float64 {
	n := min(len(ch0), len(ch1))
	if n == 0 {
		return 0
	}
	var acc complex128
	for i := 0; i < n; i++ {
		acc += ch1[i] * cmplx.Conj(ch0[i])
	}
	return cmplx.Phase(acc)
}

// WrapPhase maps a phase to [-pi, pi).
func WrapPhase(phase float64) float64 {
	wrapped := math.Mod(phase+math.Pi, 2*math.Pi)
	if wrapped < 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped - math.Pi
}
