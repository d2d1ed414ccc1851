// Package pipeline composes the stages every detection-based application
// shares: energy gate, matched filter, SNR lock, impulse-response window
// extraction, metric computation and (optionally) the baseline anomaly
// decision. Applications differ only in parameters, not in the shape of this
// chain, so the chain lives here once.
package pipeline

import (
	"github.com/phaseline/phylink/internal/csi"
	"github.com/phaseline/phylink/internal/dsp"
)

const (
	// DefaultEnergyThreshold is the minimum peak sample magnitude for a
	// block to be worth correlating at all.
	DefaultEnergyThreshold = 0.05

	// DefaultLockSNRdB is the matched-filter SNR a detection must clear
	// before its impulse response is trusted.
	DefaultLockSNRdB = 10.0
)

// Frame is the result of pushing one sample block through the chain. Stages
// that did not run (because an earlier gate rejected the block, or the
// sounder has no calibrator) leave their field nil.
type Frame struct {
	Detection *dsp.Detection
	Metrics   *csi.Metrics
	Decision  *csi.Decision
}

// WithEnergyThreshold overrides the pre-correlation energy gate.
func WithEnergyThreshold(threshold float64) func(*Sounder) {
	return func(s *Sounder) {
		s.energyThreshold = threshold
	}
}

// WithLockSNR overrides the detection SNR gate.
func WithLockSNR(snrDB float64) func(*Sounder) {
	return func(s *Sounder) {
		s.lockSNRdB = snrDB
	}
}

// WithWindow overrides the impulse-response window geometry.
func WithWindow(preCursor, size int) func(*Sounder) {
	return func(s *Sounder) {
		s.preCursor = preCursor
		s.windowSize = size
	}
}

// WithCalibrator attaches a baseline anomaly engine; its decision is then
// produced for every frame that yields metrics.
func WithCalibrator(c *csi.Calibrator) func(*Sounder) {
	return func(s *Sounder) {
		s.calibrator = c
	}
}

// Sounder is the shared gate -> detect -> extract -> decide chain. The probe
// is shared read-only; the calibrator, when present, makes the sounder
// single-consumer like the calibrator itself.
type Sounder struct {
	probe      []complex128
	sampleRate float64

	energyThreshold float64
	lockSNRdB       float64
	preCursor       int
	windowSize      int

	calibrator *csi.Calibrator
}

// NewSounder builds a sounding chain around a probe waveform.
func NewSounder(probe []complex128, sampleRate float64, options ...func(*Sounder)) *Sounder {
	s := Sounder{
		probe:           probe,
		sampleRate:      sampleRate,
		energyThreshold: DefaultEnergyThreshold,
		lockSNRdB:       DefaultLockSNRdB,
		preCursor:       csi.DefaultPreCursor,
		windowSize:      csi.DefaultWindowSize,
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Process pushes one block through the chain. The bool result reports whether
// the block qualified at least through detection; every failure mode short of
// a malformed block degrades to "no result this cycle".
func (s *Sounder) Process(block []complex128) (*Frame, bool) {
	if len(block) < len(s.probe) {
		return nil, false
	}
	if dsp.PeakMagnitude(block) <= s.energyThreshold {
		return nil, false
	}

	det, err := dsp.Detect(block, s.probe)
	if err != nil || !det.Qualifies(s.lockSNRdB) {
		return nil, false
	}

	frame := &Frame{Detection: det}

	window := csi.ExtractWindow(det.Correlation, det.PeakIndex, s.preCursor, s.windowSize)
	if !csi.HasEnergy(window) {
		// A qualifying detection with an empty window is a numerical
		// degeneracy; report the detection but nothing downstream.
		return frame, true
	}

	frame.Metrics = csi.ComputeMetrics(window, s.sampleRate)

	if s.calibrator != nil {
		decision := s.calibrator.Process(frame.Metrics.CFRMagDB)
		frame.Decision = &decision
	}
	return frame, true
}
