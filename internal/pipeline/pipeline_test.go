package pipeline

import (
	"testing"

	"github.com/phaseline/phylink/internal/csi"
	"github.com/phaseline/phylink/internal/dsp"
)

func probeBlock(probe []complex128, blockLen, at int) []complex128 {
	block := make([]complex128, blockLen)
	copy(block[at:], probe)
	return block
}

func TestSounder_SilentBlockRejected(t *testing.T) {
	probe := dsp.GenerateProbe(128)
	s := NewSounder(probe, 1e6)

	if frame, ok := s.Process(make([]complex128, 4096)); ok || frame != nil {
		t.Error("Silent block should not produce a frame")
	}
}

func TestSounder_ShortBlockRejected(t *testing.T) {
	probe := dsp.GenerateProbe(128)
	s := NewSounder(probe, 1e6)

	if _, ok := s.Process(make([]complex128, 64)); ok {
		t.Error("Block shorter than the probe should not produce a frame")
	}
}

func TestSounder_FullChain(t *testing.T) {
	probe := dsp.GenerateProbe(128)
	s := NewSounder(probe, 1e6)

	frame, ok := s.Process(probeBlock(probe, 4096, 500))
	if !ok {
		t.Fatal("Clean probe block should produce a frame")
	}

	if frame.Detection == nil {
		t.Fatal("Expected a detection")
	}
	if frame.Detection.PeakIndex != 500 {
		t.Errorf("Expected peak at 500, got %d", frame.Detection.PeakIndex)
	}
	if frame.Metrics == nil {
		t.Fatal("Expected channel metrics")
	}
	if len(frame.Metrics.CFRMagDB) != csi.DefaultWindowSize {
		t.Errorf("Expected %d frequency bins, got %d", csi.DefaultWindowSize, len(frame.Metrics.CFRMagDB))
	}
	if frame.Decision != nil {
		t.Error("Decision should be nil without a calibrator")
	}
}

func TestSounder_WithCalibrator(t *testing.T) {
	probe := dsp.GenerateProbe(128)
	s := NewSounder(probe, 1e6,
		WithCalibrator(csi.NewCalibrator(csi.WithCalibrationFrames(2))))

	block := probeBlock(probe, 4096, 500)

	frame, ok := s.Process(block)
	if !ok || frame.Decision == nil {
		t.Fatal("Expected a calibration decision")
	}
	if frame.Decision.State != csi.Calibrating {
		t.Errorf("First frame should be calibrating, got %s", frame.Decision.State)
	}

	frame, _ = s.Process(block)
	if frame.Decision.State != csi.Monitoring {
		t.Errorf("Second frame should complete calibration, got %s", frame.Decision.State)
	}

	// The monitored channel is identical to the baseline, so nothing should
	// trip the detector.
	frame, _ = s.Process(block)
	if frame.Decision.Detected {
		t.Errorf("Unchanged channel should not detect, score %g threshold %g",
			frame.Decision.Score, frame.Decision.Threshold)
	}
}

func TestSounder_SNRGate(t *testing.T) {
	probe := dsp.GenerateProbe(128)

	// An impossibly high lock threshold rejects even a clean detection.
	s := NewSounder(probe, 1e6, WithLockSNR(500))
	if _, ok := s.Process(probeBlock(probe, 4096, 500)); ok {
		t.Error("Detection should not clear a 500 dB lock")
	}
}
