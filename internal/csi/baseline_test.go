package csi

import (
	"testing"
)

func flatFrame(value float64, n int) []float64 {
	frame := make([]float64, n)
	for i := range frame {
		frame[i] = value
	}
	return frame
}

func TestCalibrator_StateMachine(t *testing.T) {
	c := NewCalibrator(WithCalibrationFrames(5))

	for i := 1; i <= 4; i++ {
		d := c.Process(flatFrame(0, 64))
		if d.State != Calibrating {
			t.Fatalf("Frame %d: expected calibrating, got %s", i, d.State)
		}
		if d.FramesCollected != i {
			t.Errorf("Frame %d: expected %d frames collected, got %d", i, i, d.FramesCollected)
		}
	}

	d := c.Process(flatFrame(0, 64))
	if d.State != Monitoring {
		t.Fatalf("Final calibration frame should transition to monitoring, got %s", d.State)
	}
	if d.FramesCollected != 5 {
		t.Errorf("Expected 5 frames collected at transition, got %d", d.FramesCollected)
	}
	if c.State() != Monitoring {
		t.Errorf("Calibrator should report monitoring, got %s", c.State())
	}
	if c.Baseline() == nil {
		t.Error("Baseline should be frozen after calibration")
	}
}

func TestCalibrator_AdaptiveThresholdFloor(t *testing.T) {
	c := NewCalibrator(WithCalibrationFrames(3))

	// Identical frames: zero deviation, threshold clamps to its floor.
	for i := 0; i < 3; i++ {
		c.Process(flatFrame(-20, 64))
	}
	if got := c.Threshold(); got != thresholdFloor {
		t.Errorf("Expected threshold floor %g, got %g", thresholdFloor, got)
	}

	nominal := c.Process(flatFrame(-19.5, 64))
	if nominal.Detected {
		t.Errorf("Score %g under threshold %g should not detect", nominal.Score, nominal.Threshold)
	}

	anomaly := c.Process(flatFrame(-15, 64))
	if !anomaly.Detected {
		t.Errorf("Score %g over threshold %g should detect", anomaly.Score, anomaly.Threshold)
	}
	if want := 5.0; anomaly.Score != want {
		t.Errorf("Expected mean absolute deviation %g, got %g", want, anomaly.Score)
	}
}

func TestCalibrator_AdaptiveThresholdCeiling(t *testing.T) {
	c := NewCalibrator(WithCalibrationFrames(2))

	// Wildly different calibration frames drive the adaptive threshold far
	// above the ceiling.
	c.Process(flatFrame(0, 64))
	c.Process(flatFrame(100, 64))

	if got := c.Threshold(); got != DefaultThresholdCeiling {
		t.Errorf("Expected threshold ceiling %g, got %g", DefaultThresholdCeiling, got)
	}
}

func TestCalibrator_FixedThreshold(t *testing.T) {
	c := NewCalibrator(WithCalibrationFrames(1), WithFixedThreshold(2.5))

	c.Process(flatFrame(0, 64))
	if got := c.Threshold(); got != 2.5 {
		t.Fatalf("Expected fixed threshold 2.5, got %g", got)
	}

	if d := c.Process(flatFrame(2, 64)); d.Detected {
		t.Errorf("Score %g under fixed threshold should not detect", d.Score)
	}
	if d := c.Process(flatFrame(3, 64)); !d.Detected {
		t.Errorf("Score %g over fixed threshold should detect", d.Score)
	}
}
