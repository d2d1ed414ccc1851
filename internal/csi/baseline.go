package csi

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultCalibrationFrames is the number of qualifying frames averaged
	// into the baseline before monitoring begins.
	DefaultCalibrationFrames = 40

	// DefaultSigmaMultiplier and the threshold clamp bound the adaptive
	// decision threshold derived from calibration-time noise statistics.
	DefaultSigmaMultiplier  = 2.0
	DefaultThresholdCeiling = 6.0
	thresholdFloor          = 1.0
)

// State is the calibrator's phase. The transition Calibrating -> Monitoring
// happens once per session and is irreversible; re-calibration requires a new
// Calibrator.
type State int

const (
	Calibrating State = iota
	Monitoring
)

func (s State) String() string {
	if s == Monitoring {
		return "monitoring"
	}
	return "calibrating"
}

// Decision is the outcome of feeding one frequency-response frame to the
// calibrator.
type Decision struct {
	State           State
	FramesCollected int
	Score           float64
	Threshold       float64
	Detected        bool
}

// WithCalibrationFrames sets how many frames build the baseline.
func WithCalibrationFrames(n int) func(*Calibrator) {
	return func(c *Calibrator) {
		if n > 0 {
			c.framesWanted = n
		}
	}
}

// WithSigmaMultiplier sets k in the adaptive threshold mean + k*stddev.
func WithSigmaMultiplier(k float64) func(*Calibrator) {
	return func(c *Calibrator) {
		c.sigmaK = k
	}
}

// WithThresholdCeiling caps the adaptive threshold.
func WithThresholdCeiling(max float64) func(*Calibrator) {
	return func(c *Calibrator) {
		if max > 0 {
			c.ceiling = max
		}
	}
}

// WithFixedThreshold disables the adaptive threshold in favor of a constant,
// matching the deployments that prefer a hand-tuned decision level.
func WithFixedThreshold(threshold float64) func(*Calibrator) {
	return func(c *Calibrator) {
		c.fixed = threshold
		c.adaptive = false
	}
}

// Calibrator accumulates frequency-response-magnitude frames into an
// immutable baseline, derives a decision threshold, and then scores every
// subsequent frame against the baseline. It holds session-lifetime state and
// must be owned by a single consumer; it is not safe for concurrent use.
type Calibrator struct {
	framesWanted int
	sigmaK       float64
	ceiling      float64
	fixed        float64
	adaptive     bool

	state     State
	frames    [][]float64
	baseline  []float64
	threshold float64
}

// NewCalibrator creates a calibrator in the Calibrating state using the
// adaptive threshold unless WithFixedThreshold overrides it.
func NewCalibrator(options ...func(*Calibrator)) *Calibrator {
	c := Calibrator{
		framesWanted: DefaultCalibrationFrames,
		sigmaK:       DefaultSigmaMultiplier,
		ceiling:      DefaultThresholdCeiling,
		adaptive:     true,
	}

	for _, option := range options {
		option(&c)
	}

	return &c
}

// State returns the current phase.
func (c *Calibrator) State() State { return c.state }

// Baseline returns the finalized baseline, nil while calibrating.
func (c *Calibrator) Baseline() []float64 { return c.baseline }

// Threshold returns the active decision threshold, zero while calibrating.
func (c *Calibrator) Threshold() float64 { return c.threshold }

// Process feeds one qualifying frequency-response-dB frame. While
// calibrating it accumulates; on the final calibration frame it freezes the
// baseline and threshold and switches to monitoring. While monitoring it
// scores the frame against the baseline: score = mean |frame - baseline|.
func (c *Calibrator) Process(cfrDB []float64) Decision {
	if c.state == Calibrating {
		frame := make([]float64, len(cfrDB))
		copy(frame, cfrDB)
		c.frames = append(c.frames, frame)

		collected := len(c.frames)
		if collected >= c.framesWanted {
			c.finalize()
		}

		return Decision{
			State:           c.state,
			FramesCollected: collected,
			Threshold:       c.threshold,
		}
	}

	score := meanAbsDeviation(cfrDB, c.baseline)
	return Decision{
		State:           Monitoring,
		FramesCollected: c.framesWanted,
		Score:           score,
		Threshold:       c.threshold,
		Detected:        score > c.threshold,
	}
}

func (c *Calibrator) finalize() {
	n := len(c.frames[0])
	c.baseline = make([]float64, n)
	for _, frame := range c.frames {
		for i, v := range frame {
			c.baseline[i] += v
		}
	}
	for i := range c.baseline {
		c.baseline[i] /= float64(len(c.frames))
	}

	if c.adaptive {
		deviations := make([]float64, len(c.frames))
		for i, frame := range c.frames {
			deviations[i] = meanAbsDeviation(frame, c.baseline)
		}
		mean, std := stat.MeanStdDev(deviations, nil)
		if math.IsNaN(std) {
			std = 0
		}
		c.threshold = clamp(mean+c.sigmaK*std, thresholdFloor, c.ceiling)
	} else {
		c.threshold = c.fixed
	}

	c.frames = nil
	c.state = Monitoring
}

func meanAbsDeviation(frame, baseline []float64) float64 {
	n := min(len(frame), len(baseline))
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(frame[i] - baseline[i])
	}
	return sum / float64(n)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
