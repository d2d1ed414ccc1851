// Package doppler measures radial velocity from a continuous-wave
// illuminator: the static transmit leakage is tracked as a slowly-updated
// background spectrum and subtracted, leaving only the Doppler-shifted
// returns of moving reflectors.
package doppler

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/phaseline/phylink/internal/dsp"
)

const (
	speedOfLight = 3e8

	// DefaultFFTSize trades update rate for frequency resolution; at 200 kHz
	// sampling it resolves roughly 100 Hz per bin.
	DefaultFFTSize = 2048

	// DefaultAlpha is the background EWMA factor.
	DefaultAlpha = 0.1

	// DefaultPeakThreshold gates residual-spectrum peaks before they are
	// reported as motion.
	DefaultPeakThreshold = 5.0

	// dcNotchWidth zeroes bins around DC where the static leakage residual
	// dominates even after subtraction.
	dcNotchWidth = 4
)

// Config parameterizes a Processor.
type Config struct {
	FFTSize       int
	SampleRate    float64
	CarrierHz     float64
	Alpha         float64
	PeakThreshold float64
}

// Reading is one Doppler measurement. Velocity is positive for approaching
// reflectors. Detected is false when no residual peak cleared the threshold.
type Reading struct {
	Detected   bool
	VelocityMS float64
	ShiftHz    float64
	Peak       float64
}

// Processor holds the background spectrum between blocks. It is owned by a
// single receive loop and is not safe for concurrent use.
type Processor struct {
	cfg        Config
	win        []float64
	fft        *fourier.CmplxFFT
	background []float64
	windowed   []complex128
}

// NewProcessor creates a Doppler processor; zero config fields get defaults.
func NewProcessor(cfg Config) *Processor {
	if cfg.FFTSize <= 0 {
		cfg.FFTSize = DefaultFFTSize
	}
	if cfg.Alpha <= 0 {
		cfg.Alpha = DefaultAlpha
	}
	if cfg.PeakThreshold <= 0 {
		cfg.PeakThreshold = DefaultPeakThreshold
	}
	return &Processor{
		cfg:      cfg,
		win:      window.Blackman(cfg.FFTSize),
		fft:      fourier.NewCmplxFFT(cfg.FFTSize),
		windowed: make([]complex128, cfg.FFTSize),
	}
}

// FFTSize returns the block length the processor expects.
func (p *Processor) FFTSize() int { return p.cfg.FFTSize }

// Wavelength returns the illuminator wavelength in meters.
func (p *Processor) Wavelength() float64 {
	return speedOfLight / p.cfg.CarrierHz
}

// Process consumes exactly one FFT-size block. Blocks of any other length
// are ignored and report no detection. The first block only seeds the
// background.
func (p *Processor) Process(block []complex128) Reading {
	if len(block) != p.cfg.FFTSize {
		return Reading{}
	}

	for i, s := range block {
		p.windowed[i] = s * complex(p.win[i], 0)
	}
	spectrum := dsp.FFTShift(p.fft.Coefficients(nil, p.windowed))

	mag := make([]float64, len(spectrum))
	for i, c := range spectrum {
		mag[i] = cmplx.Abs(c)
	}

	if p.background == nil {
		p.background = mag
		return Reading{}
	}

	n := p.cfg.FFTSize
	center := n / 2
	peakIdx, peakVal := -1, 0.0
	for i := range mag {
		residual := mag[i] - p.background[i]
		p.background[i] = (1-p.cfg.Alpha)*p.background[i] + p.cfg.Alpha*mag[i]

		if i >= center-dcNotchWidth && i < center+dcNotchWidth {
			continue
		}
		if residual > peakVal {
			peakVal = residual
			peakIdx = i
		}
	}

	if peakIdx < 0 || peakVal <= p.cfg.PeakThreshold {
		return Reading{}
	}

	shift := dsp.ShiftedBinFrequency(peakIdx, n, p.cfg.SampleRate)

	// Monostatic radar: the reflection travels out and back, so the Doppler
	// shift corresponds to twice the radial velocity.
	velocity := shift * p.Wavelength() / 2

	return Reading{
		Detected:   true,
		VelocityMS: velocity,
		ShiftHz:    shift,
		Peak:       peakVal,
	}
}
