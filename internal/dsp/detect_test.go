package dsp

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func probeInBlock(probe []complex128, blockLen, at int, noiseStd float64, seed int64) []complex128 {
	block := make([]complex128, blockLen)
	copy(block[at:], probe)

	if noiseStd > 0 {
		rng := rand.New(rand.NewSource(seed))
		for i := range block {
			block[i] += complex(rng.NormFloat64()*noiseStd, rng.NormFloat64()*noiseStd)
		}
	}
	return block
}

func TestDetect_PeakAlignment(t *testing.T) {
	probe := GenerateProbe(128)
	block := probeInBlock(probe, 2048, 600, 0, 0)

	det, err := Detect(block, probe)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if det.PeakIndex != 600 {
		t.Errorf("Expected peak at lag 600, got %d", det.PeakIndex)
	}
	if wantLen := 2048 - 128 + 1; len(det.Correlation) != wantLen {
		t.Errorf("Expected %d correlation lags, got %d", wantLen, len(det.Correlation))
	}
	if !det.Qualifies(10) {
		t.Errorf("Clean detection should clear a 10 dB lock, got %.1f dB", det.SNRdB)
	}
}

func TestDetect_ShortBlock(t *testing.T) {
	probe := GenerateProbe(128)

	if _, err := Detect(make([]complex128, 64), probe); !errors.Is(err, ErrShortBlock) {
		t.Errorf("Expected ErrShortBlock, got %v", err)
	}
	if _, err := Detect(make([]complex128, 64), nil); !errors.Is(err, ErrShortBlock) {
		t.Errorf("Expected ErrShortBlock for empty probe, got %v", err)
	}
}

func TestDetect_NoiseDegradesSNR(t *testing.T) {
	probe := GenerateProbe(128)

	// Noise levels roughly 10 dB apart; the reported SNR must fall strictly
	// as injected noise power rises.
	stds := []float64{0.003, 0.01, 0.03, 0.1, 0.3}

	prev := math.Inf(1)
	for i, std := range stds {
		det, err := Detect(probeInBlock(probe, 2048, 600, std, 42), probe)
		if err != nil {
			t.Fatalf("Detect failed at noise level %g: %v", std, err)
		}

		t.Logf("Noise std %g: SNR %.1f dB", std, det.SNRdB)
		if det.SNRdB >= prev {
			t.Errorf("SNR did not decrease at level %d: %.1f dB after %.1f dB", i, det.SNRdB, prev)
		}
		prev = det.SNRdB
	}
}

func TestDetect_EarlyPeakFallbackFloor(t *testing.T) {
	probe := GenerateProbe(128)
	block := probeInBlock(probe, 512, 5, 0, 0)

	det, err := Detect(block, probe)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if det.NoiseFloor != fallbackNoiseFloor {
		t.Errorf("Peak at lag %d should use the fallback floor, got %g", det.PeakIndex, det.NoiseFloor)
	}
}

func TestPeakMagnitude(t *testing.T) {
	block := []complex128{0, complex(0, -3), complex(2, 0)}
	if got := PeakMagnitude(block); got != 3 {
		t.Errorf("Expected peak magnitude 3, got %f", got)
	}
	if got := PeakMagnitude(nil); got != 0 {
		t.Errorf("Expected 0 for empty block, got %f", got)
	}
}

func TestMeanPower(t *testing.T) {
	block := []complex128{complex(1, 0), complex(0, 1), complex(1, 1), 0}
	if got, want := MeanPower(block), 1.0; got != want {
		t.Errorf("Expected mean power %f, got %f", want, got)
	}
	if got := MeanPower(nil); got != 0 {
		t.Errorf("Expected 0 for empty block, got %f", got)
	}
}
