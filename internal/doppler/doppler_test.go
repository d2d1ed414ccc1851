package doppler

import (
	"math"
	"math/cmplx"
	"testing"
)

const (
	testFFTSize = 256
	testRate    = 25600.0 // 100 Hz per bin
	testCarrier = 3e8     // 1 m wavelength
)

func carrierBlock(n int) []complex128 {
	block := make([]complex128, n)
	for i := range block {
		block[i] = complex(1, 0)
	}
	return block
}

func addTone(block []complex128, amplitude, hz float64) {
	for i := range block {
		block[i] += cmplx.Rect(amplitude, 2*math.Pi*hz*float64(i)/testRate)
	}
}

func newTestProcessor() *Processor {
	return NewProcessor(Config{
		FFTSize:    testFFTSize,
		SampleRate: testRate,
		CarrierHz:  testCarrier,
	})
}

func TestProcessor_FirstBlockSeedsBackground(t *testing.T) {
	p := newTestProcessor()

	if r := p.Process(carrierBlock(testFFTSize)); r.Detected {
		t.Error("First block only seeds the background, must not detect")
	}
}

func TestProcessor_DetectsShiftedReturn(t *testing.T) {
	p := newTestProcessor()
	p.Process(carrierBlock(testFFTSize))

	// A reflector approaching fast enough to shift the return by 1 kHz.
	block := carrierBlock(testFFTSize)
	addTone(block, 2.0, 1000)

	r := p.Process(block)
	if !r.Detected {
		t.Fatal("Expected a detection for the new spectral line")
	}
	if math.Abs(r.ShiftHz-1000) > 1e-6 {
		t.Errorf("Expected 1000 Hz shift, got %f Hz", r.ShiftHz)
	}

	// v = shift * lambda / 2 for a monostatic geometry.
	if want := 1000 * 1.0 / 2; math.Abs(r.VelocityMS-want) > 1e-6 {
		t.Errorf("Expected %f m/s, got %f m/s", want, r.VelocityMS)
	}
}

func TestProcessor_RecedingTarget(t *testing.T) {
	p := newTestProcessor()
	p.Process(carrierBlock(testFFTSize))

	block := carrierBlock(testFFTSize)
	addTone(block, 2.0, -2000)

	r := p.Process(block)
	if !r.Detected {
		t.Fatal("Expected a detection")
	}
	if r.VelocityMS >= 0 {
		t.Errorf("Receding target should have negative velocity, got %f m/s", r.VelocityMS)
	}
}

func TestProcessor_StaticSceneQuiet(t *testing.T) {
	p := newTestProcessor()

	// The same static scene repeatedly: everything lands in the background.
	block := carrierBlock(testFFTSize)
	p.Process(block)
	for i := 0; i < 5; i++ {
		if r := p.Process(block); r.Detected {
			t.Fatalf("Static scene must not detect, got %f m/s at pass %d", r.VelocityMS, i)
		}
	}
}

func TestProcessor_WrongBlockLength(t *testing.T) {
	p := newTestProcessor()

	if r := p.Process(make([]complex128, testFFTSize/2)); r.Detected {
		t.Error("Wrong-size block should be ignored")
	}
}
