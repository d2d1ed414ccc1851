package radio

import (
	"context"
	"math"
	"math/cmplx"
	"math/rand"
	"sync"
	"time"
)

// Tap is one propagation path of the simulated channel: a sample delay and a
// complex-free linear gain.
type Tap struct {
	Delay int
	Gain  float64
}

// LoopbackConfig describes the synthetic channel between the simulated
// transmitter and receiver.
type LoopbackConfig struct {
	BlockLen int     // samples per channel per block
	Channels int     // logical receive channels (1 or 2)
	Taps     []Tap   // multipath profile applied to transmitted frames
	NoiseStd float64 // AWGN standard deviation per I/Q rail
	Gain     float64 // overall channel gain, 1.0 when zero

	// ArrivalPhase is the inter-element phase (radians) applied to channel 1,
	// emulating a plane wave arriving off broadside at a two-element array.
	ArrivalPhase float64

	// FaultEvery, when positive, marks every Nth block with ErrorOverflow to
	// exercise the acquisition fault path.
	FaultEvery int

	Seed int64
}

// Loopback is an in-process Source/Sink pair joined by a configurable
// synthetic channel. Frames written to the Sink side reappear on the Source
// side after multipath, gain, inter-element phase and additive noise. It
// stands in for radio hardware in tests and in the simulated run mode.
type Loopback struct {
	cfg LoopbackConfig

	mu      sync.Mutex
	pending []complex128
	rng     *rand.Rand
	blocks  int
}

// NewLoopback creates a simulated radio. Zero-value config fields get
// conservative defaults: 4096-sample blocks, one channel, a single unit tap.
func NewLoopback(cfg LoopbackConfig) *Loopback {
	if cfg.BlockLen <= 0 {
		cfg.BlockLen = 4096
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if len(cfg.Taps) == 0 {
		cfg.Taps = []Tap{{Delay: 0, Gain: 1.0}}
	}
	if cfg.Gain == 0 {
		cfg.Gain = 1.0
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Loopback{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// WriteFrame pushes a frame through the multipath profile and queues the
// result for reception.
func (l *Loopback) WriteFrame(_ context.Context, samples []complex128) error {
	maxDelay := 0
	for _, tap := range l.cfg.Taps {
		if tap.Delay > maxDelay {
			maxDelay = tap.Delay
		}
	}

	faded := make([]complex128, len(samples)+maxDelay)
	for _, tap := range l.cfg.Taps {
		g := complex(tap.Gain*l.cfg.Gain, 0)
		for i, s := range samples {
			faded[i+tap.Delay] += s * g
		}
	}

	l.mu.Lock()
	l.pending = append(l.pending, faded...)
	l.mu.Unlock()
	return nil
}

// ReadBlock drains up to one block worth of queued signal, zero-filling when
// the channel is idle, and adds receiver noise. Channel 1, when configured,
// observes the same signal rotated by the arrival phase with independent
// noise.
func (l *Loopback) ReadBlock(ctx context.Context) (*Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	n := min(l.cfg.BlockLen, len(l.pending))
	signal := make([]complex128, l.cfg.BlockLen)
	copy(signal, l.pending[:n])
	l.pending = l.pending[n:]
	l.blocks++
	fault := l.cfg.FaultEvery > 0 && l.blocks%l.cfg.FaultEvery == 0
	l.mu.Unlock()

	block := &Block{
		Timestamp: time.Now(),
		Channels:  make([][]complex128, l.cfg.Channels),
	}
	if fault {
		block.Err = ErrorOverflow
	}

	rot := cmplx.Exp(complex(0, l.cfg.ArrivalPhase))
	for ch := range block.Channels {
		out := make([]complex128, l.cfg.BlockLen)
		for i, s := range signal {
			if ch > 0 {
				s *= rot
			}
			out[i] = s + l.noise()
		}
		block.Channels[ch] = out
	}
	return block, nil
}

// PendingSamples reports how many queued samples have not yet been received.
func (l *Loopback) PendingSamples() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

func (l *Loopback) noise() complex128 {
	if l.cfg.NoiseStd <= 0 {
		return 0
	}
	return complex(l.rng.NormFloat64()*l.cfg.NoiseStd, l.rng.NormFloat64()*l.cfg.NoiseStd)
}

// PadFrame surrounds a waveform with leading and trailing silence so a
// streaming receiver sees a clean rise out of the noise floor.
func PadFrame(waveform []complex128, gap int) []complex128 {
	frame := make([]complex128, gap+len(waveform)+gap)
	copy(frame[gap:], waveform)
	return frame
}

// Tone produces n samples of a constant-amplitude complex exponential at the
// given baseband frequency offset. offsetHz of zero yields a DC carrier, the
// illuminator waveform for continuous-wave radar.
func Tone(n int, amplitude, offsetHz, sampleRate float64) []complex128 {
	out := make([]complex128, n)
	for i := range out {
		ph := 2 * math.Pi * offsetHz * float64(i) / sampleRate
		out[i] = cmplx.Rect(amplitude, ph)
	}
	return out
}
