// Package modem implements a differential BPSK burst modem: a length-prefixed
// text payload is carried as phase flips between consecutive symbols, and the
// receiver recovers it from a timing-unknown block by scanning candidate
// symbol offsets and keeping the best-scoring decode. Differential encoding
// removes the need for an absolute phase reference; the offset scan removes
// the need for a timing-recovery loop.
package modem

import (
	"math"
	"math/cmplx"
)

const (
	// DefaultSPS is how many samples represent one symbol.
	DefaultSPS = 100

	// DefaultOffsetStep is the stride of the blind timing scan across one
	// symbol period.
	DefaultOffsetStep = 10

	// DefaultMaxMessageLen bounds the decoded length byte; larger values are
	// treated as a false sync.
	DefaultMaxMessageLen = 100

	// preambleSymbols constant-phase symbols open every frame, followed by
	// one phase-flipped sync symbol that marks the start of data.
	preambleSymbols = 50

	// preambleCheckBits of the decoded stream are inspected for the all-zero
	// preamble pattern; at least preambleZerosNeeded must be zero for the
	// offset to be considered time-aligned.
	preambleCheckBits   = 48
	preambleZerosNeeded = 40

	// The sync flip is searched within decoded bits [syncSearchStart,
	// syncSearchEnd).
	syncSearchStart = 45
	syncSearchEnd   = 60

	// minSymbols is the fewest downsampled symbols worth demodulating:
	// preamble, sync and at least the length byte.
	minSymbols = 60

	txAmplitude = 0.7
)

// WithSPS sets the samples-per-symbol of both directions.
func WithSPS(sps int) func(*Modem) {
	return func(m *Modem) {
		if sps > 0 {
			m.sps = sps
		}
	}
}

// WithOffsetStep sets the timing-scan stride.
func WithOffsetStep(step int) func(*Modem) {
	return func(m *Modem) {
		if step > 0 {
			m.offsetStep = step
		}
	}
}

// WithMaxMessageLen sets the length-byte sanity bound.
func WithMaxMessageLen(n int) func(*Modem) {
	return func(m *Modem) {
		if n > 0 {
			m.maxMessageLen = n
		}
	}
}

// Modem holds the static modulation parameters. It is stateless across
// blocks and safe to share between a transmitter and a receiver.
type Modem struct {
	sps           int
	offsetStep    int
	maxMessageLen int
}

// NewModem creates a modem with the default burst format.
func NewModem(options ...func(*Modem)) *Modem {
	m := Modem{
		sps:           DefaultSPS,
		offsetStep:    DefaultOffsetStep,
		maxMessageLen: DefaultMaxMessageLen,
	}

	for _, option := range options {
		option(&m)
	}

	return &m
}

// SPS returns the configured samples per symbol.
func (m *Modem) SPS() int { return m.sps }

// Modulate encodes text as a differential BPSK burst: a constant-phase
// preamble, one sync flip, then one symbol per payload bit where a set bit
// flips the phase by pi. The payload is one length byte followed by the text
// bytes, all MSB-first. Each symbol is replicated sps times and the waveform
// is scaled below full amplitude. Text longer than the length-byte range is
// truncated to 255 bytes.
func (m *Modem) Modulate(text string) []complex128 {
	if len(text) > 255 {
		text = text[:255]
	}
	payload := append([]byte{byte(len(text))}, text...)
	bits := textToBits(string(payload))

	symbols := make([]complex128, 0, preambleSymbols+1+len(bits))
	phase := 0.0
	for i := 0; i < preambleSymbols; i++ {
		symbols = append(symbols, cmplx.Rect(1, phase))
	}

	phase += math.Pi
	symbols = append(symbols, cmplx.Rect(1, phase))

	for _, bit := range bits {
		if bit == 1 {
			phase += math.Pi
		}
		symbols = append(symbols, cmplx.Rect(1, phase))
	}

	waveform := make([]complex128, 0, len(symbols)*m.sps)
	for _, s := range symbols {
		s *= complex(txAmplitude, 0)
		for i := 0; i < m.sps; i++ {
			waveform = append(waveform, s)
		}
	}
	return waveform
}

// Demodulate recovers the text payload from a received block whose symbol
// timing is unknown. Every candidate offset across one symbol period is
// tried; offsets that fail the preamble-zero gate, the sync search or the
// length sanity check are rejected, and among the survivors the longest
// printable decode wins. False syncs tend to produce short garbage, which the
// best-score policy discards. Returns the empty string when no offset yields
// a valid frame.
func (m *Modem) Demodulate(block []complex128) string {
	bestText := ""
	bestScore := -1

	for offset := 0; offset < m.sps; offset += m.offsetStep {
		text, ok := m.demodulateAt(block, offset)
		if ok && len(text) > bestScore {
			bestScore = len(text)
			bestText = text
		}
	}
	return bestText
}

func (m *Modem) demodulateAt(block []complex128, offset int) (string, bool) {
	symbols := downsample(block, offset, m.sps)
	if len(symbols) < minSymbols {
		return "", false
	}

	bits := make([]int, len(symbols)-1)
	for i := range bits {
		diff := symbols[i+1] * cmplx.Conj(symbols[i])
		if math.Abs(cmplx.Phase(diff)) > math.Pi/2 {
			bits[i] = 1
		}
	}

	zeros := 0
	for _, b := range bits[:preambleCheckBits] {
		if b == 0 {
			zeros++
		}
	}
	if zeros < preambleZerosNeeded {
		return "", false
	}

	dataStart := -1
	for i := syncSearchStart; i < min(syncSearchEnd, len(bits)); i++ {
		if bits[i] == 1 {
			dataStart = i + 1
			break
		}
	}
	if dataStart < 0 {
		return "", false
	}

	if dataStart+8 > len(bits) {
		return "", false
	}
	msgLen := 0
	for _, b := range bits[dataStart : dataStart+8] {
		msgLen = msgLen<<1 | b
	}
	if msgLen == 0 || msgLen > m.maxMessageLen {
		return "", false
	}

	payloadStart := dataStart + 8
	payloadEnd := payloadStart + msgLen*8
	if payloadEnd > len(bits) {
		return "", false
	}

	return filterPrintable(bitsToBytes(bits[payloadStart:payloadEnd])), true
}

func downsample(block []complex128, offset, stride int) []complex128 {
	if offset >= len(block) {
		return nil
	}
	out := make([]complex128, 0, (len(block)-offset+stride-1)/stride)
	for i := offset; i < len(block); i += stride {
		out = append(out, block[i])
	}
	return out
}
