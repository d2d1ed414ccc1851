// Package radio defines the contract between the signal-processing core and
// whatever delivers complex baseband samples: a block-oriented Source for
// reception and a Sink for transmission. The core never talks to hardware
// directly; it consumes fixed-size Sample Blocks and tolerates the transient
// fault codes a streaming radio reports.
package radio

import (
	"context"
	"errors"
	"time"
)

// ErrorCode mirrors the per-block error indicator of a streaming receiver.
type ErrorCode int

const (
	ErrorNone ErrorCode = iota

	// ErrorOverflow means the receiver dropped samples because the consumer
	// fell behind. The block is discarded and streaming continues.
	ErrorOverflow

	// ErrorTimeout means no samples arrived within the receive timeout.
	ErrorTimeout

	ErrorOther
)

func (e ErrorCode) String() string {
	switch e {
	case ErrorNone:
		return "none"
	case ErrorOverflow:
		return "overflow"
	case ErrorTimeout:
		return "timeout"
	default:
		return "other"
	}
}

// ErrMalformedBlock is returned when a Source hands the core a block that
// violates the contract (wrong channel count or mismatched channel lengths).
// This is a programming or configuration error, not a transient fault.
var ErrMalformedBlock = errors.New("malformed sample block")

// Block is one acquisition worth of complex baseband samples, one slice per
// logical channel. All channels are sampled coherently and have equal length.
// A Block is owned by the caller for the duration of one processing call.
type Block struct {
	Timestamp time.Time
	Channels  [][]complex128
	Err       ErrorCode
}

// Validate checks the structural contract: at least one channel, and every
// channel the same length.
func (b *Block) Validate(wantChannels int) error {
	if len(b.Channels) != wantChannels {
		return ErrMalformedBlock
	}
	n := len(b.Channels[0])
	for _, ch := range b.Channels[1:] {
		if len(ch) != n {
			return ErrMalformedBlock
		}
	}
	return nil
}

// Len returns the per-channel sample count.
func (b *Block) Len() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Source delivers sample blocks from a receiver. ReadBlock blocks until a
// block is available or ctx is done. A returned Block may carry a non-none
// ErrorCode; the caller is expected to skip such blocks.
type Source interface {
	ReadBlock(ctx context.Context) (*Block, error)
}

// Sink accepts a complex sample sequence for transmission. The transmission
// cadence (periodic resend, continuous stream) is the caller's concern.
type Sink interface {
	WriteFrame(ctx context.Context, samples []complex128) error
}
