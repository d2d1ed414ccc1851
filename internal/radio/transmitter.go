package radio

import (
	"context"
	"io"
	"log/slog"
	"time"
)

const defaultInterval = 500 * time.Millisecond

// WithTransmitLogger sets the logger for the transmitter.
func WithTransmitLogger(logger *slog.Logger) func(*PeriodicTransmitter) {
	return func(t *PeriodicTransmitter) {
		t.logger = logger
	}
}

// WithInterval sets the resend cadence.
func WithInterval(interval time.Duration) func(*PeriodicTransmitter) {
	return func(t *PeriodicTransmitter) {
		if interval > 0 {
			t.interval = interval
		}
	}
}

// PeriodicTransmitter resends a fixed frame on an interval until its context
// ends. It is the transmit half of the sounding and modem applications: the
// receive loop runs independently and the two only meet at the radio.
type PeriodicTransmitter struct {
	sink     Sink
	frame    []complex128
	interval time.Duration
	logger   *slog.Logger
}

// NewPeriodicTransmitter creates a transmitter with a discard logger.
func NewPeriodicTransmitter(sink Sink, frame []complex128, options ...func(*PeriodicTransmitter)) *PeriodicTransmitter {
	t := PeriodicTransmitter{
		sink:     sink,
		frame:    frame,
		interval: defaultInterval,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&t)
	}

	return &t
}

// Run sends the frame immediately and then on every tick until ctx is done.
// Write errors are logged and the next tick is attempted anyway: a failed
// transmission costs one sounding cycle, nothing more.
func (t *PeriodicTransmitter) Run(ctx context.Context) {
	t.logger.Info("periodic transmitter active",
		slog.Int("frameSamples", len(t.frame)),
		slog.Duration("interval", t.interval))

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		if err := t.sink.WriteFrame(ctx, t.frame); err != nil {
			t.logger.Warn("transmit failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			t.logger.Info("periodic transmitter stopped")
			return
		case <-ticker.C:
		}
	}
}
