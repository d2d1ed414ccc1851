package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/phaseline/phylink/internal/csi"
	"github.com/phaseline/phylink/internal/doppler"
	"github.com/phaseline/phylink/internal/dsp"
	"github.com/phaseline/phylink/internal/modem"
	"github.com/phaseline/phylink/internal/pipeline"
	"github.com/phaseline/phylink/internal/radio"
	"github.com/phaseline/phylink/internal/render"
	"github.com/phaseline/phylink/internal/spatial"
	"github.com/phaseline/phylink/internal/storage"
)

// WithStore attaches persistence; every frame result is written under the
// given session.
func WithStore(store *storage.Store, sessionID int64) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.store = store
		o.sessionID = sessionID
	}
}

// Orchestrator wires the transmit and receive halves of one application mode
// around a shared radio. The transmitter runs on its own goroutine; the
// receive loop owns all per-mode state, so the mode handlers need no locking.
type Orchestrator struct {
	config *Config
	source radio.Source
	sink   radio.Sink
	logger *slog.Logger

	store     *storage.Store
	sessionID int64

	probe    []complex128
	sounder  *pipeline.Sounder
	geometry spatial.Geometry
	modem    *modem.Modem
	doppler  *doppler.Processor

	// beam mode measures its broadside phase offset from the first
	// qualifying block before sweeping.
	beamCalibrated bool

	wg sync.WaitGroup
}

// NewOrchestrator builds the processing chain for the configured mode.
func NewOrchestrator(config *Config, source radio.Source, sink radio.Sink, logger *slog.Logger, options ...func(*Orchestrator)) *Orchestrator {
	o := Orchestrator{
		config: config,
		source: source,
		sink:   sink,
		logger: logger,
		probe:  dsp.GenerateProbe(config.Probe.Length),
	}

	for _, option := range options {
		option(&o)
	}

	sounderOptions := []func(*pipeline.Sounder){
		pipeline.WithEnergyThreshold(config.Detection.EnergyThreshold),
		pipeline.WithLockSNR(config.Detection.LockSNRdB),
		pipeline.WithWindow(config.Detection.PreCursor, config.Detection.WindowSize),
	}
	if config.Mode == ModeDetect {
		calibratorOptions := []func(*csi.Calibrator){
			csi.WithCalibrationFrames(config.Calibration.Frames),
			csi.WithSigmaMultiplier(config.Calibration.SigmaMultiplier),
			csi.WithThresholdCeiling(config.Calibration.MaxThreshold),
		}
		if config.Calibration.FixedThreshold > 0 {
			calibratorOptions = append(calibratorOptions, csi.WithFixedThreshold(config.Calibration.FixedThreshold))
		}
		sounderOptions = append(sounderOptions, pipeline.WithCalibrator(csi.NewCalibrator(calibratorOptions...)))
	}
	o.sounder = pipeline.NewSounder(o.probe, config.Radio.SampleRate, sounderOptions...)

	switch config.Mode {
	case ModeDoA, ModeBeam:
		o.geometry = spatial.Geometry{
			SpacingMeters:  config.Array.SpacingMeters,
			CarrierHz:      config.Radio.CarrierHz,
			PhaseOffsetRad: config.Array.PhaseOffsetRad,
		}

	case ModeModem:
		o.modem = modem.NewModem(
			modem.WithSPS(config.Modem.SPS),
			modem.WithMaxMessageLen(config.Modem.MaxMessageLen),
		)

	case ModeDoppler:
		o.doppler = doppler.NewProcessor(doppler.Config{
			FFTSize:       config.Doppler.FFTSize,
			SampleRate:    config.Radio.SampleRate,
			CarrierHz:     config.Radio.CarrierHz,
			Alpha:         config.Doppler.Alpha,
			PeakThreshold: config.Doppler.PeakThreshold,
		})
	}

	return &o
}

// Run starts the periodic transmitter and consumes sample blocks until ctx is
// done. Blocks carrying a transient fault code are skipped; a structurally
// malformed block aborts the run.
func (o *Orchestrator) Run(ctx context.Context) error {
	transmitter := radio.NewPeriodicTransmitter(o.sink, o.transmitFrame(),
		radio.WithTransmitLogger(o.logger),
		radio.WithInterval(o.config.Radio.TxInterval()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		transmitter.Run(ctx)
	}()
	defer o.wg.Wait()

	for {
		block, err := o.source.ReadBlock(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("reading sample block: %w", err)
		}

		if block.Err != radio.ErrorNone {
			o.logger.Warn("skipping faulty block", slog.String("fault", block.Err.String()))
			continue
		}
		if err = block.Validate(o.config.Radio.Channels); err != nil {
			return fmt.Errorf("validating sample block: %w", err)
		}

		o.handleBlock(ctx, block)
	}
}

// transmitFrame builds the waveform the configured mode keeps on the air.
func (o *Orchestrator) transmitFrame() []complex128 {
	switch o.config.Mode {
	case ModeModem:
		return radio.PadFrame(o.modem.Modulate(o.config.Modem.Message), o.config.Probe.Gap)

	case ModeDoppler:
		// The CW illuminator fills whole blocks; padding would punch holes
		// into the background spectrum.
		return radio.Tone(o.config.Radio.BlockLen, 0.7, 0, o.config.Radio.SampleRate)

	default:
		return radio.PadFrame(o.probe, o.config.Probe.Gap)
	}
}

func (o *Orchestrator) handleBlock(ctx context.Context, block *radio.Block) {
	switch o.config.Mode {
	case ModeSound:
		o.handleSounding(ctx, block, false)
	case ModeCSI:
		o.handleSounding(ctx, block, true)
	case ModeDetect:
		o.handleDetect(ctx, block)
	case ModeDoA:
		o.handleDoA(ctx, block)
	case ModeBeam:
		o.handleBeam(ctx, block)
	case ModeModem:
		o.handleModem(ctx, block)
	case ModeDoppler:
		o.handleDoppler(block)
	}
}

// handleSounding serves both the sounder and the analyzer modes; the analyzer
// additionally reports the channel metrics.
func (o *Orchestrator) handleSounding(ctx context.Context, block *radio.Block, withMetrics bool) {
	frame, ok := o.sounder.Process(block.Channels[0])
	if !ok {
		return
	}

	det := frame.Detection
	lo := max(0, det.PeakIndex-o.config.Detection.PreCursor)
	hi := min(len(det.Magnitude), lo+o.config.Detection.WindowSize)

	o.logger.Info("probe detected",
		slog.Float64("snrDb", det.SNRdB),
		slog.Int("peakIndex", det.PeakIndex),
		slog.String("impulse", render.Sparkline(det.Magnitude[lo:hi], 40)))

	if withMetrics && frame.Metrics != nil {
		o.logger.Info("channel metrics",
			slog.Float64("delaySpreadNs", frame.Metrics.RMSDelaySpread*1e9),
			slog.Float64("coherenceBwKHz", frame.Metrics.CoherenceBandwidth/1e3),
			slog.String("cfr", render.BarChart(frame.Metrics.CFRMagDB, 40)))
	}

	o.storeFrame(ctx, block, frame)
}

func (o *Orchestrator) handleDetect(ctx context.Context, block *radio.Block) {
	frame, ok := o.sounder.Process(block.Channels[0])
	if !ok || frame.Decision == nil {
		return
	}

	decision := frame.Decision
	switch decision.State {
	case csi.Calibrating:
		o.logger.Info("calibrating baseline",
			slog.Int("frames", decision.FramesCollected),
			slog.Int("wanted", o.config.Calibration.Frames))

	case csi.Monitoring:
		if decision.Detected {
			o.logger.Warn("channel anomaly",
				slog.Float64("score", decision.Score),
				slog.Float64("threshold", decision.Threshold))
		} else {
			o.logger.Debug("channel nominal",
				slog.Float64("score", decision.Score),
				slog.Float64("threshold", decision.Threshold))
		}
	}

	o.storeFrame(ctx, block, frame)
}

func (o *Orchestrator) handleDoA(ctx context.Context, block *radio.Block) {
	ch0, ch1 := block.Channels[0], block.Channels[1]
	if dsp.MeanPower(ch0) < o.config.Detection.SquelchPower {
		return
	}

	est := o.geometry.EstimateAngle(ch0, ch1)
	o.logger.Info("angle of arrival",
		slog.Float64("angleDeg", est.AngleDeg),
		slog.Float64("phaseRad", est.CorrectedPhaseRad),
		slog.String("bearing", render.Compass(est.AngleDeg)))

	if o.store != nil {
		if err := o.store.StoreAngle(ctx, o.sessionID, block.Timestamp, est); err != nil {
			o.logger.Error("storing angle estimate", slog.String("error", err.Error()))
		}
	}
}

// handleBeam calibrates the array against the first qualifying block, assumed
// broadside, then sweeps steering angles and reports where the combined power
// peaks.
func (o *Orchestrator) handleBeam(ctx context.Context, block *radio.Block) {
	ch0, ch1 := block.Channels[0], block.Channels[1]
	singlePower := dsp.MeanPower(ch0)
	if singlePower < o.config.Detection.SquelchPower {
		return
	}

	if !o.beamCalibrated {
		offset := o.geometry.CalibrateBroadside(ch0, ch1)
		o.beamCalibrated = true
		o.logger.Info("array calibrated", slog.Float64("phaseOffsetRad", offset))
		return
	}

	bestAngle, bestPower := 0.0, 0.0
	limit := o.config.Array.ScanLimitDeg
	for angle := -limit; angle <= limit; angle += o.config.Array.ScanStepDeg {
		combined := spatial.Combine(ch0, ch1, o.geometry.Weight(angle))
		if p := dsp.MeanPower(combined); p > bestPower {
			bestPower = p
			bestAngle = angle
		}
	}

	gainDB := 0.0
	if singlePower > 0 && bestPower > 0 {
		gainDB = 10 * math.Log10(bestPower/singlePower)
	}
	o.logger.Info("beam steered",
		slog.Float64("angleDeg", bestAngle),
		slog.Float64("gainDb", gainDB),
		slog.String("bearing", render.Compass(bestAngle)))

	if o.store != nil {
		est := o.geometry.EstimateAngle(ch0, ch1)
		if err := o.store.StoreAngle(ctx, o.sessionID, block.Timestamp, est); err != nil {
			o.logger.Error("storing angle estimate", slog.String("error", err.Error()))
		}
	}
}

func (o *Orchestrator) handleModem(ctx context.Context, block *radio.Block) {
	ch0 := block.Channels[0]

	// Locate the burst: the first sample above the energy gate starts the
	// demodulation chunk.
	start := -1
	threshold := o.config.Detection.EnergyThreshold
	for i, s := range ch0 {
		if real(s)*real(s)+imag(s)*imag(s) > threshold*threshold {
			start = i
			break
		}
	}
	if start < 0 {
		return
	}

	end := min(start+o.config.Modem.RxChunk, len(ch0))
	text := o.modem.Demodulate(ch0[start:end])
	if text == "" {
		return
	}

	o.logger.Info("message decoded", slog.String("text", text))

	if o.store != nil {
		if err := o.store.StoreMessage(ctx, o.sessionID, block.Timestamp, text); err != nil {
			o.logger.Error("storing message", slog.String("error", err.Error()))
		}
	}
}

func (o *Orchestrator) handleDoppler(block *radio.Block) {
	ch0 := block.Channels[0]
	if len(ch0) < o.doppler.FFTSize() {
		return
	}

	reading := o.doppler.Process(ch0[:o.doppler.FFTSize()])
	if !reading.Detected {
		return
	}

	o.logger.Info("motion detected",
		slog.Float64("velocityMs", reading.VelocityMS),
		slog.Float64("shiftHz", reading.ShiftHz),
		slog.String("gauge", render.DualGauge(reading.VelocityMS, o.config.Doppler.MaxSpeedMS, 40)))
}

// storeFrame persists whatever stages of a frame produced results. Storage
// failures cost the record, not the run.
func (o *Orchestrator) storeFrame(ctx context.Context, block *radio.Block, frame *pipeline.Frame) {
	if o.store == nil {
		return
	}

	if frame.Detection != nil {
		if err := o.store.StoreDetection(ctx, o.sessionID, block.Timestamp, frame.Detection); err != nil {
			o.logger.Error("storing detection", slog.String("error", err.Error()))
		}
	}
	if frame.Metrics != nil {
		if err := o.store.StoreMetrics(ctx, o.sessionID, block.Timestamp, frame.Metrics, frame.Decision); err != nil {
			o.logger.Error("storing channel metrics", slog.String("error", err.Error()))
		}
	}
}
