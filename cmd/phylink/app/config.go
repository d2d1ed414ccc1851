package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/phaseline/phylink/internal/csi"
	"github.com/phaseline/phylink/internal/doppler"
	"github.com/phaseline/phylink/internal/modem"
	"github.com/phaseline/phylink/internal/pipeline"
	"github.com/phaseline/phylink/internal/radio"
)

// Mode selects which application the shared pipeline is parameterized into.
type Mode string

const (
	ModeSound   Mode = "sound"   // channel sounder: impulse response display
	ModeCSI     Mode = "csi"     // delay spread / coherence bandwidth analyzer
	ModeDetect  Mode = "detect"  // baseline-calibrated presence detector
	ModeDoA     Mode = "doa"     // two-channel direction finder
	ModeBeam    Mode = "beam"    // steered-beam power sweep
	ModeModem   Mode = "modem"   // DPSK text link
	ModeDoppler Mode = "doppler" // continuous-wave velocity radar
)

// Config is the main application configuration.
type Config struct {
	Settings    Settings          `yaml:"settings"`
	Mode        Mode              `yaml:"mode"`
	Radio       RadioConfig       `yaml:"radio"`
	Probe       ProbeConfig       `yaml:"probe"`
	Detection   DetectionConfig   `yaml:"detection"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Array       ArrayConfig       `yaml:"array"`
	Modem       ModemConfig       `yaml:"modem"`
	Doppler     DopplerConfig     `yaml:"doppler"`
	Storage     StorageConfig     `yaml:"storage"`
}

// Settings holds global application settings.
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// RadioConfig configures the sample source/sink. Only the simulated loopback
// radio ships with this repository; hardware front ends implement the same
// Source/Sink contract externally.
type RadioConfig struct {
	SampleRate float64 `yaml:"sampleRate"`
	CarrierHz  float64 `yaml:"carrierFreq"`
	BlockLen   int     `yaml:"blockLen"`
	Channels   int     `yaml:"channels"`

	// TxIntervalSec is the periodic transmit cadence in seconds.
	TxIntervalSec float64 `yaml:"txInterval"`

	Loopback LoopbackConfig `yaml:"loopback"`
}

// LoopbackConfig shapes the simulated propagation channel.
type LoopbackConfig struct {
	NoiseStd   float64 `yaml:"noiseStd"`
	Gain       float64 `yaml:"gain"`
	ArrivalDeg float64 `yaml:"arrivalDeg"`
	EchoDelay  int     `yaml:"echoDelay"`
	EchoGain   float64 `yaml:"echoGain"`
	FaultEvery int     `yaml:"faultEvery"`
	Seed       int64   `yaml:"seed"`
}

// ProbeConfig shapes the sounding waveform and its frame padding.
type ProbeConfig struct {
	Length int `yaml:"length"`
	Gap    int `yaml:"gap"`
}

// DetectionConfig holds the gates and window geometry of the sounding chain.
type DetectionConfig struct {
	EnergyThreshold float64 `yaml:"energyThreshold"`
	LockSNRdB       float64 `yaml:"lockSnrDb"`
	WindowSize      int     `yaml:"windowSize"`
	PreCursor       int     `yaml:"preCursor"`
	SquelchPower    float64 `yaml:"squelchPower"`
}

// CalibrationConfig parameterizes the presence detector's baseline.
type CalibrationConfig struct {
	Frames          int     `yaml:"frames"`
	SigmaMultiplier float64 `yaml:"sigmaMultiplier"`
	MaxThreshold    float64 `yaml:"maxThreshold"`

	// FixedThreshold, when positive, replaces the adaptive threshold.
	FixedThreshold float64 `yaml:"fixedThreshold"`
}

// ArrayConfig is the two-element array geometry.
type ArrayConfig struct {
	SpacingMeters  float64 `yaml:"spacingMeters"`
	PhaseOffsetRad float64 `yaml:"phaseOffsetRad"`
	ScanStepDeg    float64 `yaml:"scanStepDeg"`
	ScanLimitDeg   float64 `yaml:"scanLimitDeg"`
}

// ModemConfig parameterizes the DPSK link.
type ModemConfig struct {
	SPS           int    `yaml:"sps"`
	MaxMessageLen int    `yaml:"maxMessageLen"`
	Message       string `yaml:"message"`
	RxChunk       int    `yaml:"rxChunk"`
}

// DopplerConfig parameterizes the CW radar.
type DopplerConfig struct {
	FFTSize       int     `yaml:"fftSize"`
	Alpha         float64 `yaml:"alpha"`
	PeakThreshold float64 `yaml:"peakThreshold"`
	MaxSpeedMS    float64 `yaml:"maxSpeedMs"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
	Disabled      bool   `yaml:"disabled"`
}

// LoadConfig reads, parses and defaults a configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	var config Config
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	config.applyDefaults()
	if err = config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeSound
	}
	if c.Radio.SampleRate == 0 {
		c.Radio.SampleRate = 1e6
	}
	if c.Radio.CarrierHz == 0 {
		c.Radio.CarrierHz = 915e6
	}
	if c.Radio.BlockLen == 0 {
		// A modem burst with its padding is longer than the usual sounding
		// block, and the whole burst must land inside one block to decode.
		if c.Mode == ModeModem {
			c.Radio.BlockLen = 30000
		} else {
			c.Radio.BlockLen = 10000
		}
	}
	if c.Radio.Channels == 0 {
		c.Radio.Channels = 1
	}
	if c.Radio.TxIntervalSec == 0 {
		c.Radio.TxIntervalSec = 0.5
	}
	if c.Probe.Length == 0 {
		c.Probe.Length = 256
	}
	if c.Probe.Gap == 0 {
		c.Probe.Gap = 2000
	}
	if c.Detection.EnergyThreshold == 0 {
		c.Detection.EnergyThreshold = pipeline.DefaultEnergyThreshold
	}
	if c.Detection.LockSNRdB == 0 {
		c.Detection.LockSNRdB = pipeline.DefaultLockSNRdB
	}
	if c.Detection.WindowSize == 0 {
		c.Detection.WindowSize = csi.DefaultWindowSize
	}
	if c.Detection.PreCursor == 0 {
		c.Detection.PreCursor = csi.DefaultPreCursor
	}
	if c.Detection.SquelchPower == 0 {
		c.Detection.SquelchPower = 0.005
	}
	if c.Calibration.Frames == 0 {
		c.Calibration.Frames = csi.DefaultCalibrationFrames
	}
	if c.Calibration.SigmaMultiplier == 0 {
		c.Calibration.SigmaMultiplier = csi.DefaultSigmaMultiplier
	}
	if c.Calibration.MaxThreshold == 0 {
		c.Calibration.MaxThreshold = csi.DefaultThresholdCeiling
	}
	if c.Array.SpacingMeters == 0 {
		c.Array.SpacingMeters = 0.163
	}
	if c.Array.ScanStepDeg == 0 {
		c.Array.ScanStepDeg = 2.0
	}
	if c.Array.ScanLimitDeg == 0 {
		c.Array.ScanLimitDeg = 60.0
	}
	if c.Modem.SPS == 0 {
		c.Modem.SPS = modem.DefaultSPS
	}
	if c.Modem.MaxMessageLen == 0 {
		c.Modem.MaxMessageLen = modem.DefaultMaxMessageLen
	}
	if c.Modem.Message == "" {
		c.Modem.Message = "Hello World"
	}
	if c.Modem.RxChunk == 0 {
		c.Modem.RxChunk = 20000
	}
	if c.Doppler.FFTSize == 0 {
		c.Doppler.FFTSize = doppler.DefaultFFTSize
	}
	if c.Doppler.Alpha == 0 {
		c.Doppler.Alpha = doppler.DefaultAlpha
	}
	if c.Doppler.PeakThreshold == 0 {
		c.Doppler.PeakThreshold = doppler.DefaultPeakThreshold
	}
	if c.Doppler.MaxSpeedMS == 0 {
		c.Doppler.MaxSpeedMS = 3.0
	}
	if c.Radio.Loopback.Gain == 0 {
		c.Radio.Loopback.Gain = 1.0
	}
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeSound, ModeCSI, ModeDetect, ModeDoA, ModeBeam, ModeModem, ModeDoppler:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}

	if twoChannel := c.Mode == ModeDoA || c.Mode == ModeBeam; twoChannel && c.Radio.Channels < 2 {
		return fmt.Errorf("mode %q needs two receive channels, configured %d", c.Mode, c.Radio.Channels)
	}
	if c.Radio.BlockLen < c.Probe.Length {
		return fmt.Errorf("blockLen %d is shorter than probe length %d", c.Radio.BlockLen, c.Probe.Length)
	}
	return nil
}

// LogLevel parses the configured level, defaulting to info.
func (s Settings) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// TxInterval returns the transmit cadence as a duration.
func (c RadioConfig) TxInterval() time.Duration {
	return time.Duration(c.TxIntervalSec * float64(time.Second))
}

// LoopbackTaps converts the echo settings into the channel tap profile.
func (c RadioConfig) LoopbackTaps() []radio.Tap {
	taps := []radio.Tap{{Delay: 0, Gain: 1.0}}
	if c.Loopback.EchoDelay > 0 && c.Loopback.EchoGain > 0 {
		taps = append(taps, radio.Tap{Delay: c.Loopback.EchoDelay, Gain: c.Loopback.EchoGain})
	}
	return taps
}
