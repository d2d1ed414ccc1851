package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/phaseline/phylink/internal/radio"
	"github.com/phaseline/phylink/internal/spatial"
	"github.com/phaseline/phylink/internal/storage"
)

const storageDir = "data"

// Run executes one application mode until ctx is done.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	loopback := createRadio(config)

	var options []func(*Orchestrator)
	if !config.Storage.Disabled {
		store, err := createStorage(&config.Storage)
		if err != nil {
			return fmt.Errorf("failed to create storage: %w", err)
		}
		defer store.Close()

		sessionID, err := createSession(ctx, store, config)
		if err != nil {
			return err
		}

		options = append(options, WithStore(store, sessionID))
	}

	logger.Info("starting",
		slog.String("mode", string(config.Mode)),
		slog.Float64("sampleRate", config.Radio.SampleRate),
		slog.Int("channels", config.Radio.Channels))

	orchestrator := NewOrchestrator(config, loopback, loopback, logger, options...)
	return orchestrator.Run(ctx)
}

// createRadio builds the simulated loopback channel from the configuration.
// The configured arrival angle is converted to the inter-element phase a plane
// wave from that bearing produces across the array.
func createRadio(config *Config) *radio.Loopback {
	geometry := spatial.Geometry{
		SpacingMeters: config.Array.SpacingMeters,
		CarrierHz:     config.Radio.CarrierHz,
	}

	return radio.NewLoopback(radio.LoopbackConfig{
		BlockLen:     config.Radio.BlockLen,
		Channels:     config.Radio.Channels,
		Taps:         config.Radio.LoopbackTaps(),
		NoiseStd:     config.Radio.Loopback.NoiseStd,
		Gain:         config.Radio.Loopback.Gain,
		ArrivalPhase: geometry.SteeringPhase(config.Radio.Loopback.ArrivalDeg),
		FaultEvery:   config.Radio.Loopback.FaultEvery,
		Seed:         config.Radio.Loopback.Seed,
	})
}

func createSession(ctx context.Context, store *storage.Store, config *Config) (int64, error) {
	var configData *string
	if data, err := yaml.Marshal(config); err == nil {
		s := string(data)
		configData = &s
	}

	sessionID, err := store.CreateSession(ctx, string(config.Mode), configData)
	if err != nil {
		return 0, fmt.Errorf("creating session: %w", err)
	}
	return sessionID, nil
}

func createStorage(config *StorageConfig) (*storage.Store, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	dir := config.DataDirectory
	if dir == "" {
		dir = storageDir
	}
	dbDir := filepath.Join(wd, dir)

	stat, err := os.Stat(dbDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dbDir, err)
		}
		return nil, fmt.Errorf("checking storage directory '%s': %w", dbDir, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dbDir)
	}

	dbPath := filepath.Join(dbDir, fmt.Sprintf("phylink_session_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	return storage.New(dbPath), nil
}
