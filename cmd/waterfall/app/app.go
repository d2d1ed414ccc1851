package app

import (
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"time"

	"github.com/phaseline/phylink/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.New(config.DBPath)
	defer store.Close()

	records, err := store.CFRHistory(ctx, config.SessionID)
	if err != nil {
		return err
	}

	waterfall := NewWaterfall(records)

	logger.Info("loaded frequency-response history",
		slog.Int64("sessionId", config.SessionID),
		slog.Int("frames", len(waterfall.Rows)),
		slog.String("start", waterfall.TimestampStart.Format(time.DateTime)),
		slog.String("end", waterfall.TimestampEnd.Format(time.DateTime)))

	img, err := NewRenderer(config).Render(waterfall)
	if err != nil {
		return fmt.Errorf("rendering waterfall: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	logger.Info("writing image",
		slog.String("destination", config.OutputFile),
		slog.Int("width", img.Bounds().Dx()),
		slog.Int("height", img.Bounds().Dy()))

	return png.Encode(out, img)
}
