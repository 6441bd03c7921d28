package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"

	"github.com/roman-kulish/antenna-analyzer/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	plot, err := readPlot(ctx, store, config.ScanID, logger)
	if err != nil {
		return err
	}

	renderer, err := NewSWRRenderer(RenderConfig{
		Width:         config.Width,
		Height:        config.Height,
		MaxVSWR:       config.MaxVSWR,
		NoAnnotations: config.NoAnnotations,
	})
	if err != nil {
		return fmt.Errorf("creating SWR renderer: %w", err)
	}

	logger.Info("rendering SWR curve",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.Int("width", config.Width),
			slog.Int("height", config.Height),
		))

	img, err := renderer.Render(plot)
	if err != nil {
		return fmt.Errorf("rendering SWR curve: %w", err)
	}

	return writeImage(config.OutputFile, img, config.Format)
}

func writeImage(path string, img image.Image, format ImageFormat) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closeWithError(out, &err)

	return encodeImage(out, img, format)
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = fmt.Errorf("closing image file: %w", cErr)
	}
}

func readPlot(ctx context.Context, store storage.Store, scanID int64, logger *slog.Logger) (*PlotData, error) {
	scan, err := store.Scan(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("reading scan %d: %w", scanID, err)
	}

	points, err := store.ScanPoints(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("reading points of scan %d: %w", scanID, err)
	}

	summary, err := store.ScanSummary(ctx, scanID)
	if err != nil {
		if !errors.Is(err, storage.ErrNoData) {
			return nil, fmt.Errorf("reading summary of scan %d: %w", scanID, err)
		}
		summary = nil
	}

	plot, err := NewPlotData(scan.StartTime, scan.Band, points, summary)
	if err != nil {
		return nil, err
	}

	best := plot.Resonance()
	logger.Info("finished reading scan",
		slog.Group("scan",
			slog.Int64("id", scan.ID),
			slog.Int64("session", scan.SessionID),
			slog.String("band", scan.Band.Name),
			slog.Int("points", len(points)),
			slog.String("resonance", humanHz(float64(best.Frequency))),
			slog.String("swr", fmt.Sprintf("%0.2f", best.VSWR)),
		))

	return plot, nil
}

func encodeImage(w io.Writer, img image.Image, format ImageFormat) error {
	switch format {
	case ImagePNG:
		return png.Encode(w, img)
	case ImageJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{
			Quality: 98,
		})
	default:
		return fmt.Errorf("invalid image format: %s", format)
	}
}
