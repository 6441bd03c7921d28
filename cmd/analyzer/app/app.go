package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/antenna-analyzer/internal/analyzer"
	"github.com/roman-kulish/antenna-analyzer/internal/detector"
	"github.com/roman-kulish/antenna-analyzer/internal/storage"
)

const (
	storageDir = "data"
)

// Options are the command line switches that are not part of the configuration file
type Options struct {
	Repeat bool      // Run RepeatCount scans instead of a single one
	JSON   bool      // Write every scan result as JSON to Output
	Output io.Writer // Receives statistics reports and JSON results
}

func Run(ctx context.Context, config *Config, opts Options, logger *slog.Logger) error {
	source, closeSource, err := createSource(&config.Source, logger)
	if err != nil {
		return fmt.Errorf("failed to create source: %w", err)
	}
	defer closeSource()

	var store storage.Store
	if config.Storage.Enabled {
		sqliteStore, err := createStorage(&config.Storage)
		if err != nil {
			return fmt.Errorf("failed to create storage: %w", err)
		}
		defer sqliteStore.Close()

		store = sqliteStore
	}

	scanner, err := analyzer.NewScanner(source, &config.Scan,
		analyzer.WithLogger(logger),
		analyzer.WithStatsOutput(opts.Output))
	if err != nil {
		return fmt.Errorf("failed to create scanner: %w", err)
	}

	return newRunner(scanner, store, config, opts, logger).run(ctx)
}

type runner struct {
	scanner *analyzer.Scanner
	store   storage.Store
	config  *Config
	opts    Options
	logger  *slog.Logger

	sessionID int64
}

func newRunner(scanner *analyzer.Scanner, store storage.Store, config *Config, opts Options, logger *slog.Logger) *runner {
	return &runner{
		scanner: scanner,
		store:   store,
		config:  config,
		opts:    opts,
		logger:  logger,
	}
}

func (r *runner) run(ctx context.Context) error {
	if r.store != nil {
		sessionID, err := r.store.CreateSession(ctx, string(r.config.Source.Type), &r.config.Scan)
		if err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
		r.sessionID = sessionID
	}

	count := 1
	if r.opts.Repeat {
		count = r.config.Scan.RepeatCount
	}
	pause := time.Duration(r.config.Scan.ScanPause)

	for i := 0; i < count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				r.logger.Info("repeat scan cancelled", slog.Int("completed", i))
				return nil
			case <-time.After(pause):
			}
		}

		if err := r.scanOnce(ctx, i+1, count); err != nil {
			if errors.Is(err, context.Canceled) {
				r.logger.Warn("scan aborted", slog.Int("scan", i+1))
				return nil
			}
			return err
		}
	}

	return nil
}

func (r *runner) scanOnce(ctx context.Context, n, count int) error {
	result, err := r.scanner.Scan(ctx)
	if err != nil {
		return err
	}

	best, _ := result.Best()
	r.logger.Info("scan complete",
		slog.Int("scan", n),
		slog.Int("of", count),
		slog.String("resonance", humanize.SIWithDigits(float64(best.Frequency), 3, "Hz")),
		slog.String("swr", fmt.Sprintf("%0.2f", best.VSWR)))

	if r.store != nil {
		scanID, err := r.store.StoreScan(ctx, r.sessionID, result)
		if err != nil {
			return fmt.Errorf("storing scan: %w", err)
		}
		r.logger.Debug("scan stored", slog.Int64("session", r.sessionID), slog.Int64("scan", scanID))
	}

	if r.opts.JSON {
		enc := json.NewEncoder(r.opts.Output)
		enc.SetIndent("", "    ")
		if err = enc.Encode(result); err != nil {
			return fmt.Errorf("writing scan result: %w", err)
		}
	}

	return nil
}

func createSource(config *SourceConfig, logger *slog.Logger) (detector.Source, func(), error) {
	switch config.Type {
	case SourceSimulator:
		sim, err := detector.NewSimulator(*config.Simulator)
		if err != nil {
			return nil, nil, fmt.Errorf("creating simulator: %w", err)
		}
		return sim, func() {}, nil

	case SourceFile:
		f, err := os.Open(config.File.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening readings file: %w", err)
		}

		src := detector.NewLineSource(f,
			detector.WithLogger(logger),
			detector.WithFrequencyTolerance(config.File.FrequencyTolerance))
		return src, func() { _ = f.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown source type '%s'", config.Type)
	}
}

func createStorage(config *StorageConfig) (*storage.SqliteStore, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	dbPath := filepath.Join(wd, storageDir)
	if config.DataDirectory != "" {
		dbPath = config.DataDirectory
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(wd, dbPath)
		}
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dbPath, err)
		}
		return nil, err
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dbPath)
	}

	dbPath = filepath.Join(dbPath, fmt.Sprintf("analyzer_session_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	return storage.NewSqliteStore(dbPath), nil
}
