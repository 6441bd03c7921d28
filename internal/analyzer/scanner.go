package analyzer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/stat"

	"github.com/roman-kulish/antenna-analyzer/internal/detector"
	"github.com/roman-kulish/antenna-analyzer/internal/stats"
)

// Point is the measurement at a single scan frequency
type Point struct {
	Frequency   int64   `json:"frequency"`   // Hz
	ForwardMean float64 `json:"forwardMean"` // Mean forward detector reading
	ReverseMean float64 `json:"reverseMean"` // Mean reverse detector reading
	VSWR        float64 `json:"vswr"`
}

// Result is the outcome of a single scan
type Result struct {
	StartTime       time.Time     `json:"startTime"`
	Duration        time.Duration `json:"duration"`
	Band            Band          `json:"band"`
	PointsPerSample int           `json:"pointsPerSample"`
	Points          []Point       `json:"points"`
	Summary         stats.Summary `json:"summary"`
}

// Best returns the point with the lowest VSWR, or false if the result has no points
func (r *Result) Best() (Point, bool) {
	if len(r.Points) == 0 {
		return Point{}, false
	}

	best := r.Points[0]
	for _, p := range r.Points[1:] {
		if p.VSWR < best.VSWR {
			best = p
		}
	}
	return best, true
}

// WithLogger sets the logger for the scanner
func WithLogger(logger *slog.Logger) func(s *Scanner) {
	return func(s *Scanner) {
		s.logger = logger.With(slog.String("source", s.source.Name()))
	}
}

// WithStatsOutput sets the writer receiving the statistics text reports
func WithStatsOutput(w io.Writer) func(s *Scanner) {
	return func(s *Scanner) {
		s.statsOutput = w
	}
}

// Scanner sweeps the configured band, collecting a sample group of readings at
// every scan point and feeding them to a statistics collector. Each scan gets
// its own collector, so running extremes never carry over between scans.
type Scanner struct {
	source detector.Source
	config *Config

	statsOutput io.Writer
	logger      *slog.Logger
}

// NewScanner creates a new Scanner with a discard logger
func NewScanner(source detector.Source, config *Config, options ...func(s *Scanner)) (*Scanner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := Scanner{
		source:      source,
		config:      config,
		statsOutput: io.Discard,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&s)
	}

	return &s, nil
}

// Scan performs a single sweep of the band. Cancelling ctx aborts the scan
// before the next scan point.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	result := Result{
		StartTime:       time.Now().UTC(),
		Band:            s.config.Band,
		PointsPerSample: s.config.PointsPerSample,
		Points:          make([]Point, 0, s.config.ScanPoints),
	}

	s.logger.Info("starting scan",
		slog.String("band", s.config.Band.Name),
		slog.String("start", humanizeHz(s.config.Band.StartFrequency)),
		slog.String("end", humanizeHz(s.config.Band.EndFrequency)),
		slog.Int("points", s.config.ScanPoints))

	collector, err := stats.New(s.config.ScanPoints, s.config.PointsPerSample)
	if err != nil {
		return nil, fmt.Errorf("creating statistics collector: %w", err)
	}
	collector.BeginScan()

	fwd := make([]float64, s.config.PointsPerSample)
	rev := make([]float64, s.config.PointsPerSample)

	for i := 0; i < s.config.ScanPoints; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scan aborted at point %d: %w", i, err)
		}

		point, err := s.scanPoint(ctx, collector, s.config.Frequency(i), fwd, rev)
		if err != nil {
			return nil, err
		}
		result.Points = append(result.Points, point)
	}

	result.Duration = time.Since(result.StartTime)
	result.Summary = collector.Summary()

	if s.config.Stats.LogSummary {
		if err := collector.ReportScanSummary(s.statsOutput); err != nil {
			return nil, fmt.Errorf("writing scan summary: %w", err)
		}
	}

	best, _ := result.Best()
	s.logger.Info("scan finished",
		slog.Duration("duration", result.Duration),
		slog.String("bestFrequency", humanizeHz(best.Frequency)),
		slog.String("minSWR", fmt.Sprintf("%0.2f", result.Summary.MinSWR)),
		slog.String("maxSWR", fmt.Sprintf("%0.2f", result.Summary.MaxSWR)))

	return &result, nil
}

// scanPoint collects one sample group at hz. fwd and rev are scratch buffers
// of PointsPerSample length.
func (s *Scanner) scanPoint(ctx context.Context, collector *stats.Collector, hz int64, fwd, rev []float64) (Point, error) {
	if err := s.source.Tune(ctx, hz); err != nil {
		return Point{}, fmt.Errorf("tuning source to %s: %w", humanizeHz(hz), err)
	}

	logReadings := s.config.Stats.LogSummary && s.config.Stats.LogReadings

	collector.BeginGroup()
	for j := range fwd {
		r, err := s.source.Read(ctx)
		if err != nil {
			return Point{}, fmt.Errorf("reading detectors at %s: %w", humanizeHz(hz), err)
		}

		if err = collector.RecordReading(r.Forward, r.Reverse, j); err != nil {
			return Point{}, err
		}

		if logReadings {
			if err = collector.ReportReading(s.statsOutput, r.Forward, r.Reverse); err != nil {
				return Point{}, fmt.Errorf("writing reading: %w", err)
			}
		}

		fwd[j] = float64(r.Forward)
		rev[j] = float64(r.Reverse)
	}

	point := Point{
		Frequency:   hz,
		ForwardMean: stat.Mean(fwd, nil),
		ReverseMean: stat.Mean(rev, nil),
	}

	if err := collector.ComputeGroupStatistics(point.ForwardMean, point.ReverseMean); err != nil {
		return Point{}, err
	}

	point.VSWR = VSWR(point.ForwardMean, point.ReverseMean, s.config.Detector)
	collector.RecordVSWRExtremes(point.VSWR)

	if s.config.Stats.LogSummary && s.config.Stats.LogPointStats {
		if err := collector.ReportGroup(s.statsOutput); err != nil {
			return Point{}, fmt.Errorf("writing point stats: %w", err)
		}
	}

	s.logger.Debug("scan point",
		slog.String("frequency", humanizeHz(hz)),
		slog.String("vswr", fmt.Sprintf("%0.2f", point.VSWR)))

	return point, nil
}

func humanizeHz(hz int64) string {
	return humanize.SIWithDigits(float64(hz), 3, "Hz")
}
