package detector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

const (
	// ParseErrorsThreshold defines the number of consecutive parse errors allowed
	ParseErrorsThreshold = 5

	lineSourceName = "file"
)

var (
	// ErrTooManyParseErrors is returned when the number of consecutive parse errors exceeds the threshold
	ErrTooManyParseErrors = errors.New("too many consecutive parse errors")

	// ErrBrokenPipe is returned when there's an error reading the input
	ErrBrokenPipe = errors.New("broken pipe")

	// ErrFrequencyMismatch is returned when a recorded reading belongs to another frequency
	ErrFrequencyMismatch = errors.New("reading frequency does not match tuned frequency")
)

// WithLogger sets the logger for the line source
func WithLogger(logger *slog.Logger) func(s *LineSource) {
	return func(s *LineSource) {
		s.logger = logger.With(slog.String("source", lineSourceName))
	}
}

// WithParseErrorsThreshold sets the threshold for consecutive parse errors
func WithParseErrorsThreshold(threshold uint8) func(s *LineSource) {
	return func(s *LineSource) {
		s.parseErrorsThreshold = threshold
	}
}

// WithFrequencyTolerance enables checking that every reading was taken within
// tolerance Hz of the tuned frequency. Zero disables the check.
func WithFrequencyTolerance(tolerance int64) func(s *LineSource) {
	return func(s *LineSource) {
		s.tolerance = tolerance
	}
}

// LineSource replays readings captured from the analyzer's serial output.
// Each line holds "frequency,forward,reverse"; empty lines and lines starting
// with '#' are ignored.
type LineSource struct {
	scanner *bufio.Scanner
	freq    int64

	tolerance            int64
	parseErrorsThreshold uint8
	logger               *slog.Logger
}

// NewLineSource creates a new LineSource reading from r
func NewLineSource(r io.Reader, options ...func(s *LineSource)) *LineSource {
	s := LineSource{
		scanner:              bufio.NewScanner(r),
		parseErrorsThreshold: ParseErrorsThreshold,
		logger:               slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

func (s *LineSource) Tune(ctx context.Context, hz int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.freq = hz
	return nil
}

func (s *LineSource) Read(ctx context.Context) (Reading, error) {
	if s.freq == 0 {
		return Reading{}, ErrNotTuned
	}

	var parseErrors uint8
	for s.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return Reading{}, err
		}

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		freq, reading, err := parseLine(line)
		if err != nil {
			parseErrors++
			s.logger.Warn(fmt.Sprintf("error parsing reading: %s", err.Error()), slog.String("line", line))

			if parseErrors >= s.parseErrorsThreshold {
				return Reading{}, ErrTooManyParseErrors
			}

			continue
		}

		if s.tolerance > 0 && abs(freq-s.freq) > s.tolerance {
			return Reading{}, fmt.Errorf("%w: got %d Hz, tuned to %d Hz", ErrFrequencyMismatch, freq, s.freq)
		}

		return reading, nil
	}
	if err := s.scanner.Err(); err != nil {
		return Reading{}, fmt.Errorf("%w: error reading input: %w", ErrBrokenPipe, err)
	}

	return Reading{}, ErrSourceExhausted
}

func (s *LineSource) Name() string {
	return lineSourceName
}

func parseLine(line string) (int64, Reading, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 3 {
		return 0, Reading{}, fmt.Errorf("expected 3 fields, got %d", len(fields))
	}

	freq, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return 0, Reading{}, fmt.Errorf("invalid frequency: %w", err)
	}

	fwd, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 16)
	if err != nil {
		return 0, Reading{}, fmt.Errorf("invalid forward reading: %w", err)
	}

	rev, err := strconv.ParseUint(strings.TrimSpace(fields[2]), 10, 16)
	if err != nil {
		return 0, Reading{}, fmt.Errorf("invalid reverse reading: %w", err)
	}

	return freq, Reading{Forward: uint16(fwd), Reverse: uint16(rev)}, nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
