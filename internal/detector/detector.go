package detector

import (
	"context"
	"errors"
)

const (
	// ADCMax is the largest value returned by the 10-bit analog-to-digital converter
	ADCMax = 1023
)

var (
	// ErrNotTuned is returned when a reading is requested before the source was tuned
	ErrNotTuned = errors.New("source is not tuned")

	// ErrSourceExhausted is returned when a recorded source has no more readings
	ErrSourceExhausted = errors.New("source exhausted")
)

// Reading is a single pair of forward and reverse power detector samples
type Reading struct {
	Forward uint16 // Forward detector ADC value
	Reverse uint16 // Reverse (reflected) detector ADC value
}

// Source is the analyzer hardware seen from the scan driver: a synthesizer that
// can be tuned to a frequency and a pair of detectors that can be sampled.
type Source interface {
	// Tune sets the synthesizer output frequency in Hz
	Tune(ctx context.Context, hz int64) error

	// Read samples both detectors once at the current frequency
	Read(ctx context.Context) (Reading, error)

	// Name returns a human-readable source identifier
	Name() string
}
