package detector

import (
	"context"
	"fmt"
	"math"
	"math/rand"
)

const simulatorName = "simulator"

// SimulatorConfig describes the antenna the simulator pretends to be connected to
type SimulatorConfig struct {
	ResonantFrequency int64   `yaml:"resonantFrequency" json:"resonantFrequency"` // Hz
	Q                 float64 `yaml:"q" json:"q"`                                 // Loaded Q of the antenna
	MinVSWR           float64 `yaml:"minVSWR" json:"minVSWR"`                     // VSWR at resonance, >= 1
	ForwardLevel      uint16  `yaml:"forwardLevel" json:"forwardLevel"`           // Forward detector level
	Noise             float64 `yaml:"noise" json:"noise"`                         // Standard deviation of ADC noise, counts
	Seed              int64   `yaml:"seed" json:"seed"`
}

func (c *SimulatorConfig) Validate() error {
	if c.ResonantFrequency <= 0 {
		return fmt.Errorf("detector.SimulatorConfig: resonant frequency must be positive: %d", c.ResonantFrequency)
	}
	if c.Q <= 0 {
		return fmt.Errorf("detector.SimulatorConfig: Q must be positive: %0.2f", c.Q)
	}
	if c.MinVSWR < 1 {
		return fmt.Errorf("detector.SimulatorConfig: minimum VSWR must be at least 1: %0.2f", c.MinVSWR)
	}
	if c.ForwardLevel == 0 || c.ForwardLevel > ADCMax {
		return fmt.Errorf("detector.SimulatorConfig: forward level must be between 1 and %d: %d", ADCMax, c.ForwardLevel)
	}
	if c.Noise < 0 {
		return fmt.Errorf("detector.SimulatorConfig: noise must not be negative: %0.2f", c.Noise)
	}
	return nil
}

// Simulator is a Source producing diode detector readings of a series resonant
// antenna, with gaussian ADC noise.
type Simulator struct {
	config SimulatorConfig
	rnd    *rand.Rand
	freq   int64
}

// NewSimulator creates a new Simulator
func NewSimulator(config SimulatorConfig) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Simulator{
		config: config,
		rnd:    rand.New(rand.NewSource(config.Seed)),
	}, nil
}

func (s *Simulator) Tune(ctx context.Context, hz int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if hz <= 0 {
		return fmt.Errorf("invalid frequency: %d", hz)
	}

	s.freq = hz
	return nil
}

func (s *Simulator) Read(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}
	if s.freq == 0 {
		return Reading{}, ErrNotTuned
	}

	gamma := s.reflection(s.freq)

	fwd := float64(s.config.ForwardLevel)
	rev := fwd * gamma

	return Reading{
		Forward: s.sample(fwd),
		Reverse: s.sample(rev),
	}, nil
}

func (s *Simulator) Name() string {
	return simulatorName
}

// reflection returns the magnitude of the reflection coefficient at hz.
// The antenna is modelled as a series RLC whose resistance gives MinVSWR at resonance.
func (s *Simulator) reflection(hz int64) float64 {
	const z0 = 50.0

	r := z0 * s.config.MinVSWR
	detune := float64(hz)/float64(s.config.ResonantFrequency) - float64(s.config.ResonantFrequency)/float64(hz)
	x := r * s.config.Q * detune

	// |Z - Z0| / |Z + Z0|
	return math.Hypot(r-z0, x) / math.Hypot(r+z0, x)
}

func (s *Simulator) sample(level float64) uint16 {
	v := math.Round(level + s.rnd.NormFloat64()*s.config.Noise)
	return uint16(max(0, min(ADCMax, v)))
}
