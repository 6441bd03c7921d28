package analyzer

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/antenna-analyzer/internal/stats"
)

const (
	// FrequencyMin and FrequencyMax are the synthesizer limits in Hz
	FrequencyMin = 100_000
	FrequencyMax = 65_500_000

	DefaultScanPoints      = 100
	DefaultPointsPerSample = 10

	DefaultRepeatCount = 50
	MinRepeatCount     = 10
	MaxRepeatCount     = 100

	DefaultScanPause = time.Second
	MaxScanPause     = 60 * time.Second

	// DetectorDiode is the default germanium diode bridge detector
	DetectorDiode  DetectorKind = "diode"
	DetectorAD8307 DetectorKind = "ad8307"
)

var validDetectors = map[DetectorKind]struct{}{
	DetectorDiode:  {},
	DetectorAD8307: {},
}

type DetectorKind string

func (k DetectorKind) String() string {
	return string(k)
}

// Duration is a time.Duration expressed as "1s", "500ms" etc. in configuration files
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("analyzer.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalJSON(bytes []byte) error {
	var v string
	if err := json.Unmarshal(bytes, &v); err != nil {
		return err
	}

	duration, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("analyzer.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Band is the frequency range swept by a scan
type Band struct {
	Name           string `yaml:"name" json:"name"`
	StartFrequency int64  `yaml:"startFrequency" json:"startFrequency"` // Hz
	EndFrequency   int64  `yaml:"endFrequency" json:"endFrequency"`     // Hz
}

func (b *Band) Validate() error {
	if b.StartFrequency < FrequencyMin || b.StartFrequency > FrequencyMax {
		return fmt.Errorf("analyzer.Band: start frequency must be between %d and %d: %d", FrequencyMin, FrequencyMax, b.StartFrequency)
	}
	if b.EndFrequency < FrequencyMin || b.EndFrequency > FrequencyMax {
		return fmt.Errorf("analyzer.Band: end frequency must be between %d and %d: %d", FrequencyMin, FrequencyMax, b.EndFrequency)
	}
	if b.EndFrequency <= b.StartFrequency {
		return fmt.Errorf("analyzer.Band: end frequency must be greater than start: %d <= %d", b.EndFrequency, b.StartFrequency)
	}
	return nil
}

// StatsOptions selects which statistics are written to the stats output.
// LogPointStats and LogReadings only take effect together with LogSummary.
type StatsOptions struct {
	LogSummary    bool `yaml:"logSummary" json:"logSummary"`
	LogPointStats bool `yaml:"logPointStats" json:"logPointStats"`
	LogReadings   bool `yaml:"logReadings" json:"logReadings"`
}

// Config is the scan configuration
type Config struct {
	Band            Band         `yaml:"band" json:"band"`
	ScanPoints      int          `yaml:"scanPoints" json:"scanPoints"`           // Number of sample groups per scan
	PointsPerSample int          `yaml:"pointsPerSample" json:"pointsPerSample"` // Readings per sample group
	Detector        DetectorKind `yaml:"detector" json:"detector"`
	RepeatCount     int          `yaml:"repeatCount" json:"repeatCount"`
	ScanPause       Duration     `yaml:"scanPause" json:"scanPause"` // Delay between repeated scans
	Stats           StatsOptions `yaml:"stats" json:"stats"`
}

// NewConfig returns a Config with defaults for everything except the band
func NewConfig() *Config {
	return &Config{
		ScanPoints:      DefaultScanPoints,
		PointsPerSample: DefaultPointsPerSample,
		Detector:        DetectorDiode,
		RepeatCount:     DefaultRepeatCount,
		ScanPause:       Duration(DefaultScanPause),
	}
}

func (c *Config) Validate() error {
	if err := c.Band.Validate(); err != nil {
		return err
	}

	if c.ScanPoints < 2 {
		return fmt.Errorf("analyzer.Config: scan points must be at least 2: %d", c.ScanPoints)
	}
	if span := c.Band.EndFrequency - c.Band.StartFrequency; int64(c.ScanPoints-1) > span {
		return fmt.Errorf("analyzer.Config: %d scan points do not fit into %d Hz", c.ScanPoints, span)
	}
	if c.PointsPerSample < 2 || c.PointsPerSample > stats.MaxGroupSize {
		return fmt.Errorf("analyzer.Config: points per sample must be between 2 and %d: %d", stats.MaxGroupSize, c.PointsPerSample)
	}

	if _, ok := validDetectors[c.Detector]; !ok {
		return fmt.Errorf("analyzer.Config: invalid detector: %s", c.Detector)
	}

	if c.RepeatCount < MinRepeatCount || c.RepeatCount > MaxRepeatCount {
		return fmt.Errorf("analyzer.Config: repeat count must be between %d and %d: %d", MinRepeatCount, MaxRepeatCount, c.RepeatCount)
	}
	if pause := time.Duration(c.ScanPause); pause < time.Second || pause > MaxScanPause {
		return fmt.Errorf("analyzer.Config: scan pause must be between 1s and %s: %s", MaxScanPause, pause)
	}

	if !c.Stats.LogSummary && (c.Stats.LogPointStats || c.Stats.LogReadings) {
		return fmt.Errorf("analyzer.Config: point stats and individual readings require logSummary")
	}

	return nil
}

// Frequency returns the frequency of scan point i in Hz
func (c *Config) Frequency(i int) int64 {
	span := c.Band.EndFrequency - c.Band.StartFrequency
	return c.Band.StartFrequency + span*int64(i)/int64(c.ScanPoints-1)
}
