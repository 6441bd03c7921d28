package analyzer

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/antenna-analyzer/internal/detector"
	"github.com/roman-kulish/antenna-analyzer/internal/stats"
)

// scriptedSource returns readings from a function of the tuned frequency
type scriptedSource struct {
	freq   int64
	tuned  []int64
	reads  int
	values func(hz int64, n int) detector.Reading
}

func (s *scriptedSource) Tune(_ context.Context, hz int64) error {
	s.freq = hz
	s.tuned = append(s.tuned, hz)
	return nil
}

func (s *scriptedSource) Read(_ context.Context) (detector.Reading, error) {
	s.reads++
	return s.values(s.freq, s.reads), nil
}

func (s *scriptedSource) Name() string {
	return "scripted"
}

func testConfig() *Config {
	c := NewConfig()
	c.Band = Band{Name: "20m", StartFrequency: 14_000_000, EndFrequency: 14_350_000}
	c.ScanPoints = 8
	c.PointsPerSample = 4
	return c
}

func TestVSWR(t *testing.T) {
	testCases := []struct {
		name     string
		forward  float64
		reverse  float64
		kind     DetectorKind
		expected float64
	}{
		{"matched load", 800, 0, DetectorDiode, 1.0},
		{"half reflected", 100, 50, DetectorDiode, 3.0},
		{"open circuit", 500, 500, DetectorDiode, MaxVSWR},
		{"reverse above forward", 100, 120, DetectorDiode, MaxVSWR},
		{"no forward power", 0, 0, DetectorDiode, MaxVSWR},
		{"ad8307 20dB return loss", 602.4, 500, DetectorAD8307, 11.0 / 9.0},
		{"ad8307 no return loss", 500, 500, DetectorAD8307, MaxVSWR},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := VSWR(tc.forward, tc.reverse, tc.kind)
			if math.Abs(got-tc.expected) > 1e-6 {
				t.Errorf("expected %f, got %f", tc.expected, got)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := testConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	testCases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"start below synthesizer range", func(c *Config) { c.Band.StartFrequency = 50_000 }},
		{"end above synthesizer range", func(c *Config) { c.Band.EndFrequency = 70_000_000 }},
		{"reversed band", func(c *Config) { c.Band.StartFrequency, c.Band.EndFrequency = 14_350_000, 14_000_000 }},
		{"single scan point", func(c *Config) { c.ScanPoints = 1 }},
		{"more points than hertz", func(c *Config) { c.Band.EndFrequency = c.Band.StartFrequency + 3 }},
		{"group of one", func(c *Config) { c.PointsPerSample = 1 }},
		{"group above capacity", func(c *Config) { c.PointsPerSample = 76 }},
		{"unknown detector", func(c *Config) { c.Detector = "bolometer" }},
		{"repeat count too low", func(c *Config) { c.RepeatCount = 5 }},
		{"repeat count too high", func(c *Config) { c.RepeatCount = 101 }},
		{"pause too long", func(c *Config) { c.ScanPause = Duration(2 * time.Minute) }},
		{"point stats without summary", func(c *Config) { c.Stats.LogPointStats = true }},
		{"readings without summary", func(c *Config) { c.Stats.LogReadings = true }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := testConfig()
			tc.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfig_UnmarshalYAML(t *testing.T) {
	input := `
band:
  name: 40m
  startFrequency: 7000000
  endFrequency: 7300000
scanPoints: 60
detector: ad8307
scanPause: 5s
stats:
  logSummary: true
`
	c := NewConfig()
	if err := yaml.Unmarshal([]byte(input), c); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if c.Band.Name != "40m" || c.ScanPoints != 60 || c.Detector != DetectorAD8307 {
		t.Errorf("unexpected config: %+v", c)
	}
	if time.Duration(c.ScanPause) != 5*time.Second {
		t.Errorf("expected 5s pause, got %s", c.ScanPause)
	}
	if c.PointsPerSample != DefaultPointsPerSample || c.RepeatCount != DefaultRepeatCount {
		t.Errorf("defaults not kept: %+v", c)
	}
}

func TestConfig_Frequency(t *testing.T) {
	c := testConfig()
	c.ScanPoints = 8

	if f := c.Frequency(0); f != 14_000_000 {
		t.Errorf("first point: expected 14000000, got %d", f)
	}
	if f := c.Frequency(7); f != 14_350_000 {
		t.Errorf("last point: expected 14350000, got %d", f)
	}
	if f := c.Frequency(1); f != 14_050_000 {
		t.Errorf("second point: expected 14050000, got %d", f)
	}
}

func TestScanner_Scan(t *testing.T) {
	config := testConfig()
	config.Stats = StatsOptions{LogSummary: true, LogPointStats: true, LogReadings: true}

	// Reflection grows away from 14.175 MHz; readings alternate by +-2 around the mean.
	src := &scriptedSource{values: func(hz int64, n int) detector.Reading {
		offset := math.Abs(float64(hz-14_175_000)) / 1000
		jitter := uint16(2)
		if n%2 == 0 {
			return detector.Reading{Forward: 800 + jitter, Reverse: uint16(20+offset) + jitter}
		}
		return detector.Reading{Forward: 800 - jitter, Reverse: uint16(20+offset) - jitter}
	}}

	var out bytes.Buffer
	scanner, err := NewScanner(src, config, WithStatsOutput(&out))
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}

	result, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(result.Points) != config.ScanPoints {
		t.Fatalf("expected %d points, got %d", config.ScanPoints, len(result.Points))
	}
	if len(src.tuned) != config.ScanPoints || src.reads != config.ScanPoints*config.PointsPerSample {
		t.Errorf("unexpected source usage: %d tunes, %d reads", len(src.tuned), src.reads)
	}

	for i, p := range result.Points {
		if p.Frequency != config.Frequency(i) {
			t.Errorf("point %d: expected frequency %d, got %d", i, config.Frequency(i), p.Frequency)
		}
		if p.ForwardMean != 800 {
			t.Errorf("point %d: expected forward mean 800, got %f", i, p.ForwardMean)
		}
		if want := VSWR(p.ForwardMean, p.ReverseMean, DetectorDiode); p.VSWR != want {
			t.Errorf("point %d: expected VSWR %f, got %f", i, want, p.VSWR)
		}
	}

	best, ok := result.Best()
	if !ok {
		t.Fatal("expected a best point")
	}
	if best.Frequency != 14_150_000 && best.Frequency != 14_200_000 {
		t.Errorf("expected best point next to 14.175 MHz, got %d", best.Frequency)
	}
	if result.Summary.MinSWR != best.VSWR {
		t.Errorf("summary min SWR %f does not match best point %f", result.Summary.MinSWR, best.VSWR)
	}
	if result.Summary.GroupsComputed != config.ScanPoints {
		t.Errorf("expected %d groups computed, got %d", config.ScanPoints, result.Summary.GroupsComputed)
	}
	if want := 2 * math.Sqrt(4.0/3.0); math.Abs(result.Summary.Forward.AvgSD-want) > 1e-9 {
		t.Errorf("expected forward average SD %f, got %f", want, result.Summary.Forward.AvgSD)
	}

	text := out.String()
	if n := strings.Count(text, "fwdReading: "); n != config.ScanPoints*config.PointsPerSample {
		t.Errorf("expected %d reading lines, got %d", config.ScanPoints*config.PointsPerSample, n)
	}
	if n := strings.Count(text, "  fwdSD: "); n != config.ScanPoints {
		t.Errorf("expected %d point stats, got %d", config.ScanPoints, n)
	}
	if n := strings.Count(text, "***Statistics Summary***"); n != 1 {
		t.Errorf("expected one summary, got %d", n)
	}
}

func TestScanner_StatsOutputDisabled(t *testing.T) {
	src := &scriptedSource{values: func(int64, int) detector.Reading {
		return detector.Reading{Forward: 700, Reverse: 70}
	}}

	var out bytes.Buffer
	scanner, err := NewScanner(src, testConfig(), WithStatsOutput(&out))
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}

	if _, err = scanner.Scan(context.Background()); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no stats output, got %q", out.String())
	}
}

func TestScanner_RepeatedScansAreIndependent(t *testing.T) {
	config := testConfig()
	readsPerScan := config.ScanPoints * config.PointsPerSample

	// The first scan sees a weak forward signal, the second a strong one.
	src := &scriptedSource{values: func(_ int64, n int) detector.Reading {
		if n <= readsPerScan {
			return detector.Reading{Forward: 100, Reverse: uint16(10 + n%2)}
		}
		return detector.Reading{Forward: 600, Reverse: uint16(60 + n%2)}
	}}

	scanner, err := NewScanner(src, config)
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}

	first, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("first Scan: %v", err)
	}
	second, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}

	testCases := []struct {
		name     string
		summary  stats.ChannelSummary
		min, max float64
	}{
		{"first forward", first.Summary.Forward, 100, 100},
		{"first reverse", first.Summary.Reverse, 10, 11},
		{"second forward", second.Summary.Forward, 600, 600},
		{"second reverse", second.Summary.Reverse, 60, 61},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.summary.AvgMinReading != tc.min || tc.summary.AvgMaxReading != tc.max {
				t.Errorf("expected average min/max %0.2f/%0.2f, got %0.2f/%0.2f",
					tc.min, tc.max, tc.summary.AvgMinReading, tc.summary.AvgMaxReading)
			}
		})
	}

	if second.Summary.GroupsComputed != config.ScanPoints {
		t.Errorf("expected %d groups in the second scan, got %d", config.ScanPoints, second.Summary.GroupsComputed)
	}
}

func TestScanner_Cancelled(t *testing.T) {
	sim, err := detector.NewSimulator(detector.SimulatorConfig{
		ResonantFrequency: 14_175_000, Q: 10, MinVSWR: 1.2, ForwardLevel: 800, Noise: 1, Seed: 1,
	})
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}

	scanner, err := NewScanner(sim, testConfig())
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err = scanner.Scan(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestScanner_SourceExhausted(t *testing.T) {
	src := detector.NewLineSource(strings.NewReader("14000000,800,40\n"))

	scanner, err := NewScanner(src, testConfig())
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}

	if _, err = scanner.Scan(context.Background()); !errors.Is(err, detector.ErrSourceExhausted) {
		t.Errorf("expected ErrSourceExhausted, got %v", err)
	}
}
