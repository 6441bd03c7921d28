package app

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/antenna-analyzer/internal/analyzer"
	"github.com/roman-kulish/antenna-analyzer/internal/detector"
)

const (
	SourceSimulator SourceType = "simulator"
	SourceFile      SourceType = "file"
)

type SourceType string

// Config represents the main application configuration
type Config struct {
	Settings Settings        `yaml:"settings"`
	Scan     analyzer.Config `yaml:"scan"`
	Source   SourceConfig    `yaml:"source"`
	Storage  StorageConfig   `yaml:"storage"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// Level returns the configured log level, defaulting to info
func (s Settings) Level() (slog.Level, error) {
	var level slog.Level
	if s.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log level '%s': %w", s.LogLevel, err)
	}
	return level, nil
}

// SourceConfig selects and configures the reading source
type SourceConfig struct {
	Type      SourceType                `yaml:"type"`
	Simulator *detector.SimulatorConfig `yaml:"simulator"`
	File      *FileSourceConfig         `yaml:"file"`
}

// FileSourceConfig configures replaying readings captured from the analyzer
type FileSourceConfig struct {
	Path               string `yaml:"path"`
	FrequencyTolerance int64  `yaml:"frequencyTolerance"` // Hz, 0 disables the check
}

// StorageConfig represents storage settings
type StorageConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DataDirectory string `yaml:"dataDirectory"`
}

// LoadConfig reads and validates the YAML configuration file at path
func LoadConfig(path string) (*Config, error) {
	p, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Config{
		Scan: *analyzer.NewConfig(),
	}
	if err = yaml.Unmarshal(p, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if _, err := c.Settings.Level(); err != nil {
		return err
	}

	if err := c.Scan.Validate(); err != nil {
		return err
	}

	switch c.Source.Type {
	case SourceSimulator:
		if c.Source.Simulator == nil {
			return fmt.Errorf("simulator source requires 'simulator' settings")
		}
		return c.Source.Simulator.Validate()

	case SourceFile:
		if c.Source.File == nil || c.Source.File.Path == "" {
			return fmt.Errorf("file source requires 'file.path'")
		}
		if c.Source.File.FrequencyTolerance < 0 {
			return fmt.Errorf("file source frequency tolerance must not be negative: %d", c.Source.File.FrequencyTolerance)
		}
		return nil

	default:
		return fmt.Errorf("unknown source type '%s'", c.Source.Type)
	}
}
