package storage

import (
	"time"

	"github.com/roman-kulish/antenna-analyzer/internal/analyzer"
)

// ScanSession represents a single run of the analyzer with a specific source.
type ScanSession struct {
	ID        int64     `json:"ID"`                      // Unique identifier for the session
	StartTime time.Time `json:"startTime"`               // When the session began
	Source    string    `json:"source"`                  // Reading source (e.g., "simulator", "file")
	Config    *string   `json:"config,string,omitempty"` // Optional scan configuration in JSON format
}

// ScanRecord is a stored scan without its points
type ScanRecord struct {
	ID              int64         `json:"ID"`
	SessionID       int64         `json:"sessionID"`
	StartTime       time.Time     `json:"startTime"`
	Duration        time.Duration `json:"duration"`
	Band            analyzer.Band `json:"band"`
	PointsPerSample int           `json:"pointsPerSample"`
}
