package storage

import (
	"context"
	"errors"

	"github.com/roman-kulish/antenna-analyzer/internal/analyzer"
	"github.com/roman-kulish/antenna-analyzer/internal/stats"
)

// ErrNoData indicates that no data exists for the given parameters
var ErrNoData = errors.New("no data available")

// Store provides an interface for persisting analyzer scans.
// All operations that write to the database are atomic.
type Store interface {
	// CreateSession initializes a new analyzer session and returns its unique identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - source: Name of the reading source (e.g., "simulator", "file")
	//   - config: Optional scan configuration. Can be string, []byte, or JSON-serializable object
	CreateSession(ctx context.Context, source string, config any) (sessionID int64, err error)

	// Session retrieves a specific session by its ID.
	Session(ctx context.Context, id int64) (session *ScanSession, err error)

	// Sessions returns all sessions ordered by start time.
	Sessions(ctx context.Context) (sessions []*ScanSession, err error)

	// StoreScan saves a scan result, its points and its statistics summary
	// in a single transaction.
	StoreScan(ctx context.Context, sessionID int64, result *analyzer.Result) (scanID int64, err error)

	// Scan returns a stored scan without its points.
	Scan(ctx context.Context, scanID int64) (scan *ScanRecord, err error)

	// Scans returns all scans of a session ordered by start time.
	Scans(ctx context.Context, sessionID int64) (scans []*ScanRecord, err error)

	// ScanPoints returns the points of a scan ordered by frequency.
	ScanPoints(ctx context.Context, scanID int64) (points []analyzer.Point, err error)

	// ScanSummary returns the statistics summary of a scan.
	ScanSummary(ctx context.Context, scanID int64) (summary *stats.Summary, err error)

	// Close releases all database connections and resources.
	// It is safe to call Close multiple times.
	Close() error
}
