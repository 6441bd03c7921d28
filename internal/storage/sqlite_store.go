package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/antenna-analyzer/internal/analyzer"
	"github.com/roman-kulish/antenna-analyzer/internal/stats"
)

var _ Store = (*SqliteStore)(nil)

const (
	// maxSQLVariables is the Sqlite limit of host parameters in one statement
	maxSQLVariables = 32766

	scanPointColumns    = 5
	scanPointsBatchSize = maxSQLVariables / scanPointColumns
)

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a new store backed by the Sqlite database at dbPath.
// Connections are opened on first use; the schema is created with the write connection.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateSession(ctx context.Context, source string, config any) (sessionID int64, err error) {
	configData, err := toConfigData(config)
	if err != nil {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, time.Now().UTC(), source, configData)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	sessionID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
	}
	return
}

func (s *SqliteStore) Session(ctx context.Context, id int64) (session *ScanSession, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var sess ScanSession
	var config sql.NullString
	if err = stmt.QueryRowContext(ctx, id).Scan(&sess.ID, &sess.StartTime, &sess.Source, &config); err != nil {
		err = noDataOr(fmt.Errorf("scanning session: %w", err))
		return
	}
	sess.Config = fromConfigData(config)

	return &sess, nil
}

func (s *SqliteStore) Sessions(ctx context.Context) (sessions []*ScanSession, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		err = fmt.Errorf("querying sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess ScanSession
		var config sql.NullString
		if err = rows.Scan(&sess.ID, &sess.StartTime, &sess.Source, &config); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		sess.Config = fromConfigData(config)
		sessions = append(sessions, &sess)
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) StoreScan(ctx context.Context, sessionID int64, result *analyzer.Result) (scanID int64, err error) {
	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		err = fmt.Errorf("beginning transaction: %w", err)
		return
	}
	defer rollbackWithError(tx, &err)

	res, err := tx.ExecContext(ctx, insertScanSQL,
		sessionID,
		result.StartTime.UTC(),
		result.Duration.Milliseconds(),
		result.Band.Name,
		result.Band.StartFrequency,
		result.Band.EndFrequency,
		result.PointsPerSample,
	)
	if err != nil {
		err = fmt.Errorf("inserting scan: %w", err)
		return
	}

	if scanID, err = res.LastInsertId(); err != nil {
		err = fmt.Errorf("getting scan ID: %w", err)
		return
	}

	if err = insertScanPoints(ctx, tx, scanID, result.Points); err != nil {
		return
	}

	sm := result.Summary
	_, err = tx.ExecContext(ctx, insertScanSummarySQL,
		scanID,
		sm.MinSWR,
		sm.MaxSWR,
		sm.Forward.AvgMinReading,
		sm.Forward.AvgMaxReading,
		sm.Forward.AvgSD,
		sm.Reverse.AvgMinReading,
		sm.Reverse.AvgMaxReading,
		sm.Reverse.AvgSD,
		sm.GroupsComputed,
		sm.ScanGroupCount,
	)
	if err != nil {
		err = fmt.Errorf("inserting scan summary: %w", err)
		return
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("committing transaction: %w", err)
	}
	return
}

// insertScanPoints writes points with multi-row inserts, splitting them so that
// a single statement stays within the Sqlite host parameter limit.
func insertScanPoints(ctx context.Context, tx *sql.Tx, scanID int64, points []analyzer.Point) error {
	for start := 0; start < len(points); start += scanPointsBatchSize {
		end := min(start+scanPointsBatchSize, len(points))
		if err := insertScanPointsBatch(ctx, tx, scanID, points[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func insertScanPointsBatch(ctx context.Context, tx *sql.Tx, scanID int64, points []analyzer.Point) error {
	values := make([]interface{}, 0, len(points)*scanPointColumns)

	// Build batch insert query
	valuesPlaceholder := "(?, ?, ?, ?, ?)"

	var sb strings.Builder

	sb.WriteString(insertScanPointSQL)

	for i, p := range points {
		values = append(values, scanID, p.Frequency, p.ForwardMean, p.ReverseMean, p.VSWR)

		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(valuesPlaceholder)
	}

	if _, err := tx.ExecContext(ctx, sb.String(), values...); err != nil {
		return fmt.Errorf("batch inserting scan points: %w", err)
	}
	return nil
}

func (s *SqliteStore) Scan(ctx context.Context, scanID int64) (scan *ScanRecord, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectScanSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	if scan, err = scanScanRecord(stmt.QueryRowContext(ctx, scanID)); err != nil {
		err = noDataOr(err)
	}
	return
}

func (s *SqliteStore) Scans(ctx context.Context, sessionID int64) (scans []*ScanRecord, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectScansSQL, sessionID)
	if err != nil {
		err = fmt.Errorf("querying scans: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var scan *ScanRecord
		if scan, err = scanScanRecord(rows); err != nil {
			return
		}
		scans = append(scans, scan)
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) ScanPoints(ctx context.Context, scanID int64) (points []analyzer.Point, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectScanPointsSQL, scanID)
	if err != nil {
		err = fmt.Errorf("querying scan points: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var p analyzer.Point
		if err = rows.Scan(&p.Frequency, &p.ForwardMean, &p.ReverseMean, &p.VSWR); err != nil {
			err = fmt.Errorf("scanning scan point: %w", err)
			return
		}
		points = append(points, p)
	}
	if err = rows.Err(); err != nil {
		return
	}

	if len(points) == 0 {
		err = ErrNoData
	}
	return
}

func (s *SqliteStore) ScanSummary(ctx context.Context, scanID int64) (summary *stats.Summary, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	var sm stats.Summary
	err = db.QueryRowContext(ctx, selectScanSummarySQL, scanID).Scan(
		&sm.MinSWR,
		&sm.MaxSWR,
		&sm.Forward.AvgMinReading,
		&sm.Forward.AvgMaxReading,
		&sm.Forward.AvgSD,
		&sm.Reverse.AvgMinReading,
		&sm.Reverse.AvgMaxReading,
		&sm.Reverse.AvgSD,
		&sm.GroupsComputed,
		&sm.ScanGroupCount,
	)
	if err != nil {
		err = noDataOr(fmt.Errorf("scanning scan summary: %w", err))
		return
	}

	return &sm, nil
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}

func scanScanRecord(row interface{ Scan(...any) error }) (*ScanRecord, error) {
	var scan ScanRecord
	var durationMS int64
	err := row.Scan(
		&scan.ID,
		&scan.SessionID,
		&scan.StartTime,
		&durationMS,
		&scan.Band.Name,
		&scan.Band.StartFrequency,
		&scan.Band.EndFrequency,
		&scan.PointsPerSample,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning scan: %w", err)
	}

	scan.Duration = time.Duration(durationMS) * time.Millisecond
	return &scan, nil
}

// noDataOr converts sql.ErrNoRows into ErrNoData
func noDataOr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNoData, err)
	}
	return err
}
