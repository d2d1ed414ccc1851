// Package storage persists sounding sessions and their per-frame results in
// a SQLite database: detections, channel metrics (with the frequency-response
// vector as a blob), angle estimates and decoded messages.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/phaseline/phylink/internal/csi"
	"github.com/phaseline/phylink/internal/dsp"
	"github.com/phaseline/phylink/internal/spatial"
)

// Store handles database operations. Connections are opened lazily: a write
// connection with WAL journaling for the collection path and a read-only
// connection for readers.
type Store struct {
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

// New creates a store for the database at dbPath. The schema is initialized
// on first write.
func New(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

func (s *Store) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL", s.dbPath))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if _, err = db.Exec(schemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *Store) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", s.dbPath))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

// CreateSession records the start of an application run and returns its ID.
// config may be nil or a serialized configuration string.
func (s *Store) CreateSession(ctx context.Context, mode string, config *string) (sessionID int64, err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return 0, err
	}

	var configData sql.NullString
	if config != nil {
		configData = sql.NullString{String: *config, Valid: true}
	}

	result, err := db.ExecContext(ctx, insertSessionSQL, mode, configData)
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}

	if sessionID, err = result.LastInsertId(); err != nil {
		return 0, fmt.Errorf("getting session ID: %w", err)
	}
	return sessionID, nil
}

// Session retrieves one session by ID.
func (s *Store) Session(ctx context.Context, id int64) (*Session, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, err
	}

	var sess Session
	var config sql.NullString
	if err = db.QueryRowContext(ctx, selectSessionSQL, id).
		Scan(&sess.ID, &sess.StartTime, &sess.Mode, &config); err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	if config.Valid {
		sess.Config = &config.String
	}
	return &sess, nil
}

// Sessions returns all sessions ordered by start time.
func (s *Store) Sessions(ctx context.Context) (sessions []*Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess Session
		var config sql.NullString
		if err = rows.Scan(&sess.ID, &sess.StartTime, &sess.Mode, &config); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		if config.Valid {
			sess.Config = &config.String
		}
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

// StoreDetection persists one matched-filter detection. The correlation
// vectors are not stored, only the scalar outcome.
func (s *Store) StoreDetection(ctx context.Context, sessionID int64, ts time.Time, d *dsp.Detection) error {
	db, err := s.getWriteDB()
	if err != nil {
		return err
	}

	if _, err = db.ExecContext(ctx, insertDetectionSQL,
		sessionID, ts.UTC(), d.PeakIndex, d.PeakValue, d.SNRdB, d.NoiseFloor); err != nil {
		return fmt.Errorf("inserting detection: %w", err)
	}
	return nil
}

// StoreMetrics persists channel metrics with the optional anomaly decision.
func (s *Store) StoreMetrics(ctx context.Context, sessionID int64, ts time.Time, m *csi.Metrics, decision *csi.Decision) error {
	db, err := s.getWriteDB()
	if err != nil {
		return err
	}

	var score sql.NullFloat64
	var detected sql.NullBool
	if decision != nil && decision.State == csi.Monitoring {
		score = sql.NullFloat64{Float64: decision.Score, Valid: true}
		detected = sql.NullBool{Bool: decision.Detected, Valid: true}
	}

	if _, err = db.ExecContext(ctx, insertMetricsSQL,
		sessionID, ts.UTC(), m.RMSDelaySpread, m.CoherenceBandwidth,
		score, detected, encodeVector(m.CFRMagDB)); err != nil {
		return fmt.Errorf("inserting channel metrics: %w", err)
	}
	return nil
}

// StoreAngle persists one angle-of-arrival estimate.
func (s *Store) StoreAngle(ctx context.Context, sessionID int64, ts time.Time, a spatial.AngleEstimate) error {
	db, err := s.getWriteDB()
	if err != nil {
		return err
	}

	if _, err = db.ExecContext(ctx, insertAngleSQL,
		sessionID, ts.UTC(), a.AngleDeg, a.RawPhaseRad, a.CorrectedPhaseRad); err != nil {
		return fmt.Errorf("inserting angle estimate: %w", err)
	}
	return nil
}

// StoreMessage persists one decoded modem message.
func (s *Store) StoreMessage(ctx context.Context, sessionID int64, ts time.Time, text string) error {
	db, err := s.getWriteDB()
	if err != nil {
		return err
	}

	if _, err = db.ExecContext(ctx, insertMessageSQL, sessionID, ts.UTC(), text); err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// CFRHistory returns the stored frequency-response rows of a session in time
// order, decoded for rendering.
func (s *Store) CFRHistory(ctx context.Context, sessionID int64) (records []CFRRecord, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectCFRHistorySQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying channel metrics: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var rec CFRRecord
		var score sql.NullFloat64
		var blob []byte
		if err = rows.Scan(&rec.Timestamp, &rec.RMSDelaySpread, &rec.CoherenceBandwidth, &score, &blob); err != nil {
			return nil, fmt.Errorf("scanning channel metrics: %w", err)
		}
		if score.Valid {
			rec.AnomalyScore = &score.Float64
		}
		if rec.CFRMagDB, err = decodeVector(blob); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close releases both connections. Safe to call multiple times.
func (s *Store) Close() error {
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

		if writeErr != nil || readErr != nil {
			s.closeErr = errors.Join(writeErr, readErr)
		}
	})

	return s.closeErr
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
