// Package audit persists verification runs for later inspection and
// regression testing. Recording is best-effort and off the request's
// critical path; the store itself answers "which claim caused the
// rejection" queries over past runs.
package audit

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/akranz/factgate/internal/model"
)

// Store handles SQLite persistence of verification runs.
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Record is one persisted verification run, minus its per-claim rows.
type Record struct {
	RequestID         string
	OverallConfidence float64
	Verdict           string
	ClaimCount        int
	Annotations       []string
	CreatedAt         time.Time
}

// ResultRow is one persisted per-claim result.
type ResultRow struct {
	RequestID       string
	ClaimIndex      int
	Raw             string
	EntityID        string
	MetricID        string
	Period          string
	ClaimedValue    float64
	CanonicalValue  *float64
	Unit            string
	DeviationRatio  *float64
	Classification  string
	Weight          float64
	DefaultedPeriod bool
	DefaultedEntity bool
}

// Open creates a store at the given path, creating tables if needed.
// ":memory:" works for tests; file databases use WAL for concurrent reads.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS verifications (
		request_id TEXT PRIMARY KEY,
		overall_confidence REAL NOT NULL,
		verdict TEXT NOT NULL,
		claim_count INTEGER NOT NULL,
		annotations TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_verifications_created ON verifications(created_at DESC);

	CREATE TABLE IF NOT EXISTS verification_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		claim_index INTEGER NOT NULL,
		raw TEXT,
		entity_id TEXT,
		metric_id TEXT,
		period TEXT,
		claimed_value REAL,
		canonical_value REAL,
		unit TEXT,
		deviation_ratio REAL,
		classification TEXT NOT NULL,
		weight REAL NOT NULL,
		defaulted_period INTEGER DEFAULT 0,
		defaulted_entity INTEGER DEFAULT 0,
		FOREIGN KEY (request_id) REFERENCES verifications(request_id)
	);

	CREATE INDEX IF NOT EXISTS idx_results_request ON verification_results(request_id);
	CREATE INDEX IF NOT EXISTS idx_results_class ON verification_results(classification);
	CREATE INDEX IF NOT EXISTS idx_results_entity ON verification_results(entity_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save persists one verification run with all its per-claim results.
func (s *Store) Save(rv model.ResponseVerification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO verifications (request_id, overall_confidence, verdict, claim_count, annotations, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_id) DO NOTHING
	`, rv.RequestID, rv.OverallConfidence, string(rv.Verdict), len(rv.Results),
		strings.Join(rv.Annotations, "\n"), rv.CreatedAt)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO verification_results
			(request_id, claim_index, raw, entity_id, metric_id, period, claimed_value,
			 canonical_value, unit, deviation_ratio, classification, weight,
			 defaulted_period, defaulted_entity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rv.Results {
		var entityID, metricID, period, unit string
		var canonical *float64
		if r.Fact != nil {
			entityID = r.Fact.EntityID
			metricID = r.Fact.MetricID
			period = r.Fact.Period.Key()
			unit = string(r.Fact.Unit)
			v := r.Fact.BaseValue()
			canonical = &v
		} else {
			entityID = r.Claim.EntityID
			metricID = r.Claim.MetricID
			unit = string(r.Claim.Unit)
		}

		_, err = stmt.Exec(
			rv.RequestID, r.Claim.Index, r.Claim.Raw, entityID, metricID, period,
			r.Claim.BaseValue(), canonical, unit, r.DeviationRatio,
			string(r.Classification), r.Weight,
			boolInt(r.DefaultedPeriod), boolInt(r.DefaultedEntity),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT request_id, overall_confidence, verdict, claim_count, annotations, created_at
		FROM verifications ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ByRequest returns one run's summary, or nil if unknown.
func (s *Store) ByRequest(requestID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT request_id, overall_confidence, verdict, claim_count, annotations, created_at
		FROM verifications WHERE request_id = ?
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return &records[0], nil
}

// Results returns the per-claim rows of one run, in claim order.
func (s *Store) Results(requestID string) ([]ResultRow, error) {
	return s.queryResults(`request_id = ?`, requestID, 0)
}

// ByClassification returns recent rows with the given classification.
func (s *Store) ByClassification(classification string, limit int) ([]ResultRow, error) {
	return s.queryResults(`classification = ?`, classification, limit)
}

// ByEntity returns recent rows for the given entity.
func (s *Store) ByEntity(entityID string, limit int) ([]ResultRow, error) {
	return s.queryResults(`entity_id = ?`, entityID, limit)
}

func (s *Store) queryResults(where string, arg string, limit int) ([]ResultRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := `
		SELECT request_id, claim_index, raw, entity_id, metric_id, period, claimed_value,
		       canonical_value, unit, deviation_ratio, classification, weight,
		       defaulted_period, defaulted_entity
		FROM verification_results WHERE ` + where + ` ORDER BY id`
	args := []interface{}{arg}
	if limit > 0 {
		q += ` DESC LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ResultRow
	for rows.Next() {
		var r ResultRow
		var defPeriod, defEntity int
		if err := rows.Scan(
			&r.RequestID, &r.ClaimIndex, &r.Raw, &r.EntityID, &r.MetricID, &r.Period,
			&r.ClaimedValue, &r.CanonicalValue, &r.Unit, &r.DeviationRatio,
			&r.Classification, &r.Weight, &defPeriod, &defEntity,
		); err != nil {
			return nil, err
		}
		r.DefaultedPeriod = defPeriod != 0
		r.DefaultedEntity = defEntity != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var rec Record
		var annotations string
		if err := rows.Scan(&rec.RequestID, &rec.OverallConfidence, &rec.Verdict,
			&rec.ClaimCount, &annotations, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if annotations != "" {
			rec.Annotations = strings.Split(annotations, "\n")
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
