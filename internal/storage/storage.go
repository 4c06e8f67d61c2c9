// Package storage provides SQLite-backed persistence for dispatched alerts,
// kept for inspection after the fact. The dedup cache deliberately lives in
// its own flat file (internal/dedup); this store is history only.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"edgescout/internal/models"
)

// Alert kinds recorded in the history table.
const (
	KindValue = "value"
	KindTrend = "trend"
)

// DispatchRecord is one successfully dispatched alert.
type DispatchRecord struct {
	Fingerprint string
	Kind        string
	Subject     string
	Outcome     string
	Book        string
	Price       float64
	FairProb    float64
	Edge        float64
	Kelly       float64
	Basis       string
	Points      []int
	SentAt      time.Time
}

// Storage wraps a SQLite database holding the dispatch history.
type Storage struct {
	db        *sql.DB
	maxAlerts int
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/edgescout/data.db.
func New(maxAlerts int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "edgescout", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db, maxAlerts: maxAlerts}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS dispatched_alerts (
			fingerprint TEXT PRIMARY KEY,
			kind        TEXT NOT NULL,
			subject     TEXT NOT NULL,
			outcome     TEXT,
			book        TEXT,
			price       REAL,
			fair_prob   REAL,
			edge        REAL,
			kelly       REAL,
			basis       TEXT,
			points      TEXT NOT NULL DEFAULT '[]',
			sent_at     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dispatched_sent_at ON dispatched_alerts(sent_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// AddValueAlert records a dispatched value alert under its fingerprint.
func (s *Storage) AddValueAlert(fingerprint string, a models.ValueAlert) error {
	subject := fmt.Sprintf("%s vs %s", a.AwayTeam, a.HomeTeam)
	return s.insert(DispatchRecord{
		Fingerprint: fingerprint,
		Kind:        KindValue,
		Subject:     subject,
		Outcome:     a.Outcome,
		Book:        a.Book,
		Price:       a.Price,
		FairProb:    a.FairProb,
		Edge:        a.Edge,
		Kelly:       a.Kelly,
		Basis:       a.Basis,
		SentAt:      a.DetectedAt,
	})
}

// AddTrendAlert records a dispatched trend alert under its fingerprint.
func (s *Storage) AddTrendAlert(fingerprint string, a models.TrendAlert) error {
	return s.insert(DispatchRecord{
		Fingerprint: fingerprint,
		Kind:        KindTrend,
		Subject:     a.PlayerName,
		Outcome:     a.Pattern,
		Points:      a.Points,
		SentAt:      a.DetectedAt,
	})
}

func (s *Storage) insert(rec DispatchRecord) error {
	pointsJSON, err := json.Marshal(rec.Points)
	if err != nil {
		return fmt.Errorf("failed to marshal points: %w", err)
	}
	if rec.Points == nil {
		pointsJSON = []byte("[]")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO dispatched_alerts
			(fingerprint, kind, subject, outcome, book, price, fair_prob,
			 edge, kelly, basis, points, sent_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.Fingerprint, rec.Kind, rec.Subject, rec.Outcome, rec.Book,
		rec.Price, rec.FairProb, rec.Edge, rec.Kelly, rec.Basis,
		string(pointsJSON), rec.SentAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	if _, err = tx.Exec(`
		DELETE FROM dispatched_alerts WHERE fingerprint NOT IN (
			SELECT fingerprint FROM dispatched_alerts ORDER BY sent_at DESC LIMIT ?
		)`, s.maxAlerts); err != nil {
		return fmt.Errorf("failed to enforce alert cap: %w", err)
	}

	return tx.Commit()
}

// Recent returns the most recently dispatched alerts, newest first.
func (s *Storage) Recent(limit int) ([]DispatchRecord, error) {
	rows, err := s.db.Query(`
		SELECT fingerprint, kind, subject, outcome, book, price, fair_prob,
		       edge, kelly, basis, points, sent_at
		FROM dispatched_alerts ORDER BY sent_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var records []DispatchRecord
	for rows.Next() {
		var rec DispatchRecord
		var pointsJSON string
		var sentAtNano int64

		err := rows.Scan(
			&rec.Fingerprint, &rec.Kind, &rec.Subject, &rec.Outcome, &rec.Book,
			&rec.Price, &rec.FairProb, &rec.Edge, &rec.Kelly, &rec.Basis,
			&pointsJSON, &sentAtNano,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}

		if err := json.Unmarshal([]byte(pointsJSON), &rec.Points); err != nil {
			return nil, fmt.Errorf("failed to unmarshal points: %w", err)
		}
		rec.SentAt = time.Unix(0, sentAtNano)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Count returns the number of stored history rows.
func (s *Storage) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM dispatched_alerts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return n, nil
}
