// Package store is the SQLite-backed provenance record store: which runs
// exist and which source documents each run ingested. It is bookkeeping only;
// the state document remains the authoritative record of a run's progress.
package store

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mtian8/physics-agent/internal/errors"
)

// RunRecord is one row in the runs table.
type RunRecord struct {
	RunID     string
	Question  string
	CreatedAt string
}

// SourceRecord is one row in the sources table: an ingested document and its
// local and remote references.
type SourceRecord struct {
	ID         string
	RunID      string
	SourcePath string
	StoredPath string
	SHA256     string
	AddedAt    string
	// FileRef and StoreFileRef are opaque identifiers assigned by the
	// remote registration collaborator; empty when ingestion was local-only.
	FileRef      string
	StoreRef     string
	StoreFileRef string
}

// Store wraps the record database.
type Store struct {
	db   *sql.DB
	path string
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		source_path TEXT NOT NULL,
		stored_path TEXT NOT NULL,
		sha256 TEXT NOT NULL,
		added_at TEXT NOT NULL,
		file_ref TEXT,
		store_ref TEXT,
		store_file_ref TEXT
	)`,
}

// Open opens (creating if needed) the record database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewPersistenceError("open", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, errors.NewPersistenceError("open", path, err)
		}
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.NewPersistenceError("open", path, err)
		}
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun inserts or replaces a run row.
func (s *Store) RecordRun(runID, question string, createdAt time.Time) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO runs (run_id, question, created_at) VALUES (?, ?, ?)",
		runID, question, createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return errors.NewPersistenceError("write", s.path, err)
	}
	return nil
}

// GetRun fetches one run row.
func (s *Store) GetRun(runID string) (*RunRecord, error) {
	row := s.db.QueryRow(
		"SELECT run_id, question, created_at FROM runs WHERE run_id = ?", runID,
	)
	var rec RunRecord
	if err := row.Scan(&rec.RunID, &rec.Question, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("run", runID)
		}
		return nil, errors.NewPersistenceError("read", s.path, err)
	}
	return &rec, nil
}

// RecordSource inserts or replaces a source row.
func (s *Store) RecordSource(rec SourceRecord) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO sources
		 (id, run_id, source_path, stored_path, sha256, added_at, file_ref, store_ref, store_file_ref)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RunID, rec.SourcePath, rec.StoredPath, rec.SHA256,
		rec.AddedAt, rec.FileRef, rec.StoreRef, rec.StoreFileRef,
	)
	if err != nil {
		return errors.NewPersistenceError("write", s.path, err)
	}
	return nil
}

// ListSources returns every source record for a run in insertion order.
func (s *Store) ListSources(runID string) ([]SourceRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, source_path, stored_path, sha256, added_at, file_ref, store_ref, store_file_ref
		 FROM sources WHERE run_id = ? ORDER BY added_at, id`, runID,
	)
	if err != nil {
		return nil, errors.NewPersistenceError("read", s.path, err)
	}
	defer rows.Close()

	var records []SourceRecord
	for rows.Next() {
		rec := SourceRecord{RunID: runID}
		var fileRef, storeRef, storeFileRef sql.NullString
		if err := rows.Scan(&rec.ID, &rec.SourcePath, &rec.StoredPath, &rec.SHA256,
			&rec.AddedAt, &fileRef, &storeRef, &storeFileRef); err != nil {
			return nil, errors.NewPersistenceError("read", s.path, err)
		}
		rec.FileRef = fileRef.String
		rec.StoreRef = storeRef.String
		rec.StoreFileRef = storeFileRef.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistenceError("read", s.path, err)
	}
	return records, nil
}
