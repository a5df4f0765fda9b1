package artifact

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists artifacts to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite artifact store.
// The path should be a file path (e.g., "./artifacts.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS artifacts (
			project_id TEXT NOT NULL,
			generation_id TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			code BLOB NOT NULL,
			PRIMARY KEY (project_id, generation_id)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_artifacts_project_id
		ON artifacts(project_id)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(projectID, generationID string, code []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	// Sequence is max + 1 within the project; re-saving the same generation
	// keeps monotonic ordering for List.
	_, err := s.db.Exec(`
		INSERT INTO artifacts (project_id, generation_id, sequence, timestamp, code)
		VALUES (
			?, ?,
			COALESCE((SELECT MAX(sequence) FROM artifacts WHERE project_id = ?), 0) + 1,
			?, ?
		)
		ON CONFLICT(project_id, generation_id) DO UPDATE SET
			sequence = (SELECT MAX(sequence) FROM artifacts WHERE project_id = excluded.project_id) + 1,
			timestamp = excluded.timestamp,
			code = excluded.code
	`, projectID, generationID, projectID, time.Now().UTC().Format(time.RFC3339Nano), code)

	if err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(projectID, generationID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var code []byte
	err := s.db.QueryRow(`
		SELECT code FROM artifacts
		WHERE project_id = ? AND generation_id = ?
	`, projectID, generationID).Scan(&code)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact: %w", err)
	}
	return code, nil
}

// List implements Store.
func (s *SQLiteStore) List(projectID string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT generation_id, sequence, timestamp, LENGTH(code)
		FROM artifacts
		WHERE project_id = ?
		ORDER BY sequence
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var info Info
		var timestamp string
		if err := rows.Scan(&info.GenerationID, &info.Sequence, &timestamp, &info.Size); err != nil {
			return nil, fmt.Errorf("scan artifact info: %w", err)
		}
		info.ProjectID = projectID
		info.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}

	return infos, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(projectID, generationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		DELETE FROM artifacts
		WHERE project_id = ? AND generation_id = ?
	`, projectID, generationID)
	if err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}

// DeleteProject implements Store.
func (s *SQLiteStore) DeleteProject(projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		DELETE FROM artifacts WHERE project_id = ?
	`, projectID)
	if err != nil {
		return fmt.Errorf("delete project artifacts: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
