package pending

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchemaVersion = 2

const sqliteSchemaV1 = `
CREATE TABLE IF NOT EXISTS pending_actions (
  id         TEXT PRIMARY KEY,
  created_at INTEGER NOT NULL,
  op         TEXT NOT NULL,
  args_json  TEXT NOT NULL,
  attempts   INTEGER NOT NULL,
  last_error TEXT
);
CREATE INDEX IF NOT EXISTS idx_pending_created
  ON pending_actions(created_at, id);
`

// v2 adds a monotonic append sequence so replay order matches append
// order even when two actions share a created_at instant.
const sqliteSchemaV2 = `
ALTER TABLE pending_actions ADD COLUMN seq INTEGER;
UPDATE pending_actions SET seq = rowid WHERE seq IS NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_pending_seq
  ON pending_actions(seq);
`

// SQLiteStore backs the queue with a single-table sqlite database. A
// single connection serializes the append and replay critical sections.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, errors.New("empty db path")
	}

	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

var _ Store = (*SQLiteStore)(nil)

func (s *SQLiteStore) init() error {
	var userVersion int
	if err := s.db.QueryRow(`PRAGMA user_version`).Scan(&userVersion); err != nil {
		return err
	}
	if userVersion > sqliteSchemaVersion {
		return fmt.Errorf("queue db schema version %d is newer than supported %d", userVersion, sqliteSchemaVersion)
	}
	if userVersion < 1 {
		if _, err := s.db.Exec(sqliteSchemaV1); err != nil {
			return err
		}
	}
	if userVersion < 2 {
		if _, err := s.db.Exec(sqliteSchemaV2); err != nil {
			return err
		}
	}
	_, err := s.db.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, sqliteSchemaVersion))
	return err
}

func (s *SQLiteStore) Append(action Action) error {
	_, err := s.db.Exec(
		`INSERT INTO pending_actions (id, created_at, op, args_json, attempts, last_error, seq)
		 VALUES (?, ?, ?, ?, ?, ?,
		   (SELECT COALESCE(MAX(seq), 0) + 1 FROM pending_actions))`,
		action.ID,
		action.CreatedAt.UTC().UnixNano(),
		action.Op,
		string(action.Args),
		action.Attempts,
		action.LastError,
	)
	return err
}

func (s *SQLiteStore) List() ([]Action, error) {
	rows, err := s.db.Query(
		`SELECT id, created_at, op, args_json, attempts, last_error
		 FROM pending_actions
		 ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Action
	for rows.Next() {
		var (
			a         Action
			createdAt int64
			argsJSON  string
			lastError sql.NullString
		)
		if err := rows.Scan(&a.ID, &createdAt, &a.Op, &argsJSON, &a.Attempts, &lastError); err != nil {
			return nil, err
		}
		a.CreatedAt = time.Unix(0, createdAt).UTC()
		a.Args = []byte(argsJSON)
		if lastError.Valid {
			msg := lastError.String
			a.LastError = &msg
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Remove(id string) error {
	res, err := s.db.Exec(`DELETE FROM pending_actions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) RecordFailure(id string, attemptErr string) error {
	res, err := s.db.Exec(
		`UPDATE pending_actions SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
		attemptErr, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
