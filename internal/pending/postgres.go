package pending

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const postgresSchemaV1 = `
CREATE TABLE IF NOT EXISTS pending_actions (
  seq        BIGSERIAL,
  id         TEXT PRIMARY KEY,
  created_at TIMESTAMPTZ NOT NULL,
  op         TEXT NOT NULL,
  args_json  JSONB NOT NULL DEFAULT '{}'::jsonb,
  attempts   INTEGER NOT NULL,
  last_error TEXT
);
CREATE INDEX IF NOT EXISTS idx_pending_seq
  ON pending_actions(seq);
`

// PostgresStore backs the queue with a shared postgres database, keyed
// by workspace so co-hosted gateways never see each other's entries.
type PostgresStore struct {
	db        *sql.DB
	workspace string
}

func NewPostgresStore(dsn, workspace string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty postgres dsn")
	}
	workspace = strings.TrimSpace(workspace)
	if workspace == "" {
		return nil, errors.New("empty workspace")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	s := &PostgresStore{db: db, workspace: workspace}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) init() error {
	if _, err := s.db.Exec(postgresSchemaV1); err != nil {
		return err
	}
	// Workspace and seq columns added after v1; tolerate a pre-existing
	// table. The sequence keeps replay in append order under created_at
	// ties.
	_, err := s.db.Exec(`ALTER TABLE pending_actions ADD COLUMN IF NOT EXISTS workspace TEXT NOT NULL DEFAULT ''`)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(`ALTER TABLE pending_actions ADD COLUMN IF NOT EXISTS seq BIGSERIAL`); err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_pending_workspace ON pending_actions(workspace, created_at, id)`)
	return err
}

func (s *PostgresStore) Append(action Action) error {
	_, err := s.db.Exec(
		`INSERT INTO pending_actions (id, created_at, op, args_json, attempts, last_error, workspace)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		action.ID,
		action.CreatedAt.UTC(),
		action.Op,
		string(action.Args),
		action.Attempts,
		action.LastError,
		s.workspace,
	)
	return err
}

func (s *PostgresStore) List() ([]Action, error) {
	rows, err := s.db.Query(
		`SELECT id, created_at, op, args_json, attempts, last_error
		 FROM pending_actions
		 WHERE workspace = $1
		 ORDER BY seq`, s.workspace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Action
	for rows.Next() {
		var (
			a         Action
			createdAt time.Time
			argsJSON  string
			lastError sql.NullString
		)
		if err := rows.Scan(&a.ID, &createdAt, &a.Op, &argsJSON, &a.Attempts, &lastError); err != nil {
			return nil, err
		}
		a.CreatedAt = createdAt.UTC()
		a.Args = []byte(argsJSON)
		if lastError.Valid {
			msg := lastError.String
			a.LastError = &msg
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Remove(id string) error {
	res, err := s.db.Exec(`DELETE FROM pending_actions WHERE id = $1 AND workspace = $2`, id, s.workspace)
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

func (s *PostgresStore) RecordFailure(id string, attemptErr string) error {
	res, err := s.db.Exec(
		`UPDATE pending_actions SET attempts = attempts + 1, last_error = $1 WHERE id = $2 AND workspace = $3`,
		attemptErr, id, s.workspace)
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

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
