package kvstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
)

// PGStore persists records in a single PostgreSQL table with a jsonb value
// column. Keys carry their own namespace (user_..., analysis_...), so no
// secondary indices are needed beyond the primary key.
type PGStore struct {
	db *sqlx.DB
}

func NewPGStore(db *sqlx.DB) *PGStore { return &PGStore{db: db} }

// EnsureTable creates the kv_store table if not exists (idempotent).
func (s *PGStore) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS kv_store (
  key TEXT PRIMARY KEY,
  value JSONB NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return faulted(err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	var raw []byte
	err := s.db.GetContext(ctx, &raw, `SELECT value FROM kv_store WHERE key = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, faulted(err)
	}
	return json.RawMessage(raw), nil
}

func (s *PGStore) Put(ctx context.Context, key string, val any) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return faulted(err)
	}
	const q = `
INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	if _, err := s.db.ExecContext(ctx, q, key, raw); err != nil {
		return faulted(err)
	}
	return nil
}

func (s *PGStore) ScanPrefix(ctx context.Context, prefix string) ([]json.RawMessage, error) {
	// keys contain '_' which is a LIKE wildcard, so the prefix must be escaped
	pattern := escapeLike(prefix) + "%"
	rows, err := s.db.QueryContext(ctx, `SELECT value FROM kv_store WHERE key LIKE $1 ESCAPE '\'`, pattern)
	if err != nil {
		return nil, faulted(err)
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, faulted(err)
		}
		out = append(out, json.RawMessage(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, faulted(err)
	}
	return out, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
