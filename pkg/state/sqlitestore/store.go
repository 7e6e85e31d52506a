// Package sqlitestore persists settings inputs in SQLite.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	para "github.com/goliatone/go-paracharts"
	"github.com/goliatone/go-paracharts/pkg/state"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS settings_inputs (
	ref_key     TEXT PRIMARY KEY,
	domain      TEXT NOT NULL,
	scope       TEXT NOT NULL,
	payload     TEXT NOT NULL,
	snapshot_id TEXT NOT NULL,
	etag        TEXT NOT NULL,
	extra       TEXT,
	updated_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS settings_inputs_domain ON settings_inputs (domain);
`

// Store is a SQLite-backed state.Store. Snapshot ids and etags are owned by
// the store and regenerated on every save.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens a SQLite store at the provided path and creates its schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{sqlDB: sqlDB, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Load returns the input stored for ref.
func (s *Store) Load(ctx context.Context, ref state.Ref) (para.Input, state.Meta, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, state.Meta{}, false, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, state.Meta{}, false, fmt.Errorf("storage is not configured")
	}
	key, err := ref.Identifier()
	if err != nil {
		return nil, state.Meta{}, false, err
	}

	var (
		payload   string
		meta      state.Meta
		extra     sql.NullString
		updatedAt int64
	)
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT payload, snapshot_id, etag, extra, updated_at FROM settings_inputs WHERE ref_key = ?", key)
	if err := row.Scan(&payload, &meta.SnapshotID, &meta.ETag, &extra, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, state.Meta{}, false, nil
		}
		return nil, state.Meta{}, false, fmt.Errorf("load settings input: %w", err)
	}

	input := para.Input{}
	if err := json.Unmarshal([]byte(payload), &input); err != nil {
		return nil, state.Meta{}, false, fmt.Errorf("decode settings input: %w", err)
	}
	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &meta.Extra); err != nil {
			return nil, state.Meta{}, false, fmt.Errorf("decode settings meta: %w", err)
		}
	}
	meta.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return input, meta, true, nil
}

// Save stores input for ref. When meta.ETag is set it must match the stored
// etag, otherwise state.ErrETagMismatch is returned.
func (s *Store) Save(ctx context.Context, ref state.Ref, input para.Input, meta state.Meta) (state.Meta, error) {
	if err := ctx.Err(); err != nil {
		return state.Meta{}, err
	}
	if s == nil || s.sqlDB == nil {
		return state.Meta{}, fmt.Errorf("storage is not configured")
	}
	key, err := ref.Identifier()
	if err != nil {
		return state.Meta{}, err
	}
	if input == nil {
		input = para.Input{}
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return state.Meta{}, fmt.Errorf("encode settings input: %w", err)
	}
	var extra sql.NullString
	if meta.Extra != nil {
		raw, err := json.Marshal(meta.Extra)
		if err != nil {
			return state.Meta{}, fmt.Errorf("encode settings meta: %w", err)
		}
		extra = sql.NullString{String: string(raw), Valid: true}
	}

	saved := state.Meta{
		SnapshotID: uuid.NewString(),
		ETag:       uuid.NewString(),
		UpdatedAt:  meta.UpdatedAt,
		Extra:      meta.Extra,
	}
	if saved.UpdatedAt.IsZero() {
		saved.UpdatedAt = s.now()
	}
	saved.UpdatedAt = time.UnixMilli(saved.UpdatedAt.UnixMilli()).UTC()

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return state.Meta{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if meta.ETag != "" {
		var current string
		err := tx.QueryRowContext(ctx, "SELECT etag FROM settings_inputs WHERE ref_key = ?", key).Scan(&current)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return state.Meta{}, fmt.Errorf("read etag: %w", err)
		case current != meta.ETag:
			return state.Meta{}, fmt.Errorf("%w: expected %q, got %q", state.ErrETagMismatch, meta.ETag, current)
		}
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO settings_inputs (ref_key, domain, scope, payload, snapshot_id, etag, extra, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(ref_key) DO UPDATE SET
	payload = excluded.payload,
	snapshot_id = excluded.snapshot_id,
	etag = excluded.etag,
	extra = excluded.extra,
	updated_at = excluded.updated_at`,
		key, ref.Domain, ref.Scope.Name, string(payload), saved.SnapshotID, saved.ETag, extra, saved.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return state.Meta{}, fmt.Errorf("save settings input: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return state.Meta{}, fmt.Errorf("commit settings input: %w", err)
	}
	return saved, nil
}

var _ state.Store = (*Store)(nil)
