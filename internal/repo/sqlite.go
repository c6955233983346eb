package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/miradorstack/mirador-intel/internal/utils"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	path       TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS logs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_logs_collection ON logs(collection);
`

// SQLiteStore is an embedded DocumentStore for local and CLI use.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database file at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, utils.NewAppError("sqlite.open", path, err)
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, utils.NewAppError("sqlite.migrate", path, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, path string, out any) error {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE path = ?`, path).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return utils.NewAppError("sqlite.load", path, err)
	}
	return json.Unmarshal([]byte(body), out)
}

func (s *SQLiteStore) Save(ctx context.Context, path string, value any) error {
	body, err := json.Marshal(value)
	if err != nil {
		return utils.NewAppError("sqlite.save", path, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (path, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		path, string(body), now())
	if err != nil {
		return utils.NewAppError("sqlite.save", path, err)
	}
	return nil
}

func (s *SQLiteStore) Patch(ctx context.Context, path string, fields map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return utils.NewAppError("sqlite.patch", path, err)
	}
	defer tx.Rollback()

	var body string
	err = tx.QueryRowContext(ctx, `SELECT body FROM documents WHERE path = ?`, path).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return utils.NewAppError("sqlite.patch", path, err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return utils.NewAppError("sqlite.patch", path, err)
	}
	doc, err = mergeFields(doc, fields)
	if err != nil {
		return utils.NewAppError("sqlite.patch", path, err)
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return utils.NewAppError("sqlite.patch", path, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE documents SET body = ?, updated_at = ? WHERE path = ?`, string(merged), now(), path); err != nil {
		return utils.NewAppError("sqlite.patch", path, err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Append(ctx context.Context, collection string, record any) error {
	body, err := json.Marshal(record)
	if err != nil {
		return utils.NewAppError("sqlite.append", collection, err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (collection, body, created_at) VALUES (?, ?, ?)`,
		collection, string(body), now()); err != nil {
		return utils.NewAppError("sqlite.append", collection, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM documents WHERE instr(path, ?) = 1 ORDER BY path`, prefix)
	if err != nil {
		return nil, utils.NewAppError("sqlite.list", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, utils.NewAppError("sqlite.list", prefix, err)
		}
		keys = append(keys, path)
	}
	return keys, rows.Err()
}

// CountRecords returns how many records a log collection holds.
func (s *SQLiteStore) CountRecords(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM logs WHERE collection = ?`, collection).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close(context.Context) error {
	return s.db.Close()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
