package metadata

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLiteBackend stores records in a single side database, one row per
// (path, key). Paths are stored absolute and cleaned.
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the metadata database at dbPath.
func OpenSQLite(dbPath string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create metadata db directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection serializes transactions within the process; other
	// processes are handled by busy_timeout and retryOnBusy.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	backend := &SQLiteBackend{db: db, path: dbPath}
	if err := backend.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return backend, nil
}

func (b *SQLiteBackend) initSchema(ctx context.Context) error {
	var tableExists int
	err := b.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		tx, err := b.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit schema: %w", err)
		}
		return nil
	}

	var version int
	if err := b.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to recreate it)",
			ErrSchemaMismatch, version, schemaVersion, b.path)
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func dbKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func (b *SQLiteBackend) Load(ctx context.Context, path string) (Record, bool, error) {
	ctx = ensureContext(ctx)
	var record Record
	err := retryOnBusy(ctx, func() error {
		var err error
		record, err = loadRows(ctx, b.db, dbKey(path))
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return record, len(record) > 0, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadRows(ctx context.Context, q queryer, key string) (Record, error) {
	rows, err := q.QueryContext(ctx, "SELECT key, value FROM metadata WHERE path = ?", key)
	if err != nil {
		return nil, fmt.Errorf("query metadata: %w", err)
	}
	defer rows.Close()

	record := Record{}
	for rows.Next() {
		var k, raw string
		if err := rows.Scan(&k, &raw); err != nil {
			return nil, fmt.Errorf("scan metadata: %w", err)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("decode metadata %s: %w", k, err)
		}
		record[k] = value
	}
	return record, rows.Err()
}

// Update runs fn inside a write transaction. Only keys fn added, changed, or
// removed are written, so two writers touching different keys both persist.
func (b *SQLiteBackend) Update(ctx context.Context, path string, fn func(Record) error) error {
	ctx = ensureContext(ctx)
	key := dbKey(path)
	return retryOnBusy(ctx, func() error {
		tx, err := b.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin metadata tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		before, err := loadRows(ctx, tx, key)
		if err != nil {
			return err
		}
		after := before.Clone()
		if err := fn(after); err != nil {
			return err
		}

		now := time.Now().UTC().Format(time.RFC3339Nano)
		for k, v := range after {
			if prev, ok := before[k]; ok && reflect.DeepEqual(prev, roundTrip(v)) {
				continue
			}
			raw, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("encode metadata %s: %w", k, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO metadata (path, key, value, updated_at) VALUES (?, ?, ?, ?)
				 ON CONFLICT(path, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				key, k, string(raw), now,
			); err != nil {
				return fmt.Errorf("write metadata %s: %w", k, err)
			}
		}
		for k := range before {
			if _, ok := after[k]; ok {
				continue
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM metadata WHERE path = ? AND key = ?", key, k); err != nil {
				return fmt.Errorf("delete metadata %s: %w", k, err)
			}
		}
		return tx.Commit()
	})
}

// roundTrip converts v to the shape it would have after a JSON round trip so
// unchanged values compare equal to what was loaded.
func roundTrip(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func (b *SQLiteBackend) Migrate(ctx context.Context, from, to string) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := b.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin metadata tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO metadata (path, key, value, updated_at)
			 SELECT ?, key, value, updated_at FROM metadata WHERE path = ?
			 ON CONFLICT(path, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			dbKey(to), dbKey(from),
		); err != nil {
			return fmt.Errorf("copy metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM metadata WHERE path = ?", dbKey(from)); err != nil {
			return fmt.Errorf("delete migrated metadata: %w", err)
		}
		return tx.Commit()
	})
}

// Close closes the underlying database connection.
func (b *SQLiteBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
