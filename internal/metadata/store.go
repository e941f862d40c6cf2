package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"atelier/internal/config"
	"atelier/internal/logging"
	"atelier/internal/ops"
)

const lockRetryDelay = 20 * time.Millisecond

// Store reads and writes artifact metadata through a Backend.
//
// Records are keyed by the artifact path. Renaming an artifact without calling
// Migrate leaves its record behind under the old path.
type Store struct {
	backend Backend
	logger  *slog.Logger
	now     func() time.Time
}

// Open builds the Store selected by cfg.Metadata.Backend.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	switch cfg.Metadata.Backend {
	case "sqlite":
		backend, err := OpenSQLite(cfg.Metadata.DBPath)
		if err != nil {
			return nil, ops.Wrap(ops.ErrConfiguration, "metadata", "open", cfg.Metadata.DBPath, err)
		}
		return NewStore(backend, logger), nil
	case "sidecar", "":
		return NewStore(NewSidecarBackend(cfg.Metadata.SidecarName), logger), nil
	default:
		return nil, ops.Wrap(ops.ErrConfiguration, "metadata", "open", fmt.Sprintf("unknown backend %q", cfg.Metadata.Backend), nil)
	}
}

// NewStore wraps backend.
func NewStore(backend Backend, logger *slog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logging.NewComponentLogger(logger, "metadata"),
		now:     time.Now,
	}
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Record returns the full record of path.
func (s *Store) Record(ctx context.Context, path string) (Record, bool, error) {
	record, ok, err := s.backend.Load(ctx, path)
	if err != nil {
		return nil, false, ops.Wrap(ops.ErrIO, "metadata", "load", path, err)
	}
	return record, ok, nil
}

// SetValue stores value under key for path.
func (s *Store) SetValue(ctx context.Context, path, key string, value any) error {
	return s.SetValues(ctx, path, map[string]any{key: value})
}

// SetValues stores several keys for path in one read-modify-write.
func (s *Store) SetValues(ctx context.Context, path string, values map[string]any) error {
	err := s.backend.Update(ctx, path, func(record Record) error {
		for key, value := range values {
			record[key] = normalizeValue(value)
		}
		record[KeyUpdatedAt] = s.now().UTC().Format(time.RFC3339)
		return nil
	})
	if err != nil {
		return ops.Wrap(ops.ErrIO, "metadata", "update", path, err)
	}
	s.logger.DebugContext(ctx, "metadata updated",
		logging.String("artifact", path),
		logging.Int("keys", len(values)),
	)
	return nil
}

// DeleteValue removes key from path's record.
func (s *Store) DeleteValue(ctx context.Context, path, key string) error {
	err := s.backend.Update(ctx, path, func(record Record) error {
		delete(record, key)
		return nil
	})
	if err != nil {
		return ops.Wrap(ops.ErrIO, "metadata", "delete", path, err)
	}
	return nil
}

// Value returns the raw value of key, or def when it is not set.
func (s *Store) Value(ctx context.Context, path, key string, def any) (any, error) {
	record, _, err := s.Record(ctx, path)
	if err != nil {
		return def, err
	}
	if value, ok := record[key]; ok {
		return value, nil
	}
	return def, nil
}

// Migrate moves path's record to newPath. Migrating a record onto its own
// path is a no-op.
func (s *Store) Migrate(ctx context.Context, path, newPath string) error {
	if samePath(path, newPath) {
		return nil
	}
	if err := s.backend.Migrate(ctx, path, newPath); err != nil {
		return ops.Wrap(ops.ErrIO, "metadata", "migrate", path, err)
	}
	s.logger.InfoContext(ctx, "metadata migrated",
		logging.String("from", path),
		logging.String("to", newPath),
	)
	return nil
}

// SetVersion records the version number an artifact was produced from.
func (s *Store) SetVersion(ctx context.Context, path string, version int) error {
	return s.SetValue(ctx, path, KeyVersion, version)
}

// Version returns the recorded version, or -1 when unset.
func (s *Store) Version(ctx context.Context, path string) (int, error) {
	record, _, err := s.Record(ctx, path)
	if err != nil {
		return -1, err
	}
	if v, ok := record.Int(KeyVersion); ok {
		return v, nil
	}
	return -1, nil
}

func (s *Store) SetState(ctx context.Context, path, state string) error {
	return s.SetValue(ctx, path, KeyState, state)
}

func (s *Store) State(ctx context.Context, path string) (string, error) {
	return s.stringValue(ctx, path, KeyState)
}

func (s *Store) SetComment(ctx context.Context, path, comment string) error {
	return s.SetValue(ctx, path, KeyComment, comment)
}

func (s *Store) Comment(ctx context.Context, path string) (string, error) {
	return s.stringValue(ctx, path, KeyComment)
}

// SetVersionFilePath links an artifact to the snapshot it was generated from.
func (s *Store) SetVersionFilePath(ctx context.Context, path, versionFile string) error {
	return s.SetValue(ctx, path, KeyVersionFilePath, versionFile)
}

func (s *Store) VersionFilePath(ctx context.Context, path string) (string, error) {
	return s.stringValue(ctx, path, KeyVersionFilePath)
}

func (s *Store) SetPipeType(ctx context.Context, path, pipeType string) error {
	return s.SetValue(ctx, path, KeyPipeType, pipeType)
}

func (s *Store) PipeType(ctx context.Context, path string) (string, error) {
	return s.stringValue(ctx, path, KeyPipeType)
}

func (s *Store) stringValue(ctx context.Context, path, key string) (string, error) {
	record, _, err := s.Record(ctx, path)
	if err != nil {
		return "", err
	}
	value, _ := record.String(key)
	return value, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
