package metadata

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"atelier/internal/fileutil"
)

const sidecarVersion = 1

// sidecarFile is the on-disk layout of a folder's sidecar.
type sidecarFile struct {
	Version int               `yaml:"version"`
	Files   map[string]Record `yaml:"files"`
}

// SidecarBackend keeps one YAML sidecar per folder holding the records of the
// files in that folder. Read-modify-write cycles hold an exclusive file lock
// on "<sidecar>.lock".
type SidecarBackend struct {
	name string
}

// NewSidecarBackend returns a backend writing sidecars named name.
func NewSidecarBackend(name string) *SidecarBackend {
	return &SidecarBackend{name: name}
}

// SidecarPath returns the sidecar that holds path's record.
func (b *SidecarBackend) SidecarPath(path string) string {
	return filepath.Join(filepath.Dir(path), b.name)
}

func (b *SidecarBackend) Load(_ context.Context, path string) (Record, bool, error) {
	doc, err := b.read(b.SidecarPath(path))
	if err != nil {
		return nil, false, err
	}
	record, ok := doc.Files[filepath.Base(path)]
	if !ok {
		return Record{}, false, nil
	}
	return record.Clone(), true, nil
}

func (b *SidecarBackend) Update(ctx context.Context, path string, fn func(Record) error) error {
	sidecar := b.SidecarPath(path)
	return b.withLock(ctx, sidecar, func() error {
		doc, err := b.read(sidecar)
		if err != nil {
			return err
		}
		key := filepath.Base(path)
		record := doc.Files[key].Clone()
		if err := fn(record); err != nil {
			return err
		}
		doc.Files[key] = record
		return b.write(sidecar, doc)
	})
}

// Migrate moves the record of from to to. Both files may live in different
// folders; the source sidecar is updated after the target is written.
func (b *SidecarBackend) Migrate(ctx context.Context, from, to string) error {
	record, ok, err := b.Load(ctx, from)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := b.Update(ctx, to, func(target Record) error {
		for k, v := range record {
			target[k] = v
		}
		return nil
	}); err != nil {
		return err
	}
	sidecar := b.SidecarPath(from)
	return b.withLock(ctx, sidecar, func() error {
		doc, err := b.read(sidecar)
		if err != nil {
			return err
		}
		delete(doc.Files, filepath.Base(from))
		return b.write(sidecar, doc)
	})
}

func (b *SidecarBackend) Close() error { return nil }

func (b *SidecarBackend) withLock(ctx context.Context, sidecar string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(sidecar), 0o755); err != nil {
		return fmt.Errorf("create sidecar folder: %w", err)
	}
	lock := flock.New(sidecar + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock sidecar: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock sidecar %s: not acquired", sidecar)
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}

func (b *SidecarBackend) read(sidecar string) (sidecarFile, error) {
	doc := sidecarFile{Version: sidecarVersion, Files: map[string]Record{}}
	data, err := os.ReadFile(sidecar)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, nil
		}
		return doc, fmt.Errorf("read sidecar: %w", err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse sidecar %s: %w", sidecar, err)
	}
	if doc.Files == nil {
		doc.Files = map[string]Record{}
	}
	return doc, nil
}

func (b *SidecarBackend) write(sidecar string, doc sidecarFile) error {
	doc.Version = sidecarVersion
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}
	if err := fileutil.WriteFileAtomic(sidecar, data, 0o644); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}
	return nil
}
