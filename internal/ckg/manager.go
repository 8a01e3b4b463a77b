package ckg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	storageInfoFile = "storage_info.json"

	// DefaultRetention is how long an unused store survives a sweep.
	DefaultRetention = 7 * 24 * time.Hour
)

// Metrics receives index lifecycle events.
type Metrics interface {
	ObserveCKGBuild(outcome string, elapsed time.Duration)
	ObserveCKGCacheHit()
	ObserveCKGSwept(n int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveCKGBuild(string, time.Duration) {}
func (noopMetrics) ObserveCKGCacheHit()                    {}
func (noopMetrics) ObserveCKGSwept(int)                    {}

// Manager owns the store directory: it maps codebases to fingerprinted
// store files, reuses a store while the fingerprint is unchanged, and
// evicts stale stores.
type Manager struct {
	// Dir holds the store files and the storage info side file.
	Dir string
	// Retention is the maximum age of a store file kept by Sweep.
	Retention time.Duration
	// Exclude and Workers configure the builder.
	Exclude []string
	Workers int
	Logger  *slog.Logger
	Metrics Metrics

	mu sync.Mutex
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

func (m *Manager) metrics() Metrics {
	if m.Metrics == nil {
		return noopMetrics{}
	}
	return m.Metrics
}

func (m *Manager) storePath(fingerprint string) string {
	return filepath.Join(m.Dir, fingerprint+".db")
}

// Open returns the store for codebasePath, building it when no store for
// the current fingerprint exists. A store recorded for an older
// fingerprint of the same path is deleted. The caller closes the result.
func (m *Manager) Open(ctx context.Context, codebasePath string) (*Database, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	abs, err := filepath.Abs(codebasePath)
	if err != nil {
		return nil, fmt.Errorf("ckg: resolve %s: %w", codebasePath, err)
	}
	if err := os.MkdirAll(m.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("ckg: create directory %s: %w", m.Dir, err)
	}

	current, err := Fingerprint(abs)
	if err != nil {
		return nil, err
	}

	info := m.readStorageInfo()
	if previous := info[abs]; previous != current {
		if previous != "" {
			m.removeStore(m.storePath(previous))
		}
		info[abs] = current
		if err := m.writeStorageInfo(info); err != nil {
			return nil, err
		}
	}

	path := m.storePath(current)
	if _, err := os.Stat(path); err == nil {
		db, err := openDatabase(ctx, path, current)
		if err != nil {
			return nil, err
		}
		m.metrics().ObserveCKGCacheHit()
		m.logger().Debug("ckg: reusing store", "codebase", abs, "fingerprint", current)
		return db, nil
	}

	return m.build(ctx, abs, path, current)
}

func (m *Manager) build(ctx context.Context, root, path, fingerprint string) (*Database, error) {
	start := time.Now()
	logger := m.logger()

	db, err := openDatabase(ctx, path, fingerprint)
	if err != nil {
		m.metrics().ObserveCKGBuild("error", time.Since(start))
		return nil, err
	}

	b := &Builder{Exclude: m.Exclude, Workers: m.Workers, Logger: logger}
	files, err := b.Build(ctx, root)
	if err == nil {
		err = db.insert(ctx, files)
	}
	if err != nil {
		_ = db.Close()
		m.removeStore(path)
		m.metrics().ObserveCKGBuild("error", time.Since(start))
		return nil, err
	}

	m.metrics().ObserveCKGBuild("ok", time.Since(start))
	logger.Info("ckg: store built",
		"codebase", root,
		"fingerprint", fingerprint,
		"files", len(files),
		"elapsed", time.Since(start),
	)
	return db, nil
}

// removeStore deletes a store file with its WAL siblings.
func (m *Manager) removeStore(path string) {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			m.logger().Warn("ckg: remove store", "path", p, "error", err)
		}
	}
}

// readStorageInfo loads the codebase to fingerprint map. A missing or
// corrupt file yields an empty map.
func (m *Manager) readStorageInfo() map[string]string {
	info := map[string]string{}
	raw, err := os.ReadFile(filepath.Join(m.Dir, storageInfoFile))
	if err != nil {
		return info
	}
	if err := json.Unmarshal(raw, &info); err != nil {
		m.logger().Warn("ckg: ignoring corrupt storage info", "error", err)
		return map[string]string{}
	}
	return info
}

func (m *Manager) writeStorageInfo(info map[string]string) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInfo, err)
	}
	target := filepath.Join(m.Dir, storageInfoFile)
	tmp, err := os.CreateTemp(m.Dir, storageInfoFile+".*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInfo, err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrStorageInfo, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrStorageInfo, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrStorageInfo, err)
	}
	return nil
}

// Sweep deletes store files last modified more than Retention before now
// and returns how many were removed. A missing directory is not an error.
func (m *Manager) Sweep(now time.Time) (int, error) {
	retention := m.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	cutoff := now.Add(-retention)
	logger := m.logger()

	removed := 0
	err := filepath.WalkDir(m.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipAll
			}
			return err
		}
		name := d.Name()
		if d.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".db") {
			return nil
		}
		fi, err := d.Info()
		if err != nil || !fi.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			logger.Warn("ckg: delete expired store", "path", path, "error", err)
			return nil
		}
		for _, sibling := range []string{path + "-wal", path + "-shm"} {
			_ = os.Remove(sibling)
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("ckg: sweep %s: %w", m.Dir, err)
	}

	m.metrics().ObserveCKGSwept(removed)
	if removed > 0 {
		logger.Info("ckg: expired stores removed", "count", removed)
	}
	return removed, nil
}
