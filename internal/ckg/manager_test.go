package ckg

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingMetrics struct {
	mu     sync.Mutex
	builds []string
	hits   int
	sweeps []int
}

func (r *recordingMetrics) ObserveCKGBuild(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builds = append(r.builds, outcome)
}

func (r *recordingMetrics) ObserveCKGCacheHit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits++
}

func (r *recordingMetrics) ObserveCKGSwept(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeps = append(r.sweeps, n)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newCodebase(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pkg", "mod.py"), pythonSource)
	writeFile(t, filepath.Join(root, "util.c"), "int add(int a, int b) { return a + b; }\n")
	writeFile(t, filepath.Join(root, ".hidden", "skip.py"), "def hidden():\n    pass\n")
	writeFile(t, filepath.Join(root, "vendor", "dep.py"), "def vendored():\n    pass\n")
	writeFile(t, filepath.Join(root, "README.md"), "# readme\n")
	return root
}

func TestManagerOpen_BuildsAndQueries(t *testing.T) {
	t.Parallel()

	root := newCodebase(t)
	m := &Manager{Dir: t.TempDir(), Exclude: []string{"vendor/**"}}

	db, err := m.Open(context.Background(), root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = db.Close() }()

	free, err := db.QueryFunctions(context.Background(), "free", FreeFunction)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(free) != 1 || free[0].FilePath != filepath.Join(root, "pkg", "mod.py") {
		t.Fatalf("unexpected free functions %+v", free)
	}

	methods, err := db.QueryFunctions(context.Background(), "method", ClassMethod)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(methods) != 1 || methods[0].ParentClass != "Outer" {
		t.Fatalf("unexpected methods %+v", methods)
	}
	if none, _ := db.QueryFunctions(context.Background(), "method", FreeFunction); len(none) != 0 {
		t.Errorf("expected method to be excluded from free functions, got %+v", none)
	}

	classes, err := db.QueryClasses(context.Background(), "Outer")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(classes) != 1 || classes[0].Methods == "" {
		t.Fatalf("unexpected classes %+v", classes)
	}

	for _, name := range []string{"hidden", "vendored"} {
		got, _ := db.QueryFunctions(context.Background(), name, FreeFunction)
		if len(got) != 0 {
			t.Errorf("expected %s to be skipped, got %+v", name, got)
		}
	}

	add, _ := db.QueryFunctions(context.Background(), "add", FreeFunction)
	if len(add) != 1 {
		t.Errorf("expected the C function to be indexed, got %+v", add)
	}
}

func TestManagerOpen_ReusesUnchangedCodebase(t *testing.T) {
	t.Parallel()

	root := newCodebase(t)
	metrics := &recordingMetrics{}
	m := &Manager{Dir: t.TempDir(), Metrics: metrics}

	first, err := m.Open(context.Background(), root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = first.Close()

	second, err := m.Open(context.Background(), root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = second.Close()

	if first.Path != second.Path || first.Fingerprint != second.Fingerprint {
		t.Errorf("expected the same store, got %s and %s", first.Path, second.Path)
	}
	if len(metrics.builds) != 1 || metrics.builds[0] != "ok" {
		t.Errorf("expected exactly one successful build, got %v", metrics.builds)
	}
	if metrics.hits != 1 {
		t.Errorf("expected one cache hit, got %d", metrics.hits)
	}
}

func TestManagerOpen_RebuildsAfterTouch(t *testing.T) {
	t.Parallel()

	root := newCodebase(t)
	m := &Manager{Dir: t.TempDir()}

	first, err := m.Open(context.Background(), root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = first.Close()

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(filepath.Join(root, "util.c"), later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	second, err := m.Open(context.Background(), root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = second.Close() }()

	if second.Fingerprint == first.Fingerprint {
		t.Fatal("expected a new fingerprint after touching a file")
	}
	if _, err := os.Stat(first.Path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected old store to be deleted, stat err = %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(m.Dir, storageInfoFile))
	if err != nil {
		t.Fatalf("read storage info: %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal(raw, &info); err != nil {
		t.Fatalf("decode storage info: %v", err)
	}
	if info[root] != second.Fingerprint {
		t.Errorf("expected storage info to record %s, got %v", second.Fingerprint, info)
	}
}

func TestManagerOpen_NotDirectory(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "file.py")
	writeFile(t, file, "x = 1\n")

	m := &Manager{Dir: t.TempDir()}
	if _, err := m.Open(context.Background(), file); !errors.Is(err, ErrNotDirectory) {
		t.Fatalf("expected ErrNotDirectory, got %v", err)
	}
}

func TestManagerSweep(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	now := time.Now()
	old := now.Add(-8 * 24 * time.Hour)

	files := map[string]time.Time{
		"old.db":     old,
		"fresh.db":   now,
		".hidden.db": old,
		"notes.txt":  old,
	}
	for name, mtime := range files {
		p := filepath.Join(dir, name)
		writeFile(t, p, "x")
		if err := os.Chtimes(p, mtime, mtime); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	metrics := &recordingMetrics{}
	m := &Manager{Dir: dir, Retention: 7 * 24 * time.Hour, Metrics: metrics}
	n, err := m.Sweep(now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 removed store, got %d", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "old.db")); !errors.Is(err, os.ErrNotExist) {
		t.Error("expected old.db to be removed")
	}
	for _, keep := range []string{"fresh.db", ".hidden.db", "notes.txt"} {
		if _, err := os.Stat(filepath.Join(dir, keep)); err != nil {
			t.Errorf("expected %s to survive, got %v", keep, err)
		}
	}
	if len(metrics.sweeps) != 1 || metrics.sweeps[0] != 1 {
		t.Errorf("unexpected sweep metrics %v", metrics.sweeps)
	}
}

func TestManagerSweep_MissingDir(t *testing.T) {
	t.Parallel()

	m := &Manager{Dir: filepath.Join(t.TempDir(), "absent")}
	n, err := m.Sweep(time.Now())
	if err != nil || n != 0 {
		t.Errorf("expected (0, nil), got (%d, %v)", n, err)
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	root := newCodebase(t)
	a, err := Fingerprint(root)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if !strings.HasPrefix(a, "metadata-") {
		t.Errorf("expected metadata- prefix, got %s", a)
	}

	b, _ := Fingerprint(root)
	if a != b {
		t.Errorf("expected a stable fingerprint, got %s then %s", a, b)
	}

	writeFile(t, filepath.Join(root, ".env"), "SECRET=1")
	if c, _ := Fingerprint(root); c != a {
		t.Error("expected hidden files to be ignored")
	}

	writeFile(t, filepath.Join(root, "new.txt"), "hello")
	if d, _ := Fingerprint(root); d == a {
		t.Error("expected an added file to change the fingerprint")
	}
}

func TestFingerprint_ContentOnlyChangeUndetected(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "a.py")
	writeFile(t, path, "x = 1\n")
	stamp := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	before, _ := Fingerprint(root)

	writeFile(t, path, "y = 2\n")
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	after, _ := Fingerprint(root)

	if before != after {
		t.Error("expected same-size, same-mtime rewrite to keep the fingerprint")
	}
}
