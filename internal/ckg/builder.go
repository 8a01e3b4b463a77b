package ckg

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/sync/errgroup"
)

// Builder parses a codebase into knowledge graph entries.
type Builder struct {
	// Exclude holds doublestar globs matched against slash-separated paths
	// relative to the codebase root.
	Exclude []string
	// Workers bounds concurrent parses. Zero uses GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
}

// Build parses every indexable file under root and returns the entries
// grouped per file, in lexical path order. Files that cannot be read or
// parsed are logged and skipped.
func (b *Builder) Build(ctx context.Context, root string) ([]FileEntries, error) {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}

	files, err := b.collect(root)
	if err != nil {
		return nil, err
	}

	workers := b.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]FileEntries, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entries, err := parseFile(gctx, path)
			if err != nil {
				logger.Warn("ckg: skipping file", "path", path, "error", err)
				return nil
			}
			results[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := results[:0]
	for _, r := range results {
		if r.Path != "" {
			out = append(out, r)
		}
	}
	return out, nil
}

// collect lists indexable files under root. Hidden files and anything
// below a hidden directory are skipped.
func (b *Builder) collect(root string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("ckg: resolve %s: %w", root, err)
	}

	var files []string
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == abs {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return err
		}
		if b.excluded(filepath.ToSlash(rel)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if _, ok := extensions[filepath.Ext(path)]; ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ckg: walk %s: %w", root, err)
	}
	return files, nil
}

func (b *Builder) excluded(rel string) bool {
	for _, pattern := range b.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// parseFile reads and parses one file.
func parseFile(ctx context.Context, path string) (FileEntries, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return FileEntries{}, err
	}
	return ParseSource(ctx, path, content)
}

// ParseSource extracts entries from content, choosing the grammar from the
// extension of path. Each call uses a parser of its own; tree-sitter
// parsers are not safe for concurrent use.
func ParseSource(ctx context.Context, path string, content []byte) (FileEntries, error) {
	src, ok := extensions[filepath.Ext(path)]
	if !ok {
		return FileEntries{}, fmt.Errorf("ckg: unsupported extension %q", filepath.Ext(path))
	}
	walk := walkers[src.lang]

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(src.grammar())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return FileEntries{}, fmt.Errorf("ckg: parse %s: %w", path, err)
	}
	defer tree.Close()

	out := FileEntries{Path: path}
	walk(&visitor{src: content, path: path, out: &out}, tree.RootNode(), nil, nil)
	return out, nil
}
