package ckg

import (
	"crypto/md5" //nolint:gosec // staleness key, not a security boundary
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// fingerprintPrefix marks digests computed from file metadata.
const fingerprintPrefix = "metadata-"

// Fingerprint digests the name, modification time and size of every
// regular file under root whose base name is not hidden. File contents are
// never read, so an edit that keeps both mtime and size is not detected.
func Fingerprint(root string) (string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("ckg: stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	h := md5.New() //nolint:gosec
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		fi, err := os.Stat(path)
		if err != nil {
			// Dangling symlinks and files removed mid-walk are skipped.
			return nil
		}
		if !fi.Mode().IsRegular() {
			return nil
		}
		h.Write([]byte(d.Name()))
		h.Write([]byte(strconv.FormatInt(fi.ModTime().UnixNano(), 10)))
		h.Write([]byte(strconv.FormatInt(fi.Size(), 10)))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ckg: fingerprint %s: %w", root, err)
	}
	return fingerprintPrefix + hex.EncodeToString(h.Sum(nil)), nil
}
