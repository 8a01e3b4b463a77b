package ckg

import "errors"

var (
	// ErrNotDirectory is returned when the codebase path is not a directory.
	ErrNotDirectory = errors.New("ckg: codebase path is not a directory")

	// ErrStorageInfo is returned when the storage info file cannot be written.
	ErrStorageInfo = errors.New("ckg: storage info")
)
