//go:build purego || !sqlite_vec

package storage

// Default build: modernc.org/sqlite, no C compiler, similarity computed in Go.
//
//   CGO_ENABLED=0 go build ./cmd/docdrift

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// VectorExtensionAvailable indicates if vector extension is available
	VectorExtensionAvailable = false

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
