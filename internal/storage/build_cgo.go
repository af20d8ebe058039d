//go:build sqlite_vec && !purego

package storage

// Compiled with CGO and the sqlite_vec tag. Ranking uses vec_distance_cosine
// when the extension is loaded into the connection and falls back to Go
// otherwise.
//
//   CGO_ENABLED=1 go build -tags "sqlite_vec" ./cmd/docdrift

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// VectorExtensionAvailable indicates if vector extension is available
	VectorExtensionAvailable = true

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
