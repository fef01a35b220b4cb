package migrations

import "embed"

// Files exposes embedded SQL schema files per backend, applied in
// lexicographical order.
//
//go:embed sqlite/*.sql postgres/*.sql
var Files embed.FS
