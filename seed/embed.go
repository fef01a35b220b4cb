// Package seed bundles the first-run dataset. It is consulted only when
// the persistent local store has no dataset yet.
package seed

import _ "embed"

//go:embed db.json
var Dataset []byte
