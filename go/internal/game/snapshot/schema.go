package snapshot

import _ "embed"

// Schema creates the session tables and the NOTIFY trigger. It is idempotent.
//
//go:embed schema.sql
var Schema string
