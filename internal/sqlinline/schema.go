package sqlinline

import _ "embed"

// Schema creates every table used by the service. It is idempotent.
//
//go:embed schema.sql
var Schema string
