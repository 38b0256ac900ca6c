// Package migrations embeds the schema of the resources table for each
// supported database.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
