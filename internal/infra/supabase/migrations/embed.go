// Package migrations embeds the datastore schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
