package migration

import "embed"

// Scripts holds the goose SQL migrations, one directory per database driver.
//
//go:embed scripts
var Scripts embed.FS
