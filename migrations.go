package maxbridge

import (
	"io/fs"

	"github.com/goliatone/go-maxbridge/migrations"
)

// GetMigrationsFS returns the embedded credential store migrations.
func GetMigrationsFS() fs.FS {
	return migrations.FS()
}
