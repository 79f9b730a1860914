package migrations

import (
	"embed"
	"io/fs"
)

// migrationsFS holds the session store schema. Only the sqlite dialect ships.
//
//go:embed data/sql/migrations/sqlite/*.sql
var migrationsFS embed.FS

// FS returns the embedded migration tree rooted above data/sql/migrations.
func FS() fs.FS {
	return migrationsFS
}
