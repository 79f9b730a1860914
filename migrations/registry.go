package migrations

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// SourceLabel identifies these migrations inside a shared persistence client.
const SourceLabel = "go-maxbridge"

const sqliteDir = "data/sql/migrations/sqlite"

// Source is a resolved directory of paired NNNNN_name.up.sql and
// NNNNN_name.down.sql files.
type Source struct {
	Path     string
	FS       fs.FS
	Versions []string
}

// Resolve locates the sqlite migrations inside fsys, or inside the embedded
// tree when fsys is nil. Both the full data/sql/migrations/sqlite layout and
// a flat directory of .sql files are accepted.
func Resolve(fsys fs.FS) (Source, error) {
	if fsys == nil {
		fsys = FS()
	}
	source := Source{Path: ".", FS: fsys}
	if sub, err := fs.Sub(fsys, sqliteDir); err == nil {
		if matches, _ := fs.Glob(sub, "*.up.sql"); len(matches) > 0 {
			source = Source{Path: sqliteDir, FS: sub}
		}
	}

	versions, err := pairedVersions(source.FS)
	if err != nil {
		return Source{}, fmt.Errorf("migrations: %s: %w", source.Path, err)
	}
	source.Versions = versions
	return source, nil
}

// Register resolves fsys and hands the sqlite directory to register, which is
// normally the persistence client's RegisterSQLMigrations.
func Register(register func(fs.FS), fsys fs.FS) (Source, error) {
	if register == nil {
		return Source{}, fmt.Errorf("migrations: register function is required")
	}
	source, err := Resolve(fsys)
	if err != nil {
		return Source{}, err
	}
	register(source.FS)
	return source, nil
}

func pairedVersions(fsys fs.FS) ([]string, error) {
	ups, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, err
	}
	if len(ups) == 0 {
		return nil, fmt.Errorf("no *.up.sql files")
	}
	downs, err := fs.Glob(fsys, "*.down.sql")
	if err != nil {
		return nil, err
	}
	hasDown := make(map[string]bool, len(downs))
	for _, name := range downs {
		hasDown[strings.TrimSuffix(path.Base(name), ".down.sql")] = true
	}

	versions := make([]string, 0, len(ups))
	for _, name := range ups {
		version := strings.TrimSuffix(path.Base(name), ".up.sql")
		if !hasDown[version] {
			return nil, fmt.Errorf("%s has no matching down migration", name)
		}
		versions = append(versions, version)
	}
	sort.Strings(versions)
	return versions, nil
}
