package auth

import (
	"embed"
	"io/fs"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// MigrationsDir is the directory of the SQL migrations inside the embedded
// filesystem.
const MigrationsDir = "data/sql/migrations"

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// Migrations returns the migration files rooted at MigrationsDir
func Migrations() (fs.FS, error) {
	return fs.Sub(migrationsFS, MigrationsDir)
}
