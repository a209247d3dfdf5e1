package repository

import (
	"context"

	"github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	auth "github.com/goliatone/go-token-auth"
)

// NewMigrator returns a bun migrator loaded with the embedded migrations.
func NewMigrator(db *bun.DB) (*migrate.Migrator, error) {
	fsys, err := auth.Migrations()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open migrations")
	}

	migrations := migrate.NewMigrations()
	if err := migrations.Discover(fsys); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to discover migrations")
	}

	return migrate.NewMigrator(db, migrations), nil
}

// Migrate registers the embedded migrations with client, validates them
// against every supported dialect and applies the pending ones. The
// returned text is the client report, empty when there is nothing to say.
func Migrate(ctx context.Context, client *persistence.Client) (string, error) {
	fsys, err := auth.Migrations()
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to open migrations")
	}

	client.RegisterDialectMigrations(
		fsys,
		persistence.WithDialectSourceLabel(auth.MigrationsDir),
		persistence.WithValidationTargets(DriverPostgres, DriverSQLite),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "migrations are not valid for every dialect")
	}

	if err := client.Migrate(ctx); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to apply migrations")
	}

	if report := client.Report(); report != nil && !report.IsZero() {
		return report.String(), nil
	}

	return "", nil
}

// Applied returns the names of the migrations recorded in the database.
func Applied(ctx context.Context, db *bun.DB) ([]string, error) {
	migrator, err := NewMigrator(db)
	if err != nil {
		return nil, err
	}

	if err := migrator.Init(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to init migrations table")
	}

	applied, err := migrator.AppliedMigrations(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list applied migrations")
	}

	names := make([]string, 0, len(applied))
	for _, m := range applied {
		names = append(names, m.Name)
	}
	return names, nil
}

// Rollback reverts the last migration group and returns the names reverted.
func Rollback(ctx context.Context, db *bun.DB) ([]string, error) {
	migrator, err := NewMigrator(db)
	if err != nil {
		return nil, err
	}

	if err := migrator.Init(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to init migrations table")
	}

	group, err := migrator.Rollback(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to rollback migrations")
	}

	return migrationNames(group), nil
}

func migrationNames(group *migrate.MigrationGroup) []string {
	if group == nil || group.IsZero() {
		return nil
	}
	names := make([]string, 0, len(group.Migrations))
	for _, m := range group.Migrations {
		names = append(names, m.Name)
	}
	return names
}
