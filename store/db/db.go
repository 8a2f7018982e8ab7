// Package db owns the sqlite store's lifecycle: open-or-create, schema
// application, forward-only migrations and raw-schema introspection for the
// backup engine.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/bookvault/bookvault/model"
	"github.com/bookvault/bookvault/version"
)

// SchemaVersion is the version of the on-disk schema the binary targets.
// It is stamped into PRAGMA user_version, which lives in the database
// header rather than a user table, so a replace-only restore cannot
// clobber it.
const SchemaVersion = 1

type DB struct {
	*sql.DB
}

//go:embed migration
var migrationFS embed.FS

const latestSchemaFileName = "LATEST_SCHEMA.sql"

// NewDB opens (or creates) the sqlite database at dsn. Foreign keys are
// enforced from the start. The pool is capped at one connection so that
// connection-scoped PRAGMA state (foreign_keys) holds for every statement.
func NewDB(dsn string) (*DB, error) {
	if dsn == "" {
		return nil, errors.Wrap(model.ErrStorageUnavailable, "database path is required")
	}

	d, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(model.ErrStorageUnavailable, err.Error())
	}
	d.SetMaxOpenConns(1)

	db := &DB{d}
	if err := db.SetForeignKeys(context.Background(), true); err != nil {
		d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error {
	return d.DB.Close()
}

// Migrate brings the store up to SchemaVersion. A fresh store gets the
// latest schema in one transaction; an older store replays incremental
// migrations. Migrations never drop tables or data.
func (d *DB) Migrate(ctx context.Context) error {
	current, err := d.UserVersion(ctx)
	if err != nil {
		return err
	}

	if current > SchemaVersion {
		return errors.Wrapf(model.ErrStorageUnavailable,
			"store schema version %d is newer than supported version %d", current, SchemaVersion)
	}

	if current == 0 {
		if err := d.applyLatestSchema(ctx); err != nil {
			return errors.Wrap(err, "failed to apply latest schema")
		}
	} else if current < SchemaVersion {
		if err := d.checkAppVersion(ctx); err != nil {
			return err
		}
		for v := current + 1; v <= SchemaVersion; v++ {
			if err := d.applyMigrationForVersion(ctx, v); err != nil {
				return errors.Wrapf(err, "failed to apply migration for version %d", v)
			}
		}
		return nil
	} else {
		return d.checkAppVersion(ctx)
	}

	if _, err := d.UpsertMigrationHistory(ctx, &UpsertMigrationHistory{
		Version:    SchemaVersion,
		AppVersion: version.GetCurrentVersion(),
	}); err != nil {
		return errors.Wrap(err, "failed to upsert migration history")
	}
	return nil
}

// checkAppVersion refuses to touch a store last written by a newer release.
func (d *DB) checkAppVersion(ctx context.Context) error {
	list, err := d.FindMigrationHistoryList(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to find migration history list")
	}
	for _, h := range list {
		if version.IsVersionGreaterThan(h.AppVersion, version.GetCurrentVersion()) {
			return errors.Wrapf(model.ErrStorageUnavailable,
				"store was written by newer version %s (running %s)", h.AppVersion, version.GetCurrentVersion())
		}
	}
	return nil
}

func (d *DB) applyLatestSchema(ctx context.Context) error {
	latestSchemaPath := fmt.Sprintf("migration/%s", latestSchemaFileName)
	buf, err := migrationFS.ReadFile(latestSchemaPath)
	if err != nil {
		return errors.Wrapf(err, "failed to read latest schema file: %q", latestSchemaPath)
	}

	stmt := string(buf)
	if err := d.execute(ctx, stmt, SchemaVersion); err != nil {
		return errors.Wrapf(err, "failed to apply latest schema: %s", stmt)
	}
	return nil
}

func (d *DB) applyMigrationForVersion(ctx context.Context, v int) error {
	filenames, err := fs.Glob(migrationFS, fmt.Sprintf("migration/%d/*.sql", v))
	if err != nil {
		return errors.Wrapf(err, "failed to find migration files for version %d", v)
	}
	if len(filenames) == 0 {
		return errors.Errorf("no migration files for version %d", v)
	}

	// Files are applied in name order: 10001_foo.sql, 10002_bar.sql, ...
	slices.Sort(filenames)

	for _, filename := range filenames {
		buf, err := migrationFS.ReadFile(filename)
		if err != nil {
			return errors.Wrapf(err, "failed to read migration file: %q", filename)
		}
		if err := d.execute(ctx, string(buf), v); err != nil {
			return errors.Wrapf(err, "failed to apply migration: %q", filename)
		}
	}

	if _, err := d.UpsertMigrationHistory(ctx, &UpsertMigrationHistory{
		Version:    v,
		AppVersion: version.GetCurrentVersion(),
	}); err != nil {
		return errors.Wrapf(err, "failed to upsert migration history for version %d", v)
	}
	return nil
}

// execute runs a schema statement and the version stamp in one transaction.
func (d *DB) execute(ctx context.Context, stmt string, stampVersion int) error {
	tx, err := d.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return errors.Wrap(err, "failed to execute statement")
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", stampVersion)); err != nil {
		return errors.Wrap(err, "failed to stamp schema version")
	}

	return tx.Commit()
}

// UserVersion reads the stored schema version.
func (d *DB) UserVersion(ctx context.Context) (int, error) {
	var v int
	if err := d.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, errors.Wrap(model.ErrStorageUnavailable, err.Error())
	}
	return v, nil
}

// SetForeignKeys toggles referential-integrity enforcement. sqlite ignores
// this PRAGMA inside a transaction, so callers must toggle it between
// transactions.
func (d *DB) SetForeignKeys(ctx context.Context, enabled bool) error {
	stmt := "PRAGMA foreign_keys = OFF"
	if enabled {
		stmt = "PRAGMA foreign_keys = ON"
	}
	if _, err := d.ExecContext(ctx, stmt); err != nil {
		return errors.Wrap(model.ErrStorageUnavailable, err.Error())
	}
	return nil
}

// IsInternalTable reports whether a table belongs to sqlite or to the
// migration machinery rather than to user data.
func IsInternalTable(name string) bool {
	return strings.HasPrefix(name, "sqlite_") || name == "migration_history"
}

// ListUserTables returns the user-defined tables in creation order, which
// the schema guarantees is parent-before-child.
func (d *DB) ListUserTables(ctx context.Context) ([]string, error) {
	rows, err := d.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY rowid")
	if err != nil {
		return nil, errors.Wrap(model.ErrStorageUnavailable, err.Error())
	}
	defer rows.Close()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if IsInternalTable(name) {
			continue
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// TableColumns returns the column names of a table in declaration order.
func (d *DB) TableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := d.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, errors.Wrap(model.ErrStorageUnavailable, err.Error())
	}
	defer rows.Close()

	columns := make([]string, 0)
	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// CheckTableExists reports whether a table is present in the schema.
func (d *DB) CheckTableExists(ctx context.Context, name string) (bool, error) {
	var count int
	if err := d.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count); err != nil {
		return false, errors.Wrap(model.ErrStorageUnavailable, err.Error())
	}
	return count > 0, nil
}
