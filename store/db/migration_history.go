package db

import (
	"context"
)

// MigrationHistory is the audit trail of applied schema versions and the
// app release that applied each one.
type MigrationHistory struct {
	Version    int
	AppVersion string
	CreatedTs  int64
}

type UpsertMigrationHistory struct {
	Version    int
	AppVersion string
}

func (d *DB) UpsertMigrationHistory(ctx context.Context, upsert *UpsertMigrationHistory) (*MigrationHistory, error) {
	stmt := `
		INSERT INTO migration_history (
			version,
			app_version
		)
		VALUES (?, ?)
		ON CONFLICT(version) DO UPDATE
		SET
			app_version=EXCLUDED.app_version
		RETURNING version, app_version, created_ts
	`
	var migrationHistory MigrationHistory
	if err := d.DB.QueryRowContext(ctx, stmt, upsert.Version, upsert.AppVersion).Scan(
		&migrationHistory.Version,
		&migrationHistory.AppVersion,
		&migrationHistory.CreatedTs,
	); err != nil {
		return nil, err
	}

	return &migrationHistory, nil
}

func (d *DB) FindMigrationHistoryList(ctx context.Context) ([]*MigrationHistory, error) {
	query := "SELECT `version`, `app_version`, `created_ts` FROM `migration_history` ORDER BY `version` DESC"
	rows, err := d.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*MigrationHistory, 0)
	for rows.Next() {
		var mia MigrationHistory
		if err := rows.Scan(
			&mia.Version,
			&mia.AppVersion,
			&mia.CreatedTs,
		); err != nil {
			return nil, err
		}

		list = append(list, &mia)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}
