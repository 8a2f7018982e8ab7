package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bookvault/bookvault/log"
	"github.com/bookvault/bookvault/model"
)

// Restore replays a snapshot chosen by the picker. Returns the source path,
// or "" when the user cancelled file selection.
//
// Restore is destructive and total: every row of every current table is
// deleted before any backup row is inserted, even for tables absent from
// the document. Any failure rolls the store back to its pre-restore state.
func (s *Service) Restore(ctx context.Context) (string, error) {
	path, err := s.picker.PickOpen(".json")
	if err != nil {
		return "", err
	}
	if path == "" {
		log.Info("Restore cancelled")
		return "", nil
	}
	if err := s.RestoreFile(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}

// RestoreFile validates the document at path and replays it into the store.
// Validation failures surface before any mutation begins.
func (s *Service) RestoreFile(ctx context.Context, path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read backup from %s", path)
	}

	data, err := parseDocument(buf)
	if err != nil {
		return err
	}

	if err := s.replace(ctx, data); err != nil {
		return err
	}

	log.Info("Restored backup", zap.String("path", path))
	return nil
}

// parseDocument validates the raw document and extracts the table data.
// Non-list table values and non-object row entries are silently skipped so
// newer producers can add fields without breaking older consumers.
func parseDocument(buf []byte) (map[string][]map[string]any, error) {
	var root any
	if err := json.Unmarshal(buf, &root); err != nil {
		return nil, errors.Wrap(model.ErrInvalidFormat, "not valid JSON")
	}
	rootObj, ok := root.(map[string]any)
	if !ok {
		return nil, errors.Wrap(model.ErrInvalidFormat, "root must be an object")
	}

	appRaw, present := rootObj["app"]
	if !present {
		return nil, errors.Wrap(model.ErrIncompatibleBackup, "missing app identifier")
	}
	if app, _ := appRaw.(string); app != AppID {
		return nil, errors.Wrapf(model.ErrIncompatibleBackup, "backup belongs to app %v, expected %q", appRaw, AppID)
	}

	versionRaw, present := rootObj["backupVersion"]
	if !present {
		return nil, errors.Wrap(model.ErrIncompatibleBackup, "missing backup version")
	}
	versionNum, ok := versionRaw.(float64)
	if !ok || versionNum != math.Trunc(versionNum) {
		return nil, errors.Wrapf(model.ErrIncompatibleBackup, "unsupported backup version %v", versionRaw)
	}
	if int(versionNum) != FormatVersion {
		return nil, errors.Wrapf(model.ErrIncompatibleBackup, "unsupported backup version %d, expected %d", int(versionNum), FormatVersion)
	}

	dataRaw, ok := rootObj["data"].(map[string]any)
	if !ok {
		return nil, errors.Wrap(model.ErrInvalidFormat, "missing data object")
	}

	data := make(map[string][]map[string]any, len(dataRaw))
	for table, v := range dataRaw {
		list, ok := v.([]any)
		if !ok {
			continue
		}
		tableRows := make([]map[string]any, 0, len(list))
		for _, item := range list {
			row, ok := item.(map[string]any)
			if !ok {
				continue
			}
			tableRows = append(tableRows, row)
		}
		data[table] = tableRows
	}
	return data, nil
}

// replace wipes every current table and inserts the backup rows, all in
// one transaction. The foreign_keys PRAGMA does not apply inside a sqlite
// transaction and does not roll back with one, so enforcement is suspended
// before the transaction and re-enabled in a deferred cleanup that runs on
// every exit path.
func (s *Service) replace(ctx context.Context, data map[string][]map[string]any) error {
	tables, err := s.db.ListUserTables(ctx)
	if err != nil {
		return err
	}

	columns := make(map[string][]string, len(tables))
	for _, table := range tables {
		cols, err := s.db.TableColumns(ctx, table)
		if err != nil {
			return err
		}
		columns[table] = cols
	}

	if err := s.db.SetForeignKeys(ctx, false); err != nil {
		return err
	}
	defer func() {
		if err := s.db.SetForeignKeys(context.Background(), true); err != nil {
			log.Error("Failed to re-enable foreign keys", zap.Error(err))
		}
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(model.ErrStorageUnavailable, err.Error())
	}
	defer tx.Rollback()

	// Children were created after their parents, so delete back to front.
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := tx.ExecContext(ctx, `DELETE FROM "`+tables[i]+`"`); err != nil {
			return errors.Wrapf(err, "failed to clear table %s", tables[i])
		}
	}

	// Unknown tables in the document are ignored; known ones are replayed
	// in ascending name order.
	names := make([]string, 0, len(data))
	for table := range data {
		if _, ok := columns[table]; ok {
			names = append(names, table)
		}
	}
	slices.Sort(names)

	for _, table := range names {
		for _, row := range data[table] {
			if err := insertRow(ctx, tx, table, columns[table], row); err != nil {
				return errors.Wrapf(err, "failed to restore row into %s", table)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(model.ErrStorageConflict, err.Error())
	}
	return nil
}

// insertRow filters the row down to the table's actual columns, drops
// unknown keys, and inserts with replace-on-conflict semantics. Rows with
// no surviving columns are skipped.
func insertRow(ctx context.Context, tx *sql.Tx, table string, tableColumns []string, row map[string]any) error {
	known := make(map[string]struct{}, len(tableColumns))
	for _, col := range tableColumns {
		known[col] = struct{}{}
	}

	cols := make([]string, 0, len(row))
	for key := range row {
		if _, ok := known[key]; ok {
			cols = append(cols, key)
		}
	}
	if len(cols) == 0 {
		return nil
	}
	slices.Sort(cols)

	args := make([]any, 0, len(cols))
	for _, col := range cols {
		args = append(args, importValue(row[col]))
	}

	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = `"` + col + `"`
	}
	stmt := `INSERT OR REPLACE INTO "` + table + `" (` + strings.Join(quoted, ", ") + `) VALUES (` +
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + `)`

	_, err := tx.ExecContext(ctx, stmt, args...)
	return err
}

// importValue normalizes a decoded JSON value for storage: booleans become
// 0/1 integers, integral numbers become int64, numbers and text pass
// through, anything else is stored as its text form.
func importValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case bool:
		if t {
			return int64(1)
		}
		return int64(0)
	case float64:
		if t == math.Trunc(t) {
			return int64(t)
		}
		return t
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
