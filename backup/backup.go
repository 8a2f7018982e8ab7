// Package backup dumps the whole store into a portable JSON document and
// replays such a document back with a destructive, all-or-nothing restore.
// It works against raw tables and rows, below the vault repository.
package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bookvault/bookvault/log"
	"github.com/bookvault/bookvault/model"
	"github.com/bookvault/bookvault/store/db"
	"github.com/bookvault/bookvault/util"
)

const (
	// AppID identifies documents produced by this application. Restore
	// requires an exact match.
	AppID = "bookvault"
	// FormatVersion is the backup document format, independent of the
	// database schema version. Restore requires an exact match.
	FormatVersion = 1
)

// Document is the portable snapshot. Rows are stored verbatim as
// column-to-value maps; boolean-like values are 0/1 integers because the
// store has no native boolean type. BackupID is informational only and
// ignored on restore, as is any other unknown top-level field.
type Document struct {
	App           string                      `json:"app"`
	BackupVersion int                         `json:"backupVersion"`
	SchemaVersion int                         `json:"schemaVersion"`
	ExportedAt    string                      `json:"exportedAt"`
	BackupID      string                      `json:"backupId,omitempty"`
	Tables        []string                    `json:"tables"`
	Data          map[string][]map[string]any `json:"data"`
}

// PathPicker is the file-selection collaborator. An empty path with a nil
// error means the user cancelled; that is a successful no-op, not a
// failure.
type PathPicker interface {
	// PickSave chooses a destination for a new file.
	PickSave(suggested, ext string) (string, error)
	// PickOpen chooses an existing file.
	PickOpen(ext string) (string, error)
}

// Service reads and writes snapshots against one database handle.
type Service struct {
	db     *db.DB
	picker PathPicker
}

func NewService(db *db.DB, picker PathPicker) *Service {
	return &Service{db: db, picker: picker}
}

// Export writes a snapshot of every user table to a destination chosen by
// the picker. Table discovery and all row reads happen inside a single
// transaction. Returns the written path, or "" when the user cancelled
// destination selection.
func (s *Service) Export(ctx context.Context) (string, error) {
	suggested := "bookvault-" + time.Now().UTC().Format("2006-01-02") + ".json"
	path, err := s.picker.PickSave(suggested, ".json")
	if err != nil {
		return "", err
	}
	if path == "" {
		log.Info("Export cancelled")
		return "", nil
	}

	doc, err := s.buildDocument(ctx)
	if err != nil {
		return "", err
	}

	buf, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to encode backup document")
	}
	if err := os.WriteFile(path, buf, 0600); err != nil {
		return "", errors.Wrapf(err, "failed to write backup to %s", path)
	}

	log.Info("Exported backup",
		zap.String("path", path),
		zap.Int("tables", len(doc.Tables)))
	return path, nil
}

func (s *Service) buildDocument(ctx context.Context) (*Document, error) {
	schemaVersion, err := s.db.UserVersion(ctx)
	if err != nil {
		return nil, err
	}

	tables, err := s.db.ListUserTables(ctx)
	if err != nil {
		return nil, err
	}

	// One transaction covers discovery and every row read so the snapshot
	// is internally consistent.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(model.ErrStorageUnavailable, err.Error())
	}
	defer tx.Rollback()

	data := make(map[string][]map[string]any, len(tables))
	for _, table := range tables {
		rows, err := dumpTable(ctx, tx, table)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to dump table %s", table)
		}
		data[table] = rows
	}

	backupID, err := util.UUID4()
	if err != nil {
		return nil, err
	}

	return &Document{
		App:           AppID,
		BackupVersion: FormatVersion,
		SchemaVersion: schemaVersion,
		ExportedAt:    time.Now().UTC().Format(time.RFC3339),
		BackupID:      backupID,
		Tables:        tables,
		Data:          data,
	}, nil
}

func dumpTable(ctx context.Context, tx *sql.Tx, table string) ([]map[string]any, error) {
	rows, err := tx.QueryContext(ctx, `SELECT * FROM "`+table+`"`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	list := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		dests := make([]any, len(columns))
		for i := range values {
			dests[i] = &values[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = exportValue(values[i])
		}
		list = append(list, row)
	}
	return list, rows.Err()
}

// exportValue maps driver values onto the document's value space.
func exportValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case bool:
		if t {
			return int64(1)
		}
		return int64(0)
	case []byte:
		return string(t)
	default:
		return v
	}
}
