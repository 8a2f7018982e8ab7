package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bookvault/bookvault/log"
	"github.com/bookvault/bookvault/model"
	"github.com/bookvault/bookvault/util"
)

const vaultBookColumns = `
        ub.id,
        ub.book_id,
        ub.status,
        ub.progress_percent,
        ub.notes,
        ub.added_at,
        ub.started_at,
        ub.finished_at,
        ub.updated_at,
        b.id,
        b.title,
        b.author,
        b.year,
        b.description,
        b.genres,
        b.cover_url,
        b.isbn10,
        b.isbn13,
        b.external_source,
        b.external_id,
        b.created_at,
        b.updated_at`

// AddToVault upserts the book metadata and ensures a vault entry exists for
// it, all in one transaction. Adding a book that is already in the vault is
// idempotent: the existing entry is returned untouched and initialStatus is
// ignored.
func (s *Store) AddToVault(draft *model.BookDraft, initialStatus model.ReadingStatus) (*model.VaultBook, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return nil, errors.Wrap(model.ErrInvalidInput, "title must not be empty")
	}
	if draft.Year < 0 {
		return nil, errors.Wrapf(model.ErrInvalidInput, "year must not be negative, got %d", draft.Year)
	}
	if !initialStatus.Valid() {
		return nil, errors.Wrapf(model.ErrInvalidInput, "unknown status %d", initialStatus)
	}

	now := s.timeMillis()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, errors.Wrap(model.ErrStorageUnavailable, err.Error())
	}
	defer tx.Rollback()

	bookID, err := upsertBook(tx, draft, now)
	if err != nil {
		return nil, err
	}

	var entryID int64
	err = tx.QueryRow(`SELECT id FROM user_books WHERE book_id = ?`, bookID).Scan(&entryID)
	switch {
	case err == nil:
		// Already in the vault, reuse the existing entry.
	case errors.Is(err, sql.ErrNoRows):
		stmt := `
			INSERT INTO user_books (book_id, status, progress_percent, added_at, updated_at)
			VALUES (?, ?, 0, ?, ?)
			RETURNING id
		`
		if err := tx.QueryRow(stmt, bookID, initialStatus, now, now).Scan(&entryID); err != nil {
			return nil, errors.Wrap(model.ErrStorageConflict, err.Error())
		}
	default:
		return nil, errors.Wrap(model.ErrStorageConflict, err.Error())
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(model.ErrStorageConflict, err.Error())
	}

	s.vaultCache.Delete(entryID)
	return s.GetVaultBook(entryID)
}

// upsertBook inserts the draft as a new book, unless the draft carries an
// external pair that already identifies a row, in which case that row's
// metadata is refreshed in place and its id reused.
func upsertBook(tx *sql.Tx, draft *model.BookDraft, now int64) (int64, error) {
	genres := util.NormalizeGenres(draft.Genres)

	if draft.HasExternalPair() {
		var bookID int64
		err := tx.QueryRow(
			`SELECT id FROM books WHERE external_source = ? AND external_id = ?`,
			draft.ExternalSource, draft.ExternalID,
		).Scan(&bookID)
		switch {
		case err == nil:
			stmt := `
				UPDATE books
				SET title = ?, author = ?, year = ?, description = ?, genres = ?,
				    cover_url = ?, isbn10 = ?, isbn13 = ?, updated_at = ?
				WHERE id = ?
			`
			if _, err := tx.Exec(stmt,
				draft.Title, draft.Author, draft.Year, draft.Description, genres,
				draft.CoverURL, draft.ISBN10, draft.ISBN13, now, bookID,
			); err != nil {
				return 0, errors.Wrap(model.ErrStorageConflict, err.Error())
			}
			return bookID, nil
		case !errors.Is(err, sql.ErrNoRows):
			return 0, errors.Wrap(model.ErrStorageConflict, err.Error())
		}
	}

	stmt := `
		INSERT INTO books (
			title, author, year, description, genres, cover_url,
			isbn10, isbn13, external_source, external_id, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	var bookID int64
	if err := tx.QueryRow(stmt,
		draft.Title, draft.Author, draft.Year, draft.Description, genres,
		draft.CoverURL, draft.ISBN10, draft.ISBN13, draft.ExternalSource, draft.ExternalID,
		now, now,
	).Scan(&bookID); err != nil {
		return 0, errors.Wrap(model.ErrStorageConflict, err.Error())
	}
	return bookID, nil
}

// GetVaultBooks returns the combined views matching the filter, most
// recently touched first. An empty result is not an error.
func (s *Store) GetVaultBooks(find *model.FindVaultBooks) ([]*model.VaultBook, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.Status; v != nil {
		where, args = append(where, "ub.status = ?"), append(args, *v)
	}
	if v := find.Query; v != nil {
		pattern := "%" + strings.ToLower(*v) + "%"
		where = append(where, "(LOWER(b.title) LIKE ? OR LOWER(b.author) LIKE ?)")
		args = append(args, pattern, pattern)
	}
	if v := find.GenreContains; v != nil {
		where, args = append(where, "b.genres LIKE ?"), append(args, "%"+*v+"%")
	}

	query := `
    SELECT` + vaultBookColumns + `
    FROM user_books ub
    JOIN books b ON b.id = ub.book_id
    WHERE ` + strings.Join(where, " AND ") + `
    ORDER BY ub.updated_at DESC, ub.id DESC`

	log.Debug("SQL query and args:")
	log.Fallback("Debug", fmt.Sprintf("query: %s\nargs: %v\n", query, args))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		log.Error("Failed to query vault books", zap.Error(err))
		return nil, errors.Wrap(model.ErrStorageUnavailable, err.Error())
	}
	defer rows.Close()

	list := make([]*model.VaultBook, 0)
	for rows.Next() {
		vb, err := scanVaultBook(rows)
		if err != nil {
			log.Error("Failed to scan vault book", zap.Error(err))
			return nil, err
		}
		list = append(list, vb)
	}
	return list, rows.Err()
}

// GetVaultBook returns the combined view for one entry, or nil when the id
// does not exist.
func (s *Store) GetVaultBook(userBookID int64) (*model.VaultBook, error) {
	if cache, ok := s.vaultCache.Load(userBookID); ok {
		return cache.(*model.VaultBook), nil
	}

	query := `
    SELECT` + vaultBookColumns + `
    FROM user_books ub
    JOIN books b ON b.id = ub.book_id
    WHERE ub.id = ?`

	vb, err := scanVaultBook(s.db.QueryRow(query, userBookID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.vaultCache.Store(userBookID, vb)
	return vb, nil
}

// UpdateVaultEntry applies a partial update to an existing entry. Only
// supplied fields change; updated_at is refreshed regardless.
//
// Transitioning to Reading sets started_at the first time only.
// Transitioning to Finished sets finished_at the first time only and, when
// no progress was supplied in the same call, forces progress to 100.
// Leaving a status never clears its timestamp.
func (s *Store) UpdateVaultEntry(userBookID int64, patch *model.VaultEntryPatch) (*model.VaultBook, error) {
	if v := patch.Status; v != nil && !v.Valid() {
		return nil, errors.Wrapf(model.ErrInvalidInput, "unknown status %d", *v)
	}

	now := s.timeMillis()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, errors.Wrap(model.ErrStorageUnavailable, err.Error())
	}
	defer tx.Rollback()

	var (
		curStatus  model.ReadingStatus
		startedAt  sql.NullInt64
		finishedAt sql.NullInt64
	)
	err = tx.QueryRow(
		`SELECT status, started_at, finished_at FROM user_books WHERE id = ?`, userBookID,
	).Scan(&curStatus, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(model.ErrNotFound, "vault entry %d", userBookID)
	}
	if err != nil {
		return nil, errors.Wrap(model.ErrStorageUnavailable, err.Error())
	}

	set, args := []string{"updated_at = ?"}, []any{now}

	if v := patch.Status; v != nil {
		set, args = append(set, "status = ?"), append(args, *v)
		if *v == model.StatusReading && !startedAt.Valid {
			set, args = append(set, "started_at = ?"), append(args, now)
		}
		if *v == model.StatusFinished && !finishedAt.Valid {
			set, args = append(set, "finished_at = ?"), append(args, now)
			if patch.ProgressPercent == nil {
				set, args = append(set, "progress_percent = ?"), append(args, 100)
			}
		}
	}
	if v := patch.ProgressPercent; v != nil {
		set, args = append(set, "progress_percent = ?"), append(args, util.ClampPercent(*v))
	}
	if v := patch.Notes; v != nil {
		set, args = append(set, "notes = ?"), append(args, *v)
	}

	stmt := `UPDATE user_books SET ` + strings.Join(set, ", ") + ` WHERE id = ?`
	args = append(args, userBookID)

	log.Debug("SQL query and args:")
	log.Fallback("Debug", fmt.Sprintf("query: %s\nargs: %v\n", stmt, args))

	if _, err := tx.Exec(stmt, args...); err != nil {
		return nil, errors.Wrap(model.ErrStorageConflict, err.Error())
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(model.ErrStorageConflict, err.Error())
	}

	s.vaultCache.Delete(userBookID)
	return s.GetVaultBook(userBookID)
}

// RemoveFromVault deletes the entry but keeps the underlying book row as
// cached metadata. Removing an id that does not exist is not an error.
func (s *Store) RemoveFromVault(userBookID int64) error {
	if _, err := s.db.Exec(`DELETE FROM user_books WHERE id = ?`, userBookID); err != nil {
		return errors.Wrap(model.ErrStorageConflict, err.Error())
	}
	s.vaultCache.Delete(userBookID)
	return nil
}

func scanVaultBook(row interface{ Scan(dest ...any) error }) (*model.VaultBook, error) {
	var (
		entry      model.VaultEntry
		book       model.Book
		notes      sql.NullString
		startedAt  sql.NullInt64
		finishedAt sql.NullInt64
	)
	if err := row.Scan(
		&entry.ID,
		&entry.BookID,
		&entry.Status,
		&entry.ProgressPercent,
		&notes,
		&entry.AddedAt,
		&startedAt,
		&finishedAt,
		&entry.UpdatedAt,
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Year,
		&book.Description,
		&book.Genres,
		&book.CoverURL,
		&book.ISBN10,
		&book.ISBN13,
		&book.ExternalSource,
		&book.ExternalID,
		&book.CreatedAt,
		&book.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if notes.Valid {
		entry.Notes = &notes.String
	}
	if startedAt.Valid {
		entry.StartedAt = &startedAt.Int64
	}
	if finishedAt.Valid {
		entry.FinishedAt = &finishedAt.Int64
	}
	return &model.VaultBook{Entry: &entry, Book: &book}, nil
}
