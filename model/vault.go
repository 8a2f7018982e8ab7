package model

import "github.com/pkg/errors"

// ReadingStatus is the tracking state of a vault entry.
type ReadingStatus int

const (
	StatusWant     ReadingStatus = 0
	StatusReading  ReadingStatus = 1
	StatusFinished ReadingStatus = 2
)

func (s ReadingStatus) Valid() bool {
	return s == StatusWant || s == StatusReading || s == StatusFinished
}

func (s ReadingStatus) String() string {
	switch s {
	case StatusWant:
		return "want"
	case StatusReading:
		return "reading"
	case StatusFinished:
		return "finished"
	}
	return "unknown"
}

// ParseReadingStatus maps the textual form back to a status.
func ParseReadingStatus(v string) (ReadingStatus, error) {
	switch v {
	case "want":
		return StatusWant, nil
	case "reading":
		return StatusReading, nil
	case "finished":
		return StatusFinished, nil
	}
	return 0, errors.Wrapf(ErrInvalidInput, "unknown status %q", v)
}

// VaultEntry is the per-user tracking record for exactly one book.
// started_at and finished_at are set once, on the first transition into
// their status, and never cleared afterwards.
type VaultEntry struct {
	ID              int64         `json:"id"`
	BookID          int64         `json:"book_id"`
	Status          ReadingStatus `json:"status"`
	ProgressPercent int           `json:"progress_percent"`
	Notes           *string       `json:"notes"`
	AddedAt         int64         `json:"added_at"`
	StartedAt       *int64        `json:"started_at"`
	FinishedAt      *int64        `json:"finished_at"`
	UpdatedAt       int64         `json:"updated_at"`
}

// VaultBook is the combined read view of an entry and its book. It is a
// join projection only, never persisted on its own.
type VaultBook struct {
	Entry *VaultEntry `json:"entry"`
	Book  *Book       `json:"book"`
}

// FindVaultBooks filters the vault listing. Nil fields are not applied;
// supplied filters combine with AND.
type FindVaultBooks struct {
	// Status matches entries with this exact status.
	Status *ReadingStatus
	// Query matches title OR author, case-insensitive substring.
	Query *string
	// GenreContains matches a substring of the raw genres string.
	GenreContains *string
}

// VaultEntryPatch is a partial update. A nil field means "do not touch";
// absence is never conflated with a field's zero value.
type VaultEntryPatch struct {
	Status          *ReadingStatus
	ProgressPercent *int
	Notes           *string
}

// IsZero reports whether the patch touches nothing. Such a patch is still
// applied: updated_at is refreshed regardless.
func (p *VaultEntryPatch) IsZero() bool {
	return p.Status == nil && p.ProgressPercent == nil && p.Notes == nil
}
