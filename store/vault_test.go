package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/bookvault/bookvault/config"
	"github.com/bookvault/bookvault/log"
	"github.com/bookvault/bookvault/model"
	"github.com/bookvault/bookvault/store/db"
)

// Initialize the logger and config
func init() {
	config.Opts = config.GetDefaultOptions()
	log.Logger = log.NewLogger()
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	d, err := db.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	if err := d.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	s := NewStore(d)
	// Deterministic, strictly increasing clock so updated_at never ties.
	clock := int64(1700000000000)
	s.now = func() time.Time {
		clock += 1000
		return time.UnixMilli(clock)
	}
	return s
}

func TestAddToVaultAndGet(t *testing.T) {
	s := newTestStore(t)

	draft := &model.BookDraft{
		Title:  "Dune",
		Author: "Frank Herbert",
		Year:   1965,
		Genres: []string{"Sci-Fi", "Classic", "sci-fi"},
		ISBN13: "9780441013593",
	}
	vb, err := s.AddToVault(draft, model.StatusWant)
	if err != nil {
		t.Fatalf("Failed to add to vault: %v", err)
	}

	got, err := s.GetVaultBook(vb.Entry.ID)
	if err != nil {
		t.Fatalf("Failed to get vault book: %v", err)
	}
	if got == nil {
		t.Fatalf("Vault book not found after add")
	}
	if got.Book.Title != "Dune" || got.Book.Author != "Frank Herbert" || got.Book.Year != 1965 {
		t.Errorf("Book fields do not match draft: %+v", got.Book)
	}
	if got.Book.Genres != "Classic,Sci-Fi" {
		t.Errorf("Genres not normalized, got %q", got.Book.Genres)
	}
	if got.Entry.Status != model.StatusWant {
		t.Errorf("Status = %v, want %v", got.Entry.Status, model.StatusWant)
	}
	if got.Entry.ProgressPercent != 0 {
		t.Errorf("Progress = %d, want 0", got.Entry.ProgressPercent)
	}
	if got.Entry.Notes != nil {
		t.Errorf("Notes = %v, want nil", *got.Entry.Notes)
	}
	if got.Entry.StartedAt != nil || got.Entry.FinishedAt != nil {
		t.Errorf("Fresh entry must not have started_at/finished_at")
	}
}

func TestAddToVaultEmptyTitle(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddToVault(&model.BookDraft{Title: "   "}, model.StatusWant)
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestAddToVaultIdempotentExternalPair(t *testing.T) {
	s := newTestStore(t)

	first, err := s.AddToVault(&model.BookDraft{
		Title:          "The Hobbit",
		ExternalSource: "openlibrary",
		ExternalID:     "OL262758W",
	}, model.StatusWant)
	if err != nil {
		t.Fatalf("Failed to add to vault: %v", err)
	}

	second, err := s.AddToVault(&model.BookDraft{
		Title:          "The Hobbit, or There and Back Again",
		Author:         "J.R.R. Tolkien",
		ExternalSource: "openlibrary",
		ExternalID:     "OL262758W",
	}, model.StatusReading)
	if err != nil {
		t.Fatalf("Failed to re-add to vault: %v", err)
	}

	if first.Entry.ID != second.Entry.ID {
		t.Errorf("Expected same entry id, got %d and %d", first.Entry.ID, second.Entry.ID)
	}
	if second.Entry.Status != model.StatusWant {
		t.Errorf("Re-add must not change status, got %v", second.Entry.Status)
	}
	// Metadata is refreshed in place on re-add.
	if second.Book.Author != "J.R.R. Tolkien" {
		t.Errorf("Book metadata not refreshed, author = %q", second.Book.Author)
	}

	var entries int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM user_books`).Scan(&entries); err != nil {
		t.Fatalf("Failed to count entries: %v", err)
	}
	if entries != 1 {
		t.Errorf("Expected 1 vault entry, got %d", entries)
	}
}

func TestManualAddsAreNotDeduplicated(t *testing.T) {
	s := newTestStore(t)

	first, err := s.AddToVault(&model.BookDraft{Title: "Dune", Author: "Frank Herbert"}, model.StatusWant)
	if err != nil {
		t.Fatalf("Failed to add to vault: %v", err)
	}
	second, err := s.AddToVault(&model.BookDraft{Title: "Dune", Author: "Frank Herbert"}, model.StatusWant)
	if err != nil {
		t.Fatalf("Failed to add to vault: %v", err)
	}
	if first.Entry.ID == second.Entry.ID {
		t.Errorf("Manual adds must create independent entries")
	}
}

func TestUpdateVaultEntrySetsStartedAtOnce(t *testing.T) {
	s := newTestStore(t)

	vb, err := s.AddToVault(&model.BookDraft{Title: "Dune"}, model.StatusWant)
	if err != nil {
		t.Fatalf("Failed to add to vault: %v", err)
	}

	reading := model.StatusReading
	updated, err := s.UpdateVaultEntry(vb.Entry.ID, &model.VaultEntryPatch{Status: &reading})
	if err != nil {
		t.Fatalf("Failed to update entry: %v", err)
	}
	if updated.Entry.StartedAt == nil {
		t.Fatalf("started_at not set on first Reading transition")
	}
	startedAt := *updated.Entry.StartedAt

	notes := "halfway notes"
	updated, err = s.UpdateVaultEntry(vb.Entry.ID, &model.VaultEntryPatch{Notes: &notes})
	if err != nil {
		t.Fatalf("Failed to update notes: %v", err)
	}
	if updated.Entry.StartedAt == nil || *updated.Entry.StartedAt != startedAt {
		t.Errorf("started_at changed on unrelated update")
	}
	if updated.Entry.Notes == nil || *updated.Entry.Notes != notes {
		t.Errorf("Notes not replaced")
	}
	if updated.Entry.UpdatedAt <= updated.Entry.AddedAt {
		t.Errorf("updated_at not refreshed")
	}
}

func TestUpdateVaultEntryFinishForcesProgress(t *testing.T) {
	s := newTestStore(t)

	vb, err := s.AddToVault(&model.BookDraft{Title: "Dune"}, model.StatusWant)
	if err != nil {
		t.Fatalf("Failed to add to vault: %v", err)
	}

	// Skip straight from Want to Finished: progress forced to 100,
	// finished_at set, started_at stays null.
	finished := model.StatusFinished
	updated, err := s.UpdateVaultEntry(vb.Entry.ID, &model.VaultEntryPatch{Status: &finished})
	if err != nil {
		t.Fatalf("Failed to update entry: %v", err)
	}
	if updated.Entry.Status != model.StatusFinished {
		t.Errorf("Status = %v, want finished", updated.Entry.Status)
	}
	if updated.Entry.ProgressPercent != 100 {
		t.Errorf("Progress = %d, want 100", updated.Entry.ProgressPercent)
	}
	if updated.Entry.FinishedAt == nil {
		t.Errorf("finished_at not set")
	}
	if updated.Entry.StartedAt != nil {
		t.Errorf("started_at must stay null when Reading was skipped")
	}
}

func TestUpdateVaultEntryExplicitProgressWins(t *testing.T) {
	s := newTestStore(t)

	vb, err := s.AddToVault(&model.BookDraft{Title: "Dune"}, model.StatusWant)
	if err != nil {
		t.Fatalf("Failed to add to vault: %v", err)
	}

	finished := model.StatusFinished
	progress := 80
	updated, err := s.UpdateVaultEntry(vb.Entry.ID, &model.VaultEntryPatch{
		Status:          &finished,
		ProgressPercent: &progress,
	})
	if err != nil {
		t.Fatalf("Failed to update entry: %v", err)
	}
	if updated.Entry.ProgressPercent != 80 {
		t.Errorf("Explicit progress overridden, got %d", updated.Entry.ProgressPercent)
	}
}

func TestUpdateVaultEntryClampsProgress(t *testing.T) {
	s := newTestStore(t)

	vb, err := s.AddToVault(&model.BookDraft{Title: "Dune"}, model.StatusWant)
	if err != nil {
		t.Fatalf("Failed to add to vault: %v", err)
	}

	for _, c := range []struct{ in, want int }{{150, 100}, {-5, 0}, {42, 42}} {
		p := c.in
		updated, err := s.UpdateVaultEntry(vb.Entry.ID, &model.VaultEntryPatch{ProgressPercent: &p})
		if err != nil {
			t.Fatalf("Failed to update progress: %v", err)
		}
		if updated.Entry.ProgressPercent != c.want {
			t.Errorf("Progress(%d) = %d, want %d", c.in, updated.Entry.ProgressPercent, c.want)
		}
	}
}

func TestUpdateProgressDoesNotChangeStatus(t *testing.T) {
	s := newTestStore(t)

	vb, err := s.AddToVault(&model.BookDraft{Title: "Dune"}, model.StatusWant)
	if err != nil {
		t.Fatalf("Failed to add to vault: %v", err)
	}

	finished := model.StatusFinished
	updated, err := s.UpdateVaultEntry(vb.Entry.ID, &model.VaultEntryPatch{Status: &finished})
	if err != nil {
		t.Fatalf("Failed to finish entry: %v", err)
	}
	finishedAt := *updated.Entry.FinishedAt

	// Dropping progress below 100 must not revert status or clear the
	// finished timestamp.
	p := 50
	updated, err = s.UpdateVaultEntry(vb.Entry.ID, &model.VaultEntryPatch{ProgressPercent: &p})
	if err != nil {
		t.Fatalf("Failed to update progress: %v", err)
	}
	if updated.Entry.Status != model.StatusFinished {
		t.Errorf("Status reverted to %v", updated.Entry.Status)
	}
	if updated.Entry.FinishedAt == nil || *updated.Entry.FinishedAt != finishedAt {
		t.Errorf("finished_at changed")
	}
}

func TestUpdateVaultEntryNotFound(t *testing.T) {
	s := newTestStore(t)

	p := 10
	_, err := s.UpdateVaultEntry(12345, &model.VaultEntryPatch{ProgressPercent: &p})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestGetVaultBooksFilters(t *testing.T) {
	s := newTestStore(t)

	hobbit, err := s.AddToVault(&model.BookDraft{
		Title:  "The Hobbit",
		Author: "J.R.R. Tolkien",
		Genres: []string{"Fantasy"},
	}, model.StatusFinished)
	if err != nil {
		t.Fatalf("Failed to add to vault: %v", err)
	}
	dune, err := s.AddToVault(&model.BookDraft{
		Title:  "Dune",
		Author: "Frank Herbert",
		Genres: []string{"Sci-Fi"},
	}, model.StatusReading)
	if err != nil {
		t.Fatalf("Failed to add to vault: %v", err)
	}

	// Most recently touched first: dune was added last.
	all, err := s.GetVaultBooks(&model.FindVaultBooks{})
	if err != nil {
		t.Fatalf("Failed to list vault: %v", err)
	}
	if len(all) != 2 || all[0].Entry.ID != dune.Entry.ID {
		t.Errorf("Expected dune first, got %+v", all)
	}

	// Touching the hobbit entry moves it to the front.
	notes := "re-reading"
	if _, err := s.UpdateVaultEntry(hobbit.Entry.ID, &model.VaultEntryPatch{Notes: &notes}); err != nil {
		t.Fatalf("Failed to update entry: %v", err)
	}
	all, err = s.GetVaultBooks(&model.FindVaultBooks{})
	if err != nil {
		t.Fatalf("Failed to list vault: %v", err)
	}
	if all[0].Entry.ID != hobbit.Entry.ID {
		t.Errorf("Expected hobbit first after update")
	}

	// Case-insensitive author match.
	query := "tolkien"
	list, err := s.GetVaultBooks(&model.FindVaultBooks{Query: &query})
	if err != nil {
		t.Fatalf("Failed to query vault: %v", err)
	}
	if len(list) != 1 || list[0].Entry.ID != hobbit.Entry.ID {
		t.Errorf("Query %q matched %d entries", query, len(list))
	}

	// No match on title nor author.
	query = "asimov"
	list, err = s.GetVaultBooks(&model.FindVaultBooks{Query: &query})
	if err != nil {
		t.Fatalf("Failed to query vault: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("Query %q should match nothing", query)
	}

	// Status and genre filters combine with AND.
	reading := model.StatusReading
	genre := "Sci-Fi"
	list, err = s.GetVaultBooks(&model.FindVaultBooks{Status: &reading, GenreContains: &genre})
	if err != nil {
		t.Fatalf("Failed to query vault: %v", err)
	}
	if len(list) != 1 || list[0].Entry.ID != dune.Entry.ID {
		t.Errorf("Combined filter matched %d entries", len(list))
	}

	finished := model.StatusFinished
	list, err = s.GetVaultBooks(&model.FindVaultBooks{Status: &finished, GenreContains: &genre})
	if err != nil {
		t.Fatalf("Failed to query vault: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("Conflicting filters should match nothing")
	}
}

func TestRemoveFromVaultKeepsBook(t *testing.T) {
	s := newTestStore(t)

	vb, err := s.AddToVault(&model.BookDraft{Title: "Dune"}, model.StatusWant)
	if err != nil {
		t.Fatalf("Failed to add to vault: %v", err)
	}

	if err := s.RemoveFromVault(vb.Entry.ID); err != nil {
		t.Fatalf("Failed to remove entry: %v", err)
	}

	got, err := s.GetVaultBook(vb.Entry.ID)
	if err != nil {
		t.Fatalf("Failed to get vault book: %v", err)
	}
	if got != nil {
		t.Errorf("Entry still present after remove")
	}

	// The book row is retained as cached metadata.
	var books int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM books WHERE id = ?`, vb.Book.ID).Scan(&books); err != nil {
		t.Fatalf("Failed to count books: %v", err)
	}
	if books != 1 {
		t.Errorf("Book row deleted with entry")
	}

	// Removing a nonexistent id is not an error.
	if err := s.RemoveFromVault(vb.Entry.ID); err != nil {
		t.Errorf("Remove must be idempotent, got %v", err)
	}
}
