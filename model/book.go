package model

// Book is cached metadata, independent of any tracking state. Removing a
// book from the vault keeps its row around.
type Book struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Author         string `json:"author"`
	Year           int    `json:"year"`
	Description    string `json:"description"`
	Genres         string `json:"genres"`
	CoverURL       string `json:"cover_url"`
	ISBN10         string `json:"isbn10"`
	ISBN13         string `json:"isbn13"`
	ExternalSource string `json:"external_source"`
	ExternalID     string `json:"external_id"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`
}

// BookDraft is the caller-supplied shape for adding a book. Title is
// required, everything else is optional. Genres are normalized at write
// time: case-insensitive dedup, sorted, comma-joined.
type BookDraft struct {
	Title          string   `json:"title"`
	Author         string   `json:"author"`
	Year           int      `json:"year"`
	Description    string   `json:"description"`
	Genres         []string `json:"genres"`
	CoverURL       string   `json:"cover_url"`
	ISBN10         string   `json:"isbn10"`
	ISBN13         string   `json:"isbn13"`
	ExternalSource string   `json:"external_source"`
	ExternalID     string   `json:"external_id"`
}

// HasExternalPair reports whether the draft carries a usable
// (external_source, external_id) identity for deduplication.
func (d *BookDraft) HasExternalPair() bool {
	return d.ExternalSource != "" && d.ExternalID != ""
}
