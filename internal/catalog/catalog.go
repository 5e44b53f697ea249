package catalog

import (
	"errors"
	"time"

	"github.com/segmentio/encoding/json"
)

// ErrNotFound is returned when a record with the requested id does not exist.
var ErrNotFound = errors.New("record not found")

// DateLayout is how a published date is rendered outside the database.
const DateLayout = "2006-01-02"

type Author struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PersonalName string `json:"personal_name"`
}

// Book is a work from the works dump. AuthorNames[i] is the display name
// resolved for AuthorIDs[i] at ingestion time.
type Book struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   *string    `json:"description,omitempty"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
	CoverIDs      []string   `json:"cover_ids,omitempty"`
	AuthorIDs     []string   `json:"author_ids"`
	AuthorNames   []string   `json:"author_names"`
}

// MarshalJSON renders PublishedDate as a calendar date (yyyy-MM-dd).
func (b Book) MarshalJSON() ([]byte, error) {
	type plain Book
	out := struct {
		plain
		PublishedDate *string `json:"published_date,omitempty"`
	}{plain: plain(b)}
	if b.PublishedDate != nil {
		d := b.PublishedDate.Format(DateLayout)
		out.PublishedDate = &d
	}
	return json.Marshal(out)
}
