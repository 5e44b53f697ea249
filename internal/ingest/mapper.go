package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookloader/internal/catalog"
	"bookloader/internal/dump"
)

// UnknownAuthor is stored as the name of an author id missing from the store.
const UnknownAuthor = "unknown author"

// createdLayout matches created.value in the works dump, e.g.
// 2009-12-11T01:57:19.964652. Exactly six fractional digits are required.
const createdLayout = "2006-01-02T15:04:05.000000"

// MapAuthor builds an Author from an authors dump record. It never fails:
// missing fields become empty strings.
func MapAuthor(rec dump.Record) catalog.Author {
	return catalog.Author{
		ID:           strings.ReplaceAll(rec.OptString("key"), "/authors/", ""),
		Name:         rec.OptString("name"),
		PersonalName: rec.OptString("personal_name"),
	}
}

// BookMapper turns works records into Books, resolving author names through
// the author store.
type BookMapper struct {
	authors catalog.AuthorRepository
}

func NewBookMapper(authors catalog.AuthorRepository) *BookMapper {
	return &BookMapper{authors: authors}
}

// Map builds a Book from a works record. ok is false when the record has no
// authors array, in which case the book must not be written. Lookup failures
// other than catalog.ErrNotFound are returned as *StoreError.
func (m *BookMapper) Map(ctx context.Context, rec dump.Record) (book catalog.Book, ok bool, err error) {
	book.Name = rec.OptString("title")
	book.ID = strings.ReplaceAll(rec.OptString("key"), "/works/", "")

	if desc, found := rec.OptObject("description"); found {
		v, err := desc.String("value")
		if err != nil {
			return catalog.Book{}, false, fmt.Errorf("description: %w", err)
		}
		book.Description = &v
	}

	if created, found := rec.OptObject("created"); found {
		d, err := parseCreated(created.OptString("value"))
		if err != nil {
			return catalog.Book{}, false, err
		}
		book.PublishedDate = &d
	}

	if covers, found := rec.OptArray("covers"); found {
		book.CoverIDs = make([]string, 0, len(covers))
		for _, c := range covers {
			book.CoverIDs = append(book.CoverIDs, dump.Scalar(c))
		}
	}

	authors, found := rec.OptArray("authors")
	if !found {
		return book, false, nil
	}
	book.AuthorIDs = make([]string, 0, len(authors))
	book.AuthorNames = make([]string, 0, len(authors))
	for i, raw := range authors {
		entry, err := dump.Object(raw)
		if err != nil {
			return catalog.Book{}, false, fmt.Errorf("authors[%d]: %w", i, err)
		}
		ref, found := entry.OptObject("author")
		if !found {
			continue
		}
		key, err := ref.String("key")
		if err != nil {
			return catalog.Book{}, false, fmt.Errorf("authors[%d].author: %w", i, err)
		}
		id := strings.ReplaceAll(key, "/authors/", "")

		name, err := m.authorName(ctx, id)
		if err != nil {
			return catalog.Book{}, false, err
		}
		book.AuthorIDs = append(book.AuthorIDs, id)
		book.AuthorNames = append(book.AuthorNames, name)
	}
	return book, true, nil
}

func (m *BookMapper) authorName(ctx context.Context, id string) (string, error) {
	a, err := m.authors.FindAuthorByID(ctx, id)
	switch {
	case err == nil:
		return a.Name, nil
	case errors.Is(err, catalog.ErrNotFound):
		return UnknownAuthor, nil
	}
	return "", &StoreError{Op: "find author " + id, Err: err}
}

// parseCreated keeps only the calendar date of a created timestamp.
func parseCreated(s string) (time.Time, error) {
	if !createdShape(s) {
		return time.Time{}, fmt.Errorf("created %q: want yyyy-MM-ddTHH:mm:ss.SSSSSS", s)
	}
	t, err := time.Parse(createdLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("created %q: %w", s, err)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// createdShape reports whether s is laid out exactly like createdLayout.
// time.Parse alone accepts one-digit hours and ',' as the fraction separator.
func createdShape(s string) bool {
	if len(s) != len(createdLayout) {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch i {
		case 4, 7:
			if s[i] != '-' {
				return false
			}
		case 10:
			if s[i] != 'T' {
				return false
			}
		case 13, 16:
			if s[i] != ':' {
				return false
			}
		case 19:
			if s[i] != '.' {
				return false
			}
		default:
			if s[i] < '0' || s[i] > '9' {
				return false
			}
		}
	}
	return true
}
