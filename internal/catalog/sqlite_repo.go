package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/encoding/json"
)

const sqliteDateLayout = DateLayout

// SQLiteRepo stores the catalog in a local SQLite file. List columns are
// JSON arrays and dates are YYYY-MM-DD text.
type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db}
}

func (r *SQLiteRepo) SaveAuthor(ctx context.Context, a *Author) error {
	const q = `
		INSERT INTO authors (id, name, personal_name, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			personal_name = excluded.personal_name,
			updated_at = CURRENT_TIMESTAMP`

	if _, err := r.db.ExecContext(ctx, q, a.ID, a.Name, a.PersonalName); err != nil {
		return fmt.Errorf("upsert author %s: %w", a.ID, err)
	}
	return nil
}

func (r *SQLiteRepo) FindAuthorByID(ctx context.Context, id string) (Author, error) {
	const q = `SELECT id, name, personal_name FROM authors WHERE id = ?`

	var a Author
	err := r.db.QueryRowContext(ctx, q, id).Scan(&a.ID, &a.Name, &a.PersonalName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Author{}, ErrNotFound
		}
		return Author{}, fmt.Errorf("find author %s: %w", id, err)
	}
	return a, nil
}

func (r *SQLiteRepo) SaveBook(ctx context.Context, b *Book) error {
	const q = `
		INSERT INTO books (id, name, description, published_date, cover_ids, author_ids, author_names, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			published_date = excluded.published_date,
			cover_ids = excluded.cover_ids,
			author_ids = excluded.author_ids,
			author_names = excluded.author_names,
			updated_at = CURRENT_TIMESTAMP`

	var published sql.NullString
	if b.PublishedDate != nil {
		published = sql.NullString{String: b.PublishedDate.Format(sqliteDateLayout), Valid: true}
	}

	var covers sql.NullString
	if b.CoverIDs != nil {
		raw, err := json.Marshal(b.CoverIDs)
		if err != nil {
			return fmt.Errorf("encode cover ids for %s: %w", b.ID, err)
		}
		covers = sql.NullString{String: string(raw), Valid: true}
	}

	authorIDs, err := json.Marshal(nonNil(b.AuthorIDs))
	if err != nil {
		return fmt.Errorf("encode author ids for %s: %w", b.ID, err)
	}
	authorNames, err := json.Marshal(nonNil(b.AuthorNames))
	if err != nil {
		return fmt.Errorf("encode author names for %s: %w", b.ID, err)
	}

	_, err = r.db.ExecContext(ctx, q, b.ID, b.Name, b.Description, published, covers, string(authorIDs), string(authorNames))
	if err != nil {
		return fmt.Errorf("upsert book %s: %w", b.ID, err)
	}
	return nil
}

func (r *SQLiteRepo) FindBookByID(ctx context.Context, id string) (Book, error) {
	const q = `
		SELECT id, name, description, published_date, cover_ids, author_ids, author_names
		FROM books
		WHERE id = ?`

	var (
		b                      Book
		description, published sql.NullString
		covers                 sql.NullString
		authorIDs, authorNames string
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.Name, &description, &published, &covers, &authorIDs, &authorNames)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, fmt.Errorf("find book %s: %w", id, err)
	}

	if description.Valid {
		d := description.String
		b.Description = &d
	}
	if published.Valid {
		t, err := time.Parse(sqliteDateLayout, published.String)
		if err != nil {
			return Book{}, fmt.Errorf("decode published date for %s: %w", id, err)
		}
		b.PublishedDate = &t
	}
	if covers.Valid {
		if err := json.Unmarshal([]byte(covers.String), &b.CoverIDs); err != nil {
			return Book{}, fmt.Errorf("decode cover ids for %s: %w", id, err)
		}
	}
	if err := json.Unmarshal([]byte(authorIDs), &b.AuthorIDs); err != nil {
		return Book{}, fmt.Errorf("decode author ids for %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(authorNames), &b.AuthorNames); err != nil {
		return Book{}, fmt.Errorf("decode author names for %s: %w", id, err)
	}
	return b, nil
}
