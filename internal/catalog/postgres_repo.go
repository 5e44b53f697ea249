package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) SaveAuthor(ctx context.Context, a *Author) error {
	const sql = `
		INSERT INTO authors (id, name, personal_name, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			personal_name = EXCLUDED.personal_name,
			updated_at = now()`

	if _, err := r.db.Exec(ctx, sql, a.ID, a.Name, a.PersonalName); err != nil {
		return fmt.Errorf("upsert author %s: %w", a.ID, err)
	}
	return nil
}

func (r *PostgresRepo) FindAuthorByID(ctx context.Context, id string) (Author, error) {
	const sql = `SELECT id, name, personal_name FROM authors WHERE id = $1`

	var a Author
	err := r.db.QueryRow(ctx, sql, id).Scan(&a.ID, &a.Name, &a.PersonalName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Author{}, ErrNotFound
		}
		return Author{}, fmt.Errorf("find author %s: %w", id, err)
	}
	return a, nil
}

func (r *PostgresRepo) SaveBook(ctx context.Context, b *Book) error {
	const sql = `
		INSERT INTO books (id, name, description, published_date, cover_ids, author_ids, author_names, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			published_date = EXCLUDED.published_date,
			cover_ids = EXCLUDED.cover_ids,
			author_ids = EXCLUDED.author_ids,
			author_names = EXCLUDED.author_names,
			updated_at = now()`

	_, err := r.db.Exec(ctx, sql, b.ID, b.Name, b.Description, b.PublishedDate, b.CoverIDs, nonNil(b.AuthorIDs), nonNil(b.AuthorNames))
	if err != nil {
		return fmt.Errorf("upsert book %s: %w", b.ID, err)
	}
	return nil
}

func (r *PostgresRepo) FindBookByID(ctx context.Context, id string) (Book, error) {
	const sql = `
		SELECT id, name, description, published_date, cover_ids, author_ids, author_names
		FROM books
		WHERE id = $1`

	var b Book
	err := r.db.QueryRow(ctx, sql, id).Scan(
		&b.ID, &b.Name, &b.Description, &b.PublishedDate, &b.CoverIDs, &b.AuthorIDs, &b.AuthorNames,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, fmt.Errorf("find book %s: %w", id, err)
	}
	return b, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
