package catalog

import (
	"context"
)

// AuthorRepository stores authors keyed by id.
type AuthorRepository interface {
	SaveAuthor(ctx context.Context, a *Author) error
	FindAuthorByID(ctx context.Context, id string) (Author, error)
}

// BookRepository stores books keyed by id.
type BookRepository interface {
	SaveBook(ctx context.Context, b *Book) error
	FindBookByID(ctx context.Context, id string) (Book, error)
}

// Repository is implemented by each storage backend.
type Repository interface {
	AuthorRepository
	BookRepository
}
