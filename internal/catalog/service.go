package catalog

import (
	"context"
	"strings"
)

// Service is the read side of the catalog used by the CLI.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetAuthor accepts either a bare id or a dataset key such as "/authors/OL1A".
func (s *Service) GetAuthor(ctx context.Context, id string) (Author, error) {
	return s.repo.FindAuthorByID(ctx, strings.TrimPrefix(id, "/authors/"))
}

// GetBook accepts either a bare id or a dataset key such as "/works/OL10W".
func (s *Service) GetBook(ctx context.Context, id string) (Book, error) {
	return s.repo.FindBookByID(ctx, strings.TrimPrefix(id, "/works/"))
}
