package catalog_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"bookloader/internal/catalog"
	"bookloader/internal/platform/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteRepo(t *testing.T) *catalog.SQLiteRepo {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return catalog.NewSQLiteRepo(db)
}

func TestSQLiteRepo_Author(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	_, err := repo.FindAuthorByID(ctx, "OL1A")
	assert.True(t, errors.Is(err, catalog.ErrNotFound))

	a := &catalog.Author{ID: "OL1A", Name: "Jane Doe", PersonalName: "Jane"}
	require.NoError(t, repo.SaveAuthor(ctx, a))
	require.NoError(t, repo.SaveAuthor(ctx, a))

	got, err := repo.FindAuthorByID(ctx, "OL1A")
	require.NoError(t, err)
	assert.Equal(t, *a, got)

	a.Name = "Jane Q. Doe"
	require.NoError(t, repo.SaveAuthor(ctx, a))
	got, err = repo.FindAuthorByID(ctx, "OL1A")
	require.NoError(t, err)
	assert.Equal(t, "Jane Q. Doe", got.Name)
}

func TestSQLiteRepo_Book(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	desc := "A desert planet"
	published := time.Date(2009, 12, 11, 0, 0, 0, 0, time.UTC)
	b := &catalog.Book{
		ID:            "OL10W",
		Name:          "Dune",
		Description:   &desc,
		PublishedDate: &published,
		CoverIDs:      []string{"3", "1", "2"},
		AuthorIDs:     []string{"OL1A", "OL2A"},
		AuthorNames:   []string{"Frank Herbert", "unknown author"},
	}
	require.NoError(t, repo.SaveBook(ctx, b))

	got, err := repo.FindBookByID(ctx, "OL10W")
	require.NoError(t, err)
	assert.Equal(t, *b, got)
}

func TestSQLiteRepo_BookOptionalFieldsAbsent(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	b := &catalog.Book{ID: "OL11W", Name: "Untitled", AuthorIDs: []string{}, AuthorNames: []string{}}
	require.NoError(t, repo.SaveBook(ctx, b))

	got, err := repo.FindBookByID(ctx, "OL11W")
	require.NoError(t, err)
	assert.Nil(t, got.Description)
	assert.Nil(t, got.PublishedDate)
	assert.Nil(t, got.CoverIDs)
	assert.Empty(t, got.AuthorIDs)
	assert.Empty(t, got.AuthorNames)

	_, err = repo.FindBookByID(ctx, "missing")
	assert.True(t, errors.Is(err, catalog.ErrNotFound))
}

func TestService_AcceptsDatasetKeys(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	svc := catalog.NewService(repo)

	require.NoError(t, repo.SaveAuthor(ctx, &catalog.Author{ID: "OL1A", Name: "Jane Doe"}))
	require.NoError(t, repo.SaveBook(ctx, &catalog.Book{ID: "OL10W", Name: "Test Book", AuthorIDs: []string{"OL1A"}, AuthorNames: []string{"Jane Doe"}}))

	a, err := svc.GetAuthor(ctx, "/authors/OL1A")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", a.Name)

	b, err := svc.GetBook(ctx, "/works/OL10W")
	require.NoError(t, err)
	assert.Equal(t, "Test Book", b.Name)

	b, err = svc.GetBook(ctx, "OL10W")
	require.NoError(t, err)
	assert.Equal(t, "OL10W", b.ID)
}
