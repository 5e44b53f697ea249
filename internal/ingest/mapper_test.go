package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookloader/internal/catalog"
	"bookloader/internal/dump"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthorRepo struct {
	mock.Mock
}

func (m *mockAuthorRepo) SaveAuthor(ctx context.Context, a *catalog.Author) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *mockAuthorRepo) FindAuthorByID(ctx context.Context, id string) (catalog.Author, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(catalog.Author), args.Error(1)
}

func record(t *testing.T, js string) dump.Record {
	t.Helper()
	rec, err := dump.Parse([]byte(js))
	require.NoError(t, err)
	return rec
}

func TestMapAuthor(t *testing.T) {
	a := MapAuthor(record(t, `{"key":"/authors/OL1A","name":"Jane Doe","personal_name":"Jane"}`))
	assert.Equal(t, catalog.Author{ID: "OL1A", Name: "Jane Doe", PersonalName: "Jane"}, a)

	a = MapAuthor(record(t, `{"key":"/authors/OL2A"}`))
	assert.Equal(t, catalog.Author{ID: "OL2A"}, a)

	a = MapAuthor(record(t, `{"key":"/authors//authors/OL3A","name":null}`))
	assert.Equal(t, "OL3A", a.ID)
	assert.Empty(t, a.Name)
}

func TestBookMapper_FullRecord(t *testing.T) {
	repo := new(mockAuthorRepo)
	repo.On("FindAuthorByID", mock.Anything, "OL1A").Return(catalog.Author{ID: "OL1A", Name: "Frank Herbert"}, nil)
	repo.On("FindAuthorByID", mock.Anything, "OL9A").Return(catalog.Author{}, catalog.ErrNotFound)

	rec := record(t, `{
		"key": "/works/OL10W",
		"title": "Dune",
		"description": {"type": "/type/text", "value": "A desert planet"},
		"created": {"type": "/type/datetime", "value": "2009-12-11T01:57:19.964652"},
		"covers": [3, "1", 2],
		"authors": [
			{"author": {"key": "/authors/OL1A"}},
			{"type": "/type/author_role"},
			{"author": {"key": "/authors/OL9A"}}
		]
	}`)

	book, ok, err := NewBookMapper(repo).Map(context.Background(), rec)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, "OL10W", book.ID)
	assert.Equal(t, "Dune", book.Name)
	require.NotNil(t, book.Description)
	assert.Equal(t, "A desert planet", *book.Description)
	require.NotNil(t, book.PublishedDate)
	assert.Equal(t, time.Date(2009, 12, 11, 0, 0, 0, 0, time.UTC), *book.PublishedDate)
	assert.Equal(t, []string{"3", "1", "2"}, book.CoverIDs)
	assert.Equal(t, []string{"OL1A", "OL9A"}, book.AuthorIDs)
	assert.Equal(t, []string{"Frank Herbert", UnknownAuthor}, book.AuthorNames)
	repo.AssertExpectations(t)
}

func TestBookMapper_ResolvesStoredAuthor(t *testing.T) {
	repo := new(mockAuthorRepo)
	repo.On("FindAuthorByID", mock.Anything, "OL1A").Return(catalog.Author{ID: "OL1A", Name: "Jane Doe"}, nil)

	book, ok, err := NewBookMapper(repo).Map(context.Background(),
		record(t, `{"key":"/works/OL10W","title":"Test Book","authors":[{"author":{"key":"/authors/OL1A"}}]}`))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, catalog.Book{
		ID:          "OL10W",
		Name:        "Test Book",
		AuthorIDs:   []string{"OL1A"},
		AuthorNames: []string{"Jane Doe"},
	}, book)
}

func TestBookMapper_OptionalFieldsAbsent(t *testing.T) {
	repo := new(mockAuthorRepo)

	book, ok, err := NewBookMapper(repo).Map(context.Background(),
		record(t, `{"key":"/works/OL2W","title":"Plain","description":"just a string","authors":[]}`))
	require.NoError(t, err)
	assert.True(t, ok, "an empty authors array still passes the write gate")
	assert.Nil(t, book.Description)
	assert.Nil(t, book.PublishedDate)
	assert.Nil(t, book.CoverIDs)
	assert.Empty(t, book.AuthorIDs)
	assert.Empty(t, book.AuthorNames)
	repo.AssertNotCalled(t, "FindAuthorByID", mock.Anything, mock.Anything)
}

func TestBookMapper_WriteGate(t *testing.T) {
	repo := new(mockAuthorRepo)
	m := NewBookMapper(repo)

	for _, js := range []string{
		`{"key":"/works/OL3W","title":"No authors"}`,
		`{"key":"/works/OL3W","title":"Null authors","authors":null}`,
		`{"key":"/works/OL3W","title":"Wrong type","authors":{"author":{"key":"/authors/OL1A"}}}`,
	} {
		book, ok, err := m.Map(context.Background(), record(t, js))
		require.NoError(t, err, js)
		assert.False(t, ok, js)
		assert.Equal(t, "OL3W", book.ID)
	}
}

func TestBookMapper_LineErrors(t *testing.T) {
	tests := map[string]string{
		"created with millis":        `{"key":"/works/OL4W","created":{"value":"2009-12-11T01:57:19.964"},"authors":[]}`,
		"created without value":      `{"key":"/works/OL4W","created":{"type":"/type/datetime"},"authors":[]}`,
		"created not a timestamp":    `{"key":"/works/OL4W","created":{"value":"yesterday"},"authors":[]}`,
		"created one digit hour":     `{"key":"/works/OL4W","created":{"value":"2009-12-11T1:57:19.964652"},"authors":[]}`,
		"created comma fraction":     `{"key":"/works/OL4W","created":{"value":"2009-12-11T01:57:19,964652"},"authors":[]}`,
		"created with zone":          `{"key":"/works/OL4W","created":{"value":"2009-12-11T01:57:19.964652Z"},"authors":[]}`,
		"description without value":  `{"key":"/works/OL4W","description":{"type":"/type/text"},"authors":[]}`,
		"description value not text": `{"key":"/works/OL4W","description":{"value":42},"authors":[]}`,
		"authors element not object": `{"key":"/works/OL4W","authors":["/authors/OL1A"]}`,
		"author without key":         `{"key":"/works/OL4W","authors":[{"author":{"name":"x"}}]}`,
	}
	for name, js := range tests {
		t.Run(name, func(t *testing.T) {
			repo := new(mockAuthorRepo)
			_, ok, err := NewBookMapper(repo).Map(context.Background(), record(t, js))
			require.Error(t, err)
			assert.False(t, ok)
			assert.Equal(t, OutcomeSkipped, classify(err))
		})
	}
}

func TestBookMapper_LookupFailureIsFatal(t *testing.T) {
	repo := new(mockAuthorRepo)
	repo.On("FindAuthorByID", mock.Anything, "OL1A").Return(catalog.Author{}, errors.New("connection reset"))

	_, _, err := NewBookMapper(repo).Map(context.Background(),
		record(t, `{"key":"/works/OL5W","authors":[{"author":{"key":"/authors/OL1A"}}]}`))
	require.Error(t, err)

	var se *StoreError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, OutcomeFatal, classify(err))
}

func TestCreatedShape(t *testing.T) {
	assert.True(t, createdShape("2009-12-11T01:57:19.964652"))
	assert.False(t, createdShape("2009-12-11 01:57:19.964652"))
	assert.False(t, createdShape("2009-12-11T01:57:1a.964652"))
	assert.False(t, createdShape("2009/12/11T01:57:19.964652"))
	assert.False(t, createdShape(""))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, OutcomeSaved, classify(nil))
	assert.Equal(t, OutcomeSkipped, classify(dump.ErrNoJSON))
	assert.Equal(t, OutcomeFatal, classify(context.Canceled))
	assert.Equal(t, OutcomeFatal, classify(&StoreError{Op: "save", Err: errors.New("x")}))
}

func TestParsePhase(t *testing.T) {
	p, ok := ParsePhase("")
	assert.True(t, ok)
	assert.Equal(t, PhaseAll, p)

	p, ok = ParsePhase("works")
	assert.True(t, ok)
	assert.Equal(t, PhaseWorks, p)

	_, ok = ParsePhase("editions")
	assert.False(t, ok)
}
