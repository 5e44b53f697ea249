package dump

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	t.Run("strips row key prefix", func(t *testing.T) {
		line := "/type/author\t/authors/OL1A\t3\t2008-04-01T03:28:50.625462\t{\"key\": \"/authors/OL1A\", \"name\": \"Jane Doe\"}"

		rec, err := Extract(line)
		require.NoError(t, err)
		assert.Equal(t, "/authors/OL1A", rec.OptString("key"))
		assert.Equal(t, "Jane Doe", rec.OptString("name"))
	})

	t.Run("no brace", func(t *testing.T) {
		_, err := Extract("/type/author\t/authors/OL1A\t3")
		assert.True(t, errors.Is(err, ErrNoJSON))
	})

	t.Run("empty line", func(t *testing.T) {
		_, err := Extract("")
		assert.True(t, errors.Is(err, ErrNoJSON))
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := Extract("prefix\t{\"key\": ")
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrNoJSON))
	})

	t.Run("brace inside prefix starts the document", func(t *testing.T) {
		_, err := Extract("weird{prefix\t{\"key\":\"x\"}")
		assert.Error(t, err)
	})
}

func TestRecordAccessors(t *testing.T) {
	rec, err := Parse([]byte(`{
		"title": "Dune",
		"revision": 12,
		"empty": null,
		"flag": true,
		"description": {"type": "/type/text", "value": "Spice"},
		"plain": "text",
		"covers": [123, "456"],
		"nested": {"a": [1, 2]}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "Dune", rec.OptString("title"))
	assert.Equal(t, "12", rec.OptString("revision"))
	assert.Equal(t, "", rec.OptString("empty"))
	assert.Equal(t, "", rec.OptString("missing"))
	assert.Equal(t, "true", rec.OptString("flag"))
	assert.Equal(t, `{"a":[1,2]}`, rec.OptString("nested"))

	desc, ok := rec.OptObject("description")
	require.True(t, ok)
	v, err := desc.String("value")
	require.NoError(t, err)
	assert.Equal(t, "Spice", v)

	_, ok = rec.OptObject("plain")
	assert.False(t, ok)
	_, ok = rec.OptObject("empty")
	assert.False(t, ok)

	covers, ok := rec.OptArray("covers")
	require.True(t, ok)
	require.Len(t, covers, 2)
	assert.Equal(t, "123", Scalar(covers[0]))
	assert.Equal(t, "456", Scalar(covers[1]))

	_, ok = rec.OptArray("title")
	assert.False(t, ok)

	_, err = rec.String("revision")
	assert.Error(t, err)
	_, err = rec.String("missing")
	assert.Error(t, err)

	assert.True(t, rec.Has("empty"))
	assert.False(t, rec.Has("missing"))
}

func TestObject(t *testing.T) {
	obj, err := Object([]byte(`{"author": {"key": "/authors/OL1A"}}`))
	require.NoError(t, err)
	_, ok := obj.OptObject("author")
	assert.True(t, ok)

	_, err = Object([]byte(`"/authors/OL1A"`))
	assert.Error(t, err)
}

func TestParse_RejectsNonObjects(t *testing.T) {
	for _, in := range []string{`null`, `[1,2]`, `"x"`, `42`} {
		_, err := Parse([]byte(in))
		assert.Error(t, err, in)
	}
}
