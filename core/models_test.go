package core

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointIDFromKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{
			name: "empty key",
			key:  "",
			want: "d41d8cd9-8f00-b204-e980-0998ecf8427e",
		},
		{
			name: "ascii key",
			key:  "abc",
			want: "90015098-3cd2-4fb0-d696-3f7d28e17f72",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := PointIDFromKey(tt.key)
			id2 := PointIDFromKey(tt.key)

			assert.Equal(t, id1, id2, "same key must produce same id")
			assert.Equal(t, tt.want, id1.String())
		})
	}
}

func TestPointIDFromKey_CanonicalForm(t *testing.T) {
	id := PointIDFromKey("book-001")

	parsed, err := uuid.Parse(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
	assert.Len(t, id.String(), 36)
}

func TestPointIDFromKey_NoCollisions(t *testing.T) {
	const n = 50000
	seen := make(map[PointID]string, n)
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("book-%06d", i)
		id := PointIDFromKey(key)
		if prev, ok := seen[id]; ok {
			t.Fatalf("collision between %q and %q", prev, key)
		}
		seen[id] = key
	}
	assert.Len(t, seen, n)
}

func TestBookRecord_Key(t *testing.T) {
	t.Run("uses book_id when present", func(t *testing.T) {
		b := &BookRecord{BookID: "isbn-42"}
		assert.Equal(t, "isbn-42", b.Key(7))
	})

	t.Run("falls back to position", func(t *testing.T) {
		b := &BookRecord{Title: "Untitled"}
		assert.Equal(t, "bk_7", b.Key(7))
		assert.Equal(t, PointIDFromKey("bk_7"), PointIDFromKey(b.Key(7)))
	})
}

func TestBookRecord_TagText(t *testing.T) {
	tests := []struct {
		name string
		book BookRecord
		want string
	}{
		{
			name: "joins tags",
			book: BookRecord{Title: "Dune", Tags: []string{"scifi", "classic"}},
			want: "Category: scifi, classic",
		},
		{
			name: "single tag",
			book: BookRecord{Title: "Dune", Tags: []string{"scifi"}},
			want: "Category: scifi",
		},
		{
			name: "empty tags uses title",
			book: BookRecord{Title: "Dune", Tags: []string{}},
			want: "Title: Dune",
		},
		{
			name: "nil tags uses title",
			book: BookRecord{Title: "Dune"},
			want: "Title: Dune",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.book.TagText())
		})
	}
}

func TestBookRecord_ApplyDefaults(t *testing.T) {
	b := &BookRecord{Title: "Dune"}
	b.ApplyDefaults()

	assert.Equal(t, DefaultLanguage, b.Language)
	assert.NotNil(t, b.Tags)

	b = &BookRecord{Language: "English", Tags: []string{"x"}}
	b.ApplyDefaults()
	assert.Equal(t, "English", b.Language)
	assert.Equal(t, []string{"x"}, b.Tags)
}

func TestPointPairShareIdentifier(t *testing.T) {
	book := &BookRecord{
		BookID:      "b1",
		Title:       "Dune",
		Author:      "Frank Herbert",
		Description: "Spice.",
		Tags:        []string{"scifi"},
		Language:    "English",
		CoverURL:    "http://covers/b1.jpg",
	}
	id := PointIDFromKey(book.Key(0))

	tag := NewTagPoint(id, book.Key(0), book, []float32{1, 2})
	desc := NewDescPoint(id, book.Key(0), []float32{3, 4})

	assert.Equal(t, tag.ID, desc.ID)
	assert.Equal(t, PointTypeBook, tag.Payload["type"])
	assert.Equal(t, PointTypeBookDesc, desc.Payload["type"])
	assert.Equal(t, "b1", tag.Payload["book_id"])
	assert.Equal(t, "Dune", tag.Payload["title"])
	assert.Equal(t, "Frank Herbert", tag.Payload["author"])
	assert.Equal(t, []string{"scifi"}, tag.Payload["tags"])
	assert.Equal(t, "http://covers/b1.jpg", tag.Payload["cover_url"])
	assert.Len(t, desc.Payload, 2)
	assert.Equal(t, "b1", desc.Payload["book_id"])
}

func TestDistanceValid(t *testing.T) {
	assert.True(t, DistanceCosine.Valid())
	assert.True(t, DistanceDot.Valid())
	assert.False(t, Distance("cosine").Valid())
	assert.False(t, Distance("").Valid())
}
