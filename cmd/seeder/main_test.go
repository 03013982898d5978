package main

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/shelfvec/catalog"
	"github.com/poiesic/shelfvec/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(n int, seed uint64) []core.BookRecord {
	var books []core.BookRecord
	for book := range generateBooks(n, descriptions, rand.New(rand.NewPCG(seed, seed))) {
		books = append(books, book)
	}
	return books
}

func TestGenerateBooks(t *testing.T) {
	books := collect(30, 7)
	require.Len(t, books, 30)

	assert.Empty(t, books[6].Tags)
	assert.Equal(t, "Title: "+books[6].Title, books[6].TagText())
	assert.Empty(t, books[10].BookID)
	assert.Equal(t, "bk_10", books[10].Key(10))
	assert.NotEmpty(t, books[0].Tags)
	assert.LessOrEqual(t, len(books[0].Tags), 3)

	for i := range books {
		assert.NoError(t, core.ValidateBook(&books[i]))
	}
}

func TestGenerateBooks_Deterministic(t *testing.T) {
	assert.Equal(t, collect(12, 3), collect(12, 3))
}

func TestGenerateBooks_StopsEarly(t *testing.T) {
	n := 0
	for range generateBooks(100, descriptions, rand.New(rand.NewPCG(1, 1))) {
		n++
		if n == 5 {
			break
		}
	}
	assert.Equal(t, 5, n)
}

func TestLinesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "src.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\n\n  two  \n"), 0644))

	lines, err := linesFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, lines)

	_, err = linesFromFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestGeneratedCatalogLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.json.zst")
	require.NoError(t, catalog.Write(path, collect(20, 1)))

	cat, err := catalog.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, cat.Books, 20)
	assert.Empty(t, cat.Warnings)
}
